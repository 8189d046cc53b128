package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"signscribe/internal/pipeline"
	"signscribe/internal/services"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <file|url>",
		Short: "Transcribe one video and print its segments",
		Long: `Transcribe a local video file or a remote video URL and print the
segmented transcript with sign rendering URLs.

Local files go through the same staging path as HTTP uploads, so storage
forwarding applies when it is enabled. Anything that is not an existing file
is treated as a URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			rt, err := pipeline.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			target := strings.TrimSpace(args[0])
			var result pipeline.Result
			if info, statErr := os.Stat(target); statErr == nil && info.Mode().IsRegular() {
				result, err = transcribeFile(cmd, rt.Pipeline, target)
			} else {
				result, err = rt.Pipeline.ProcessURL(cmd.Context(), target)
			}
			if err != nil {
				return describeRunError(result.RunID, err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			printResult(cmd, result)
			return nil
		},
	}
	return cmd
}

func transcribeFile(cmd *cobra.Command, p *pipeline.Pipeline, path string) (pipeline.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return p.ProcessUpload(cmd.Context(), filepath.Base(path), file)
}

func printResult(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", result.RunID)
	fmt.Fprintf(out, "Source:     %s\n", result.SourceName)
	fmt.Fprintf(out, "Transcript: %s\n", result.Provenance)
	if result.PublicURL != "" {
		fmt.Fprintf(out, "Stored at:  %s\n", result.PublicURL)
	}
	if len(result.Segments) == 0 {
		fmt.Fprintln(out, "No speech found")
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderSegments(segmentOutput{Segments: result.Segments, RenderURLs: result.RenderURLs}))
}

func describeRunError(runID string, err error) error {
	if runID == "" {
		return err
	}
	return fmt.Errorf("run %s failed (%s): %w", runID, services.Kind(err), err)
}
