package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signscribe/internal/segment"
	"signscribe/internal/signrender"
)

type segmentOutput struct {
	Segments   []string `json:"segments"`
	Oversized  []int    `json:"oversized,omitempty"`
	RenderURLs []string `json:"render_urls,omitempty"`
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var maxLength int
	var renderBase string

	cmd := &cobra.Command{
		Use:         "segment [text]",
		Short:       "Split text into segments without transcribing anything",
		Long:        "Split text into sign-renderable segments. Reads standard input when no text argument is given.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no input text")
			}
			if maxLength <= 0 {
				return fmt.Errorf("--max-length must be positive")
			}

			output := segmentOutput{Segments: segment.Split(text, maxLength)}
			output.Oversized = segment.Oversized(output.Segments, maxLength)
			if renderBase != "" {
				renderer, err := signrender.New(renderBase)
				if err != nil {
					return err
				}
				output.RenderURLs = renderer.URLs(output.Segments)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, output)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSegments(output))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLength, "max-length", segment.DefaultMaxLength, "Maximum segment length in characters")
	cmd.Flags().StringVar(&renderBase, "render-base", "", "Also print sign rendering URLs against this base")
	return cmd
}

func renderSegments(output segmentOutput) string {
	oversized := make(map[int]bool, len(output.Oversized))
	for _, idx := range output.Oversized {
		oversized[idx] = true
	}
	headers := []string{"#", "Len", "Segment"}
	aligns := []columnAlignment{alignRight, alignRight, alignLeft}
	if len(output.RenderURLs) > 0 {
		headers = append(headers, "Render URL")
		aligns = append(aligns, alignLeft)
	}
	rows := make([][]string, 0, len(output.Segments))
	for i, seg := range output.Segments {
		length := strconv.Itoa(len([]rune(seg)))
		if oversized[i] {
			length += "!"
		}
		row := []string{strconv.Itoa(i + 1), length, seg}
		if i < len(output.RenderURLs) {
			row = append(row, output.RenderURLs[i])
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}
