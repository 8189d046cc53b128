package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"signscribe/internal/deps"
	"signscribe/internal/preflight"
)

type depsReport struct {
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	OK           bool               `json:"ok"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools, directories and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := depsReport{
				Dependencies: preflight.CheckSystemDeps(cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			report.OK = len(deps.Missing(report.Dependencies)) == 0 && len(preflight.Failed(report.Checks)) == 0

			if ctx.JSONMode() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderDepsReport(report, isTerminal(cmd.OutOrStdout())))
			}
			if strict && !report.OK {
				return fmt.Errorf("dependency checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a required check fails")
	return cmd
}

func renderDepsReport(report depsReport, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range report.Dependencies {
		kind := statusOK
		message := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			message = dep.Detail
		}
		if dep.Description != "" {
			message = fmt.Sprintf("%s (%s)", message, dep.Description)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return strings.Join(lines, "\n") + "\n"
}
