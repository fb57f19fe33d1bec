package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-warden/internal/registry"
)

func checkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command>",
		Short: "Pre-check a command before it runs",
		Long: `Strict mode: exits 1 with remediation on stderr when a template the
command needs is missing. Flexible mode: prints guidance JSON and exits 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := registry.Normalize(args[0])
			return withApp(opts, func(a *app) error {
				if !a.strict() {
					pre, err := a.engine().PreGuidance(id)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
						return nil
					}
					return writeJSON(cmd.OutOrStdout(), pre)
				}
				if !a.governed(id) {
					return nil
				}
				v, err := a.validator()
				if err != nil {
					return err
				}
				decision, err := v.EnforcePre(id)
				if err != nil {
					return err
				}
				if !decision.Allowed {
					printRemediation(cmd.ErrOrStderr(), decision.Remediation, colorBlocked)
					return blocked(id)
				}
				if decision.Governed {
					printPassed(cmd.ErrOrStderr(), fmt.Sprintf("Template enforcement check passed for %s", id))
				}
				return nil
			})
		},
	}
}

func validateCmd(opts *globalOptions) *cobra.Command {
	var (
		files       []string
		contentFile string
	)
	cmd := &cobra.Command{
		Use:   "validate <command>",
		Short: "Post-check what a command produced",
		Long: `Strict mode: records SUCCESS or VIOLATION and exits 1 with remediation on
stderr when any check failed. Flexible mode: prints advisory feedback JSON
(plus element coverage when --content-file is given) and exits 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := registry.Normalize(args[0])
			absFiles, err := absolutePaths(files)
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				if a.strict() && !a.governed(id) {
					return nil
				}
				content, err := a.readContent(contentFile)
				if !a.strict() {
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
						content = ""
					}
					return flexibleValidate(cmd, a, id, absFiles, content)
				}
				if err != nil {
					return err
				}
				v, err := a.validator()
				if err != nil {
					return err
				}
				outcome, err := v.EnforcePost(id, absFiles, content)
				if err != nil {
					return err
				}
				if !outcome.Passed {
					printRemediation(cmd.ErrOrStderr(), outcome.Remediation, colorViolated)
					return violated(id)
				}
				if outcome.Governed {
					printPassed(cmd.ErrOrStderr(), fmt.Sprintf("All enforcement checks passed for %s", id))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&files, "files", nil, "Output files the command produced")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "File holding the produced content")
	return cmd
}

func flexibleValidate(cmd *cobra.Command, a *app, id string, files []string, content string) error {
	engine := a.engine()
	feedback, err := engine.PostFeedback(id, files)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		return nil
	}
	if content == "" {
		return writeJSON(cmd.OutOrStdout(), feedback)
	}
	return writeJSON(cmd.OutOrStdout(), struct {
		Feedback   any `json:"feedback"`
		Validation any `json:"validation"`
	}{Feedback: feedback, Validation: engine.FuzzyValidate(id, content)})
}

func reportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the enforcement report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				log, err := a.auditLog()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), log.Report())
			})
		},
	}
}

func absolutePaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
