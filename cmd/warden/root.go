package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Template compliance and guidance for workflow commands",
		Long: `warden checks that workflow commands such as /plan or /creative follow
their templates, write their outputs into memory-bank/, and build on the
outputs of the commands they depend on.

In strict mode a missing template blocks the command and post-checks are
recorded as violations. In flexible mode warden only offers guidance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.project, "project", "", "Project directory (default: $WARDEN_PROJECT_DIR or the working directory)")
	flags.StringVar(&opts.mode, "mode", "", "Enforcement mode: strict or flexible (default: $TEMPLATE_MODE or project config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		checkCmd(&opts),
		validateCmd(&opts),
		reportCmd(&opts),
		guideCmd(&opts),
		promptCmd(&opts),
		fuzzyCmd(&opts),
		commandsCmd(&opts),
		historyCmd(&opts),
		initCmd(&opts),
	)
	return cmd
}

// withApp builds the app for one run and always closes it.
func withApp(opts *globalOptions, fn func(*app) error) (err error) {
	a, err := newApp(*opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}

// advisory runs fn for surfaces that must never fail: errors are reported on
// stderr and the exit status stays 0.
func advisory(cmd *cobra.Command, opts *globalOptions, fn func(*app) error) error {
	if err := withApp(opts, fn); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return nil
}
