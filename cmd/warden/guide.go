package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-warden/internal/guidance"
	"github.com/kingrea/lattice-warden/internal/registry"
)

func guideCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guide <command>",
		Short: "Print pre-command guidance as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := registry.Normalize(args[0])
			return advisory(cmd, opts, func(a *app) error {
				pre, err := a.engine().PreGuidance(id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), pre)
			})
		},
	}
}

func promptCmd(opts *globalOptions) *cobra.Command {
	var (
		rawContext string
		fromGuide  bool
	)
	cmd := &cobra.Command{
		Use:   "prompt <command>",
		Short: "Render the generation directive for a command",
		Long: `Renders the purpose, principles and freedom areas for a command together
with a JSON context object. With --from-guide the command's guide document is
rendered instead. An invalid --context is reported and replaced by {}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := registry.Normalize(args[0])
			return advisory(cmd, opts, func(a *app) error {
				engine := a.engine()
				var (
					text string
					err  error
				)
				if fromGuide {
					text, err = engine.GuidePrompt(id)
				} else {
					context, parseErr := guidance.ParseContext(rawContext)
					if parseErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", parseErr)
						context = map[string]any{}
					}
					text, err = engine.BuildPrompt(id, context)
				}
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rawContext, "context", "", "JSON object passed to the directive")
	cmd.Flags().BoolVar(&fromGuide, "from-guide", false, "Render the command's guide document instead")
	return cmd
}

func fuzzyCmd(opts *globalOptions) *cobra.Command {
	var contentFile string
	cmd := &cobra.Command{
		Use:   "fuzzy <command>",
		Short: "Score content against a command's essential elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := registry.Normalize(args[0])
			return advisory(cmd, opts, func(a *app) error {
				content, err := a.readContent(contentFile)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), a.engine().FuzzyValidate(id, content))
			})
		},
	}
	cmd.Flags().StringVar(&contentFile, "content-file", "", "File holding the content to score")
	return cmd
}
