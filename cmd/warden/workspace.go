package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-warden/internal/audit"
	"github.com/kingrea/lattice-warden/internal/config"
	"github.com/kingrea/lattice-warden/internal/tui"
)

func initCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .ai/ workspace and memory-bank/ store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			projectDir, err := config.ResolveProjectDir(opts.project, env.ProjectDir)
			if err != nil {
				return err
			}
			cfg, err := config.InitWorkspace(projectDir)
			if err != nil {
				return err
			}
			if opts.mode != "" {
				mode, err := config.ParseMode(opts.mode)
				if err != nil {
					return err
				}
				if err := cfg.SetMode(mode); err != nil {
					return err
				}
			}
			err = audit.WriteMarker(cfg.AuditLogPath(), "ENFORCEMENT_INITIALIZED", map[string]any{
				"mode":    string(cfg.Mode),
				"version": Version,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s (mode: %s)\n", cfg.ProjectConfigPath(), cfg.Mode)
			return nil
		},
	}
}

func commandsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List governed commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				renderer := lipgloss.NewRenderer(cmd.OutOrStdout())
				header := renderer.NewStyle().Bold(true).Padding(0, 1)
				cell := renderer.NewStyle().Padding(0, 1)

				t := table.New().
					Border(lipgloss.NormalBorder()).
					BorderStyle(renderer.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))).
					Headers("Command", "Templates", "Outputs", "Required", "Links to").
					StyleFunc(func(row, col int) lipgloss.Style {
						if row == table.HeaderRow {
							return header
						}
						return cell
					})
				for _, id := range a.registry.IDs() {
					spec, _ := a.registry.Lookup(id).Spec()
					outputs := make([]string, 0, len(spec.OutputPatterns))
					for _, p := range spec.OutputPatterns {
						outputs = append(outputs, p.String())
					}
					required := "no"
					if spec.Required {
						required = "yes"
					}
					t.Row(id,
						strings.Join(spec.Templates, "\n"),
						strings.Join(outputs, "\n"),
						required,
						strings.Join(spec.LinksTo, ", "),
					)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
}

func historyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Browse the audit log interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				log, err := a.auditLog()
				if err != nil {
					return err
				}
				return tui.RunHistory(log,
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
			})
		},
	}
}
