package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
	"github.com/foomo/teamdirectory/tui"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the resolved team members in manifest order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			manifest := a.service.LoadManifest(cmd.Context())
			members := a.service.ResolveAll(cmd.Context(), manifest, func(s service.Settlement) {
				if s.Error != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(fmt.Sprintf("skipped %s: %s", s.Document, s.Error)))
				}
			})
			printMembers(out, members)
			return nil
		},
	}
}

func printMembers(out io.Writer, members []vo.Member) {
	if len(members) == 0 {
		fmt.Fprintln(out, "No team members to show yet.")
		return
	}
	for _, member := range members {
		fmt.Fprintln(out, tui.MemberLine(member))
	}
}

func (a *app) showCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Render a member profile in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := markdown.NewTerminalRenderer(a.config.TerminalStyle, width)
			if err != nil {
				return err
			}
			profile := a.service.GetProfile(cmd.Context(), args[0])
			out, err := renderer.Render(tui.ProfileMarkdown(profile))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			if profile.NotFound() {
				return fmt.Errorf("member %q not found", args[0])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "word wrap width")
	return cmd
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the team interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := markdown.NewTerminalRenderer(a.config.TerminalStyle, 0)
			if err != nil {
				return err
			}
			model := tui.NewModel(cmd.Context(), a.service, renderer)
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("failed to run browser: %w", err)
			}
			return nil
		},
	}
}
