package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
	"github.com/audiolibrelab/fieldcapture/internal/service"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the sessions a recording would run",
	Long: `Resolve the configuration and print the capture plan without recording:
the number of sessions, the nominal start of each one, the files they
produce and the audio length actually captured per take.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.New(cfg, nil, logger)
		preview, err := svc.Preview()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderPreview(preview, cfg.Audio.SampleRate))
		return nil
	},
}

func renderPreview(p service.Preview, sampleRate int) string {
	var summary strings.Builder
	period := "-"
	if p.Plan.Period != 0 {
		period = p.Plan.Period.String()
	}
	fmt.Fprintf(&summary, "%s %d\n", labelStyle.Render("sessions:   "), p.Plan.TotalSessions)
	fmt.Fprintf(&summary, "%s %s\n", labelStyle.Render("first start:"), p.Plan.FirstStart.Format(schedule.DateTimeLayout))
	fmt.Fprintf(&summary, "%s %s\n", labelStyle.Render("period:     "), period)
	fmt.Fprintf(&summary, "%s %s (%s captured at %d Hz)\n", labelStyle.Render("duration:   "), p.Plan.Duration, p.TakeLength, sampleRate)
	fmt.Fprintf(&summary, "%s %s", labelStyle.Render("directory:  "), p.Directory)

	var sessions strings.Builder
	for i, s := range p.Sessions {
		if i > 0 {
			sessions.WriteString("\n")
		}
		fmt.Fprintf(&sessions, "%3d  %s  %s", s.Number, s.NominalStart.Format(schedule.DateTimeLayout), filepath.Join(filepath.Base(p.Directory), s.File))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Capture plan"),
		panelStyle.Render(summary.String()),
		panelStyle.Render(sessions.String()),
	)
}
