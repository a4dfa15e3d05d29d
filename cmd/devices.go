package cmd

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var defaultMarkStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"sources"},
	Short:   "List capture devices",
	Long: `List the capture devices of the configured audio backend. The index in
the first column is the value to use for the 'device' setting; -1 always
selects the system default input.`,
	Annotations: map[string]string{configAnnotation: configSettings},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newProvider()
		if err != nil {
			return err
		}
		defer provider.Close()

		devices, err := provider.Devices()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Capture devices (%s, %s)", cfg.Audio.Backend, runtime.GOOS)))
		if len(devices) == 0 {
			fmt.Fprintln(out, "No capture devices found")
			return nil
		}
		for _, d := range devices {
			line := fmt.Sprintf("%3d  %s", d.Index, d.Name)
			if d.IsDefault {
				line += " " + defaultMarkStyle.Render("(default)")
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}
