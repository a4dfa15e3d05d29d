package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage FieldCapture configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Print the configuration a recording would use, after defaults, the
config file, FIELDCAPTURE_* environment variables and flags are merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:         "edit",
	Short:       "Edit configuration file",
	Annotations: map[string]string{configAnnotation: configNone},
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "nano"
		}

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return fmt.Errorf("config file %s does not exist, create it with 'fieldcapture wizard -o %s'", cfgFile, cfgFile)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Opening %s with %s...\n", cfgFile, editor)
		edit := exec.Command(editor, cfgFile)
		edit.Stdin = os.Stdin
		edit.Stdout = os.Stdout
		edit.Stderr = os.Stderr
		if err := edit.Run(); err != nil {
			return fmt.Errorf("editor %s failed: %w", editor, err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
}
