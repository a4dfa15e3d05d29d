package cmd

import (
	"fmt"
	"time"

	"github.com/audiolibrelab/fieldcapture/internal/config"
	"github.com/audiolibrelab/fieldcapture/internal/prompt"
	"github.com/audiolibrelab/fieldcapture/internal/schedule"

	"github.com/spf13/cobra"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Create a configuration interactively",
	Long: `Ask for the recording parameters one at a time and save them as a JSON
configuration. Invalid answers are asked again.`,
	Annotations: map[string]string{configAnnotation: configNone},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = cfgFile
		}

		file, err := runWizard(prompt.New(cmd.InOrStdin(), cmd.OutOrStdout()), time.Now())
		if err != nil {
			return err
		}
		if err := config.Save(output, file); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", output)
		return nil
	},
}

func init() {
	wizardCmd.Flags().StringP("output", "o", "", "file to write (default is the --config path)")
}

// runWizard asks every question in order and returns the answers as a
// configuration file. Times offered relative to now are written as full
// dates so they do not depend on the day the run is started.
func runWizard(p *prompt.Prompter, now time.Time) (config.FileConfig, error) {
	file := config.Defaults()

	sampleRate, err := prompt.Menu(p, "Choose sample rate:", []prompt.Option[int]{
		{Label: "44.1 kHz", Value: 44100},
		{Label: "48 kHz", Value: 48000},
		{Label: "88.2 kHz", Value: 88200},
		{Label: "96 kHz", Value: 96000},
	}, nil, "")
	if err != nil {
		return file, err
	}
	file.SampleRate = sampleRate

	duration, err := prompt.Menu(p, "Choose a duration:", []prompt.Option[string]{
		{Label: "20 seconds", Value: "00:00:20"},
		{Label: "10 minutes", Value: "00:10:00"},
		{Label: "Specify hours, minutes and seconds", Custom: true},
	}, durationAnswer, "Enter duration (HH:MM:SS):")
	if err != nil {
		return file, err
	}
	file.Duration = duration

	start, err := prompt.Menu(p, "Choose start time:", []prompt.Option[string]{
		{Label: "1 hour from now", Value: now.Add(time.Hour).Format(schedule.DateTimeLayout)},
		{Label: "2 hours from now", Value: now.Add(2 * time.Hour).Format(schedule.DateTimeLayout)},
		{Label: "Specify time", Custom: true},
	}, instantAnswer(now), "Enter start time (HH:MM:SS or YYYY-MM-DD HH:MM:SS):")
	if err != nil {
		return file, err
	}
	file.StartTime = start

	p.Heading("Repetition")
	end, err := prompt.Ask(p, "End time, empty for a single session:", prompt.Optional(instantAnswer(now)))
	if err != nil {
		return file, err
	}
	file.EndTime = end

	if end != "" {
		period, err := prompt.Ask(p, "Period between session starts (HH:MM:SS):", periodAnswer(duration))
		if err != nil {
			return file, err
		}
		file.Period = period
	}

	p.Heading("Input and output")
	device, err := prompt.Ask(p, "Capture device index, empty for the default input:", deviceAnswer)
	if err != nil {
		return file, err
	}
	file.Device = device

	location, err := prompt.Ask(p, "Location name [field]:", prompt.Text("field"))
	if err != nil {
		return file, err
	}
	file.Location = location
	file.Prefix = location

	return file, nil
}

func durationAnswer(answer string) (string, error) {
	d, err := schedule.ParseDuration(answer)
	if err != nil {
		return "", err
	}
	if d < schedule.MinCaptureDuration {
		return "", fmt.Errorf("duration must be at least %d seconds", int64(schedule.MinCaptureDuration))
	}
	return d.String(), nil
}

func instantAnswer(now time.Time) prompt.Validator[string] {
	return func(answer string) (string, error) {
		if _, err := schedule.ParseInstant(answer, now); err != nil {
			return "", err
		}
		return answer, nil
	}
}

func periodAnswer(duration string) prompt.Validator[string] {
	return func(answer string) (string, error) {
		period, err := schedule.ParseDuration(answer)
		if err != nil {
			return "", err
		}
		d, err := schedule.ParseDuration(duration)
		if err != nil {
			return "", err
		}
		if err := schedule.ValidateTiming(d, period); err != nil {
			return "", err
		}
		return period.String(), nil
	}
}

func deviceAnswer(answer string) (int, error) {
	if answer == "" {
		return -1, nil
	}
	return prompt.Integer(-1)(answer)
}
