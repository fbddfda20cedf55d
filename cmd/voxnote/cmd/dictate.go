package cmd

import (
	"github.com/spf13/cobra"

	"github.com/voxnote/voxnote/internal/dictation"
)

var (
	dictateServer      string
	dictateSliceLength int
	dictateDevice      string
)

var dictateCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Record from the microphone and stream slices to the server",
	Long: `Opens the microphone and records dictation in fixed-length slices.
Each slice is uploaded as soon as its window closes, so transcription runs
while you keep talking. Press Enter (or Ctrl+Shift+D globally) to start
and stop recording.

Flag values are persisted to ~/.config/voxnote/dictate.json and become
the defaults for the next run.`,
	RunE: runDictate,
}

func init() {
	rootCmd.AddCommand(dictateCmd)
	dictateCmd.Flags().StringVar(&dictateServer, "server", "", "VoxNote server URL (default: last used)")
	dictateCmd.Flags().IntVar(&dictateSliceLength, "slice-length", 0, "slice length in milliseconds (5000-120000)")
	dictateCmd.Flags().StringVar(&dictateDevice, "device", "", "audio input device name (see 'voxnote devices')")
}

func runDictate(cmd *cobra.Command, args []string) error {
	settings, err := dictation.LoadSettings()
	if err != nil {
		printError("failed to load settings", err)
		// Defaults are still usable
	}

	if dictateServer != "" {
		settings.ServerURL = dictateServer
	}
	if dictateSliceLength > 0 {
		settings.SliceLengthMs = dictation.ClampSliceLength(dictateSliceLength)
	}
	if dictateDevice != "" {
		settings.InputDevice = dictateDevice
	}

	if err := dictation.SaveSettings(settings); err != nil {
		printError("failed to save settings", err)
	}

	return dictation.Run(settings)
}
