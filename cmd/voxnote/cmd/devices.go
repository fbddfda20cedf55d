package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxnote/voxnote/internal/dictation/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.ListInputDevices()
		if err != nil {
			printError("failed to list devices", err)
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No audio input devices found")
			return nil
		}

		fmt.Println("Audio input devices:")
		for _, dev := range devices {
			marker := "  "
			if dev.IsDefault {
				marker = "* "
			}
			fmt.Printf("%s%s (%d ch, %.0f Hz)\n", marker, dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate)
		}
		fmt.Println("\n* = system default")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
