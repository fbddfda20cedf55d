package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voxnote/voxnote/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "voxnote",
	Short: "VoxNote - Chunked speech dictation",
	Long: `VoxNote records dictation in fixed-length audio slices, transcribes
them server-side while you keep talking, and merges the results into a
single transcript.

Commands:
  serve    - Run the transcription server (HTTP :8080)
  dictate  - Record from the microphone and stream slices to the server
  devices  - List available audio input devices`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; environment variables win either way
		godotenv.Load()

		level := "info"
		if verbose {
			level = "debug"
		}
		logging.Setup(logging.Config{Level: level, Pretty: true})
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/voxnote.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
