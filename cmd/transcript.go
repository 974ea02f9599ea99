package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// transcriptCmd represents the transcript command
var transcriptCmd = &cobra.Command{
	Use:   "transcript [YouTube URL or ID]",
	Short: "Print a video's transcript",
	Example: `  # Print transcript from YouTube captions
  ytcurate transcript "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytcurate transcript tAP1eZYEuKA

  # Include segment timestamps
  ytcurate transcript tAP1eZYEuKA --timestamps`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		raw, err := fetchTranscript(cmd, app, args[0])
		if err != nil {
			return err
		}

		timestamps, _ := cmd.Flags().GetBool("timestamps")
		var out strings.Builder
		if timestamps {
			for _, seg := range raw.Segments {
				fmt.Fprintf(&out, "[%7.2f] %s\n", seg.Start, seg.Text)
			}
		} else {
			out.WriteString(raw.FullText)
			out.WriteByte('\n')
		}

		if output, _ := cmd.Flags().GetString("output"); output != "" {
			if err := os.WriteFile(output, []byte(out.String()), 0644); err != nil {
				return fmt.Errorf("writing transcript to %s: %w", output, err)
			}
			if !config.Quiet {
				fmt.Printf("Transcript saved to %s\n", output)
			}
			return nil
		}

		fmt.Print(out.String())
		return nil
	},
}

// fetchTranscript retrieves a transcript for the given video URL or ID.
func fetchTranscript(cmd *cobra.Command, app *internal.App, arg string) (*internal.RawTranscript, error) {
	videoID, err := internal.ParseVideoArg(arg)
	if err != nil {
		return nil, err
	}
	return app.GetTranscript(cmd.Context(), videoID)
}

func init() {
	transcriptCmd.Flags().Bool("timestamps", false, "Print segment start times")
	transcriptCmd.Flags().StringP("output", "o", "", "Write the transcript to a file instead of stdout")
	rootCmd.AddCommand(transcriptCmd)
}
