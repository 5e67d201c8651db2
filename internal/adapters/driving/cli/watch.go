package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/watcher"
	"github.com/custodia-labs/meetsight/internal/core/services"
)

var (
	watchExisting bool
	watchSettle   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest transcripts and recordings dropped into a directory",
	Long: `Watch a directory and ingest every new transcript (.txt, .md, .vtt, ...) or
recording (.wav, .mp3, .m4a, ...) once it stops changing. The meeting id of
each ingested file is printed.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also ingest files already in the directory")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watcher.DefaultSettleDelay, "quiet period before a file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	w, err := watcher.New(args[0], b.meetings,
		watcher.WithExisting(watchExisting),
		watcher.WithSettleDelay(watchSettle),
		watcher.WithNormaliser(b.formats),
		watcher.WithResultHandler(func(r watcher.Result) {
			if r.Err != nil {
				cmd.PrintErrf("%s: %s\n", r.Path, services.PublicMessage(r.Err))
				return
			}
			failed := 0
			for _, o := range r.Summary.Insights {
				if o.Failed() {
					failed++
				}
			}
			if failed > 0 {
				cmd.Printf("%s: meeting %s (%d insight kinds unavailable)\n", r.Path, r.Summary.MeetingID, failed)
				return
			}
			cmd.Printf("%s: meeting %s\n", r.Path, r.Summary.MeetingID)
		}),
	)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
