package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/tally/internal/archive"
	"github.com/fakeyudi/tally/internal/config"
	"github.com/fakeyudi/tally/internal/store"
	"github.com/fakeyudi/tally/internal/track"
	"github.com/fakeyudi/tally/internal/tui"
	"github.com/fakeyudi/tally/internal/watch"
)

var noUI bool

var runCmd = &cobra.Command{
	Use:   "run [dir ...]",
	Short: "Track active time for one or more project directories",
	Long: `Run starts the tracker and watches the given directories (default: the
current directory) for file activity. Each directory is one project; time is
also aggregated globally across all of them. Stop with Ctrl-C or q.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := args
		if len(dirs) == 0 {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			dirs = []string{cwd}
		}

		dataDir, err := cfg.ResolveDataDir()
		if err != nil {
			return err
		}
		st, err := store.Open(config.TrackingPath(dataDir))
		if err != nil {
			return err
		}
		st.SetDebounce(time.Duration(cfg.SaveDebounce))
		arch := archive.NewStore(config.ArchiveDir(dataDir))

		tr := track.New(st, arch, cfg.TrackConfig())
		tr.Init()
		defer tr.Shutdown()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		for _, dir := range dirs {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if info, err := os.Stat(abs); err != nil || !info.IsDir() {
				return fmt.Errorf("not a directory: %s", dir)
			}
			tr.SetProjectName(abs, filepath.Base(abs))
			tr.Start(abs)
			go func(dir string) {
				if err := watch.Watch(ctx, dir, dir, tr, cfg.IgnorePatterns); err != nil {
					log.Printf("watching %s: %v", dir, err)
				}
			}(abs)
		}

		if !noUI && term.IsTerminal(os.Stdout.Fd()) {
			// The timer view owns the foreground; quitting it stops tracking.
			err := tui.Run(tr)
			cancel()
			return err
		}

		cmd.Printf("tracking %d project(s); Ctrl-C to stop\n", len(dirs))
		<-ctx.Done()
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&noUI, "no-ui", false, "disable the timer view, log to stdout only")
	rootCmd.AddCommand(runCmd)
}
