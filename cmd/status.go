package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tally/internal/config"
	"github.com/fakeyudi/tally/internal/session"
	"github.com/fakeyudi/tally/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded time from the live dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := cfg.ResolveDataDir()
		if err != nil {
			return err
		}
		st, err := store.Open(config.TrackingPath(dataDir))
		if err != nil {
			return err
		}

		snap := st.Get()
		now := time.Now()

		g := snap.Global
		cmd.Printf("All projects: %s today, %s this week, %s this month, %s total\n",
			clock(session.Duration(g.TodaySeconds(now))),
			clock(session.Duration(g.WeekSeconds(now))),
			clock(session.Duration(g.MonthSeconds(now))),
			clock(session.Duration(g.TotalTime)))

		if len(snap.Projects) == 0 {
			cmd.Println("No projects tracked yet.")
			return nil
		}

		ids := make([]string, 0, len(snap.Projects))
		for id := range snap.Projects {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			p := snap.Projects[id]
			name := p.Name
			if name == "" {
				name = id
			}
			cmd.Printf("%s: %s today, %s total\n", name,
				clock(session.Duration(p.TodaySeconds(now))),
				clock(session.Duration(p.TotalTime)))
		}
		return nil
	},
}

// clock formats a duration as h:mm:ss for status output.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
