package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tally/internal/archive"
	"github.com/fakeyudi/tally/internal/config"
	"github.com/fakeyudi/tally/internal/session"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect monthly session archives",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived months",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := cfg.ResolveDataDir()
		if err != nil {
			return err
		}
		entries, err := os.ReadDir(config.ArchiveDir(dataDir))
		if err != nil {
			if os.IsNotExist(err) {
				cmd.Println("no archives yet")
				return nil
			}
			return err
		}

		var names []string
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".json") {
				names = append(names, strings.TrimSuffix(e.Name(), ".json"))
			}
		}
		sort.Strings(names)
		if len(names) == 0 {
			cmd.Println("no archives yet")
			return nil
		}
		for _, n := range names {
			cmd.Println(n)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <YYYY-MM>",
	Short: "Show one month's archived sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := time.Parse("2006-01", args[0])
		if err != nil {
			return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
		}

		dataDir, err := cfg.ResolveDataDir()
		if err != nil {
			return err
		}
		arch := archive.NewStore(config.ArchiveDir(dataDir)).Load(month.Year(), month.Month())
		if arch == nil {
			cmd.Printf("no archive for %s\n", args[0])
			return nil
		}

		cmd.Printf("Archive %s (written %s)\n", arch.Month,
			arch.LastModifiedAt.Format("2006-01-02 15:04"))
		cmd.Printf("Global: %d session(s), %s\n",
			len(arch.GlobalSessions), clock(session.Duration(sumDurations(arch.GlobalSessions))))

		ids := make([]string, 0, len(arch.ProjectSessions))
		for id := range arch.ProjectSessions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ps := arch.ProjectSessions[id]
			name := ps.ProjectName
			if name == "" {
				name = id
			}
			cmd.Printf("%s: %d session(s), %s\n", name,
				len(ps.Sessions), clock(session.Duration(sumDurations(ps.Sessions))))
		}
		return nil
	},
}

func sumDurations(sessions []session.Session) float64 {
	var total float64
	for _, s := range sessions {
		total += s.Duration
	}
	return total
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	rootCmd.AddCommand(archiveCmd)
}
