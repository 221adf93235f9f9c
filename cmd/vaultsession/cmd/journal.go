package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jmcleod/vaultsession/config"
	"github.com/jmcleod/vaultsession/journal"
	bboltjournal "github.com/jmcleod/vaultsession/journal/bbolt"
)

const journalFile = "journal.db"

var (
	journalDataDir string
	journalLimit   int
	journalJSON    bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the agent's session lifecycle journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent lifecycle events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(journalDataDir, journalFile)
		store, err := bboltjournal.NewStoreFromFile(path, &bbolt.Options{ReadOnly: true, Timeout: 2 * time.Second})
		if err != nil {
			return fmt.Errorf("opening journal (is the agent holding %s?): %w", path, err)
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if journalJSON {
			return printJSON(out, entries)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tEVENT\tBACKEND\tTOKEN\tTTL\tERROR")
		now := time.Now()
		for _, e := range entries {
			ttl := ""
			if e.TTLSeconds > 0 {
				ttl = (time.Duration(e.TTLSeconds) * time.Second).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
				eventLabel(e.Event), e.Backend, e.Fingerprint, ttl, e.Error)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalListCmd.Flags().StringVar(&journalDataDir, "data-dir", config.Default().Agent.DataDir, "Agent data directory")
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 50, "Maximum entries to show")
	journalListCmd.Flags().BoolVar(&journalJSON, "json", false, "Output as JSON")
}

// eventLabel turns "login_failure" into "Login Failure".
func eventLabel(ev journal.Event) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(ev), "_", " "))
}
