package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"reminderbot/internal/config"
	"reminderbot/internal/reminder"
	"reminderbot/internal/storage"
	logx "reminderbot/pkg/logx"
	"reminderbot/pkg/tgui"
)

var dbPath string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print stored reminders",
	Long: `Print every persisted reminder without connecting to Telegram.

Examples:
  # Use the storage path from the config
  bot dump --config config.yaml

  # Read a database file directly
  bot dump --db ./data/reminders.db`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dbPath, "db", "", "sqlite file to read (overrides the config)")
}

func runDump(cmd *cobra.Command, _ []string) error {
	scfg := storage.Config{Driver: "sqlite", Path: dbPath}
	if dbPath == "" {
		cfg, err := config.NewManager(cfgPath).Parse()
		if err != nil {
			return err
		}
		scfg = storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: config.DurationOr(cfg.Storage.BusyTimeout, 0),
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	st, err := storage.Open(scfg, logx.NewConsole("WARN"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	rows, err := st.Reminders(ctx)
	if err != nil {
		return err
	}
	return writeDump(cmd, rows, time.Now())
}

func writeDump(cmd *cobra.Command, rows []storage.ReminderRecord, now time.Time) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tUSER\tDEST\tENDS AT\tENDS IN\tTEXT")
	for _, r := range rows {
		dest := fmt.Sprint(r.DestinationID)
		if r.DestinationThread != 0 {
			dest = fmt.Sprintf("%d/%d", r.DestinationID, r.DestinationThread)
		}
		left := r.EndTime - now.Unix()
		in := "due"
		if left > 0 {
			in = reminder.SecondsToStr(left)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.MessageID, r.UserID, dest, reminder.FormatEndsAt(r.EndTime), in, oneLine(tgui.TruncRunes(r.Text, 60)))
	}
	fmt.Fprintf(w, "\n%d reminder(s)\n", len(rows))
	return w.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
