package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	"github.com/frahmantamala/ad-user-manager/pkg/logger"
	"github.com/spf13/cobra"
)

var taskLogCmd = &cobra.Command{
	Use:   "tasklog",
	Short: "Task log commands",
	Long:  `Inspect the outcomes recorded for executed tasks`,
}

var showTaskLogCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the task log",
	Long:  `Print every recorded task outcome, oldest first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTaskLog(cmd.Context())
	},
}

var (
	taskLogJSON  bool
	taskLogLimit int
)

func showTaskLog(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	initLogger(cfg)
	lg := logger.LoggerWrapper()

	store, err := newTaskLogStore(cfg, lg)
	if err != nil {
		return err
	}
	defer store.close()

	entries, err := store.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read task log: %w", err)
	}
	if taskLogLimit > 0 && len(entries) > taskLogLimit {
		entries = entries[len(entries)-taskLogLimit:]
	}

	return printTaskLog(os.Stdout, entries, taskLogJSON)
}

func printTaskLog(out io.Writer, entries []tasklog.Entry, asJSON bool) error {
	if asJSON {
		if entries == nil {
			entries = []tasklog.Entry{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tTYPE\tUSERNAME\tSTATUS\tLABEL\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Type, e.Username, e.Status, e.Label, e.Message)
	}
	return tw.Flush()
}

func init() {
	showTaskLogCmd.Flags().BoolVar(&taskLogJSON, "json", false, "print entries as JSON")
	showTaskLogCmd.Flags().IntVarP(&taskLogLimit, "limit", "n", 0, "print only the last n entries")

	taskLogCmd.AddCommand(showTaskLogCmd)
}
