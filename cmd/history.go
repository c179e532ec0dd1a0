package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/audit"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail of answered questions",
	Long:  `Lists recent questions with the intent, strategy and problem code of each answer. Use --stats for per-strategy totals and --prune to drop old entries.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("session", "", "only show this session")
	historyCmd.Flags().String("strategy", "", "only show answers from this strategy")
	historyCmd.Flags().String("problem", "", "only show answers with this problem code")
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().Bool("json", false, "output entries as JSON")
	historyCmd.Flags().Bool("stats", false, "show answer counts per strategy")
	historyCmd.Flags().Duration("prune", 0, "delete entries older than this duration, e.g. 720h")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if prune, _ := cmd.Flags().GetDuration("prune"); prune > 0 {
		n, err := a.audit.DeleteBefore(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d entries older than %s.\n", n, prune)
		return nil
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		counts, err := a.audit.CountByStrategy(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STRATEGY\tANSWERS")
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%d\n", c.Strategy, c.Count)
		}
		return w.Flush()
	}

	filter := audit.QueryFilter{}
	filter.SessionID, _ = cmd.Flags().GetString("session")
	filter.Strategy, _ = cmd.Flags().GetString("strategy")
	filter.ProblemCode, _ = cmd.Flags().GetString("problem")
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	entries, err := a.audit.Query(ctx, filter)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No questions recorded yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSESSION\tSTRATEGY\tPROBLEM\tQUESTION")
	for _, e := range entries {
		problem := e.ProblemCode
		if problem == "" {
			problem = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"), shortID(e.SessionID), e.Strategy, problem, truncate(e.Question, 60))
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
