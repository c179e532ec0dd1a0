package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/server"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question about the sales data",
	Long: `Answers a natural-language question such as "Which weave sold the most in
May 2025?". Pass --session to continue a conversation so follow-ups like
"what about linen" resolve against the previous question.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("session", "", "session to continue (a new one is started when empty)")
	askCmd.Flags().Bool("json", false, "output the full answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ans, err := a.engine.Ask(ctx, strings.Join(args, " "), sessionID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	printAnswer(os.Stdout, ans)
	return nil
}

// printAnswer writes an answer for the terminal followed by a footer with
// the session to continue.
func printAnswer(w io.Writer, ans *query.Answer) {
	fmt.Fprint(w, server.Markdown(ans))
	footer := fmt.Sprintf("session %s · %s", ans.SessionID, ans.Strategy)
	if ans.Effective != "" && ans.Effective != ans.Question {
		footer += fmt.Sprintf(" · answered as %q", ans.Effective)
	}
	fmt.Fprintf(w, "\n(%s)\n", footer)
}
