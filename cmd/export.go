package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export [question]",
	Short: "Answer a question and save the result as an xlsx workbook",
	Long:  `Answers the question and writes a workbook with the answer, the full ranking when there is one and every order the figures were computed from.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		out, _ := cmd.Flags().GetString("output")
		sessionID, _ := cmd.Flags().GetString("session")

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		ans, err := a.engine.Ask(ctx, strings.Join(args, " "), sessionID)
		if err != nil {
			return err
		}
		if err := report.WriteFile(out, ans); err != nil {
			return err
		}

		fmt.Println(ans.Text())
		fmt.Printf("\nWorkbook written to %s (%d rows)\n", out, ans.RowCount())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "salesiq-answer.xlsx", "workbook path")
	exportCmd.Flags().String("session", "", "session to continue")
	rootCmd.AddCommand(exportCmd)
}
