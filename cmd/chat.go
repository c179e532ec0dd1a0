package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/query"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long:  `Opens a prompt where every question shares one session, so follow-ups and repeated questions behave as in a conversation. Type exit or quit to leave.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "session to resume")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("salesiq chat (session %s). Type exit to leave.\n", sessionID)
	fmt.Println("Examples:")
	for _, q := range query.ExampleQuestions {
		fmt.Printf("  - %s\n", q)
	}

	prompt := promptui.Prompt{Label: "Ask"}
	for {
		question, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}

		question = strings.TrimSpace(question)
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		ans, err := a.engine.Ask(ctx, question, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println()
		printAnswer(os.Stdout, ans)
		fmt.Println()
	}
}
