package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize salesiq configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to connect salesiq to your sales data and writes a .salesiq.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RunWizard(cfgFile); err != nil {
			return err
		}
		fmt.Println("Try: salesiq ask \"Which weave sold the most this month?\"")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
