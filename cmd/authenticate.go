package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate <user-id> <image>",
	Short: "Check a live capture against a user's template",
	Long:  "Prints MATCH or NO MATCH with a confidence percentage. Exits with status 2 on NO MATCH.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		image, err := utils.ReadImageFile(args[1])
		if err != nil {
			utils.Die("Failed to read capture", err, nil)
		}

		svc, err := newService(cmd.Context())
		if err != nil {
			utils.Die("Failed to start service", err, nil)
		}

		res, err := svc.Authenticate(cmd.Context(), args[0], image)
		if err != nil {
			utils.Die("Authentication failed", err, nil)
		}

		if !res.IsMatch {
			fmt.Printf("❌ NO MATCH (confidence %d%%)\n", res.ConfidencePercent)
			cleanup()
			os.Exit(2)
		}
		fmt.Printf("✅ MATCH (confidence %d%%)\n", res.ConfidencePercent)
	},
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}
