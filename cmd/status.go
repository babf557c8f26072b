package cmd

import (
	"encoding/json"
	"os"

	"github.com/andresmejia3/faceguard/internal/service"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <user-id>",
	Short: "Show whether face authentication is enabled for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := service.New(nil, DB, nil, Cfg.Policy, service.Options{})
		st, err := svc.Status(cmd.Context(), args[0])
		if err != nil {
			utils.Die("Failed to read status", err, nil)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(st)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
