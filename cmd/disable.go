package cmd

import (
	"fmt"

	"github.com/andresmejia3/faceguard/internal/service"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable <user-id>",
	Short: "Delete a user's face template",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lk, err := newLocker(cmd.Context())
		if err != nil {
			utils.Die("Failed to connect to redis", err, nil)
		}
		// Disable never calls the engine, so none is started.
		svc := service.New(nil, DB, lk, Cfg.Policy, service.Options{})
		if err := svc.Disable(cmd.Context(), args[0]); err != nil {
			utils.Die("Failed to disable face authentication", err, nil)
		}
		fmt.Printf("🗑️  Face authentication disabled for %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(disableCmd)
}
