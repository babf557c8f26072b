package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Show recent enrollment and authentication events for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		attempts, err := DB.ListAttempts(cmd.Context(), args[0], historyLimit)
		if err != nil {
			utils.Die("Failed to read history", err, nil)
		}
		printAttempts(os.Stdout, attempts)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of events to show")
	rootCmd.AddCommand(historyCmd)
}

func printAttempts(out io.Writer, attempts []types.AuthAttempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tOUTCOME\tREASON\tCONFIDENCE")
	fmt.Fprintln(w, "----\t-----\t-------\t------\t----------")

	for _, a := range attempts {
		reason, confidence := a.Reason, "-"
		if reason == "" {
			reason = "-"
		}
		if a.Kind == types.EventAuthenticate && a.Outcome != types.OutcomeError {
			confidence = fmt.Sprintf("%d%%", a.ConfidencePercent)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Kind, a.Outcome, reason, confidence)
	}
	w.Flush()
}
