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

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled users",
	Run: func(cmd *cobra.Command, args []string) {
		templates, err := DB.ListTemplates(cmd.Context())
		if err != nil {
			utils.Die("Failed to list templates", err, nil)
		}
		printTemplates(os.Stdout, templates)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printTemplates(out io.Writer, templates []types.TemplateInfo) {
	if len(templates) == 0 {
		fmt.Fprintln(out, "No users enrolled.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "USER\tTEMPLATE\tDIM\tSAMPLES\tENROLLED")
	fmt.Fprintln(w, "----\t--------\t---\t-------\t--------")

	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", t.OwnerID, t.TemplateID, t.Dimension, t.SampleCount, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
