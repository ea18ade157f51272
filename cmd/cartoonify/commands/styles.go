package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cartoonify/internal/entitlement"
)

func stylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the style catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTIER\tAVAILABLE")
			for _, s := range appCtx.Catalog.All() {
				tier := "free"
				if s.IsPremium {
					tier = "premium"
				}
				ok := appCtx.Ledger.CanUse(s) == entitlement.Allowed
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, s.DisplayName, tier, ok)
			}
			return tw.Flush()
		},
	}
}
