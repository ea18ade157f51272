package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cartoonify/internal/domain"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past creations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]domain.HistoryEntry, 0)
			for e := range appCtx.History.List() {
				if limit > 0 && len(items) == limit {
					break
				}
				items = append(items, e)
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to print (0 for all)")
	return cmd
}

func galleryCmd() *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List saved creations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if export != "" {
				return exportGallery(cmd, export)
			}
			items, err := appCtx.Gallery.Items(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write saved creations to this zip file")
	return cmd
}

func exportGallery(cmd *cobra.Command, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := appCtx.Gallery.Export(cmd.Context(), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d creations to %s\n", n, path)
	return nil
}
