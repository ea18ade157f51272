package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"cartoonify/internal/domain"
)

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <style>",
		Short: "Record a completed rewarded ad for a premium style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := appCtx.Catalog.Lookup(domain.StyleID(args[0]))
			if err != nil {
				return err
			}
			if !style.IsPremium {
				return fmt.Errorf("style %q is free", style.ID)
			}
			if err := appCtx.Ledger.RewardAdCompleted(cmd.Context(), style.ID); err != nil {
				return err
			}
			return printEntitlements(cmd)
		},
	}
}

func subscribeCmd() *cobra.Command {
	var cancel bool
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Record a premium subscription purchase",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cancel {
				err = appCtx.Ledger.CancelSubscription(cmd.Context())
			} else {
				err = appCtx.Ledger.Subscribe(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printEntitlements(cmd)
		},
	}
	cmd.Flags().BoolVar(&cancel, "cancel", false, "record that the subscription lapsed")
	return cmd
}

func entitlementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entitlements",
		Short: "Show current entitlements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printEntitlements(cmd)
		},
	}
}

func printEntitlements(cmd *cobra.Command) error {
	state := appCtx.Ledger.State()
	unlocks := state.UnlockedStyles()
	slices.Sort(unlocks)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"is_premium_subscriber": state.IsPremiumSubscriber,
		"temporary_unlocks":     unlocks,
		"persistent":            appCtx.Config.PersistenceEnabled(),
	})
}
