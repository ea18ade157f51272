package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cartoonify/internal/domain"
	"cartoonify/internal/entitlement"
	"cartoonify/internal/flow"
)

func createCmd() *cobra.Command {
	var (
		imageRef  string
		styleID   string
		intensity float64
		save      bool
		share     string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Run one creation from image to result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl := appCtx.Controller
			id := ctrl.NewSession().ID
			defer func() { _ = ctrl.End(context.Background(), id) }()

			if _, err := ctrl.ProvideImage(ctx, id, flow.ImageRef(imageRef)); err != nil {
				return err
			}
			_, decision, err := ctrl.SelectStyle(ctx, id, domain.StyleID(styleID), intensity)
			if err != nil {
				return err
			}
			if decision == entitlement.RequiresUpgrade {
				return fmt.Errorf("style %q: %w (run `cartoonify unlock %s` or `cartoonify subscribe`)", styleID, domain.ErrRequiresUpgrade, styleID)
			}

			waitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			s, err := ctrl.Await(waitCtx, id)
			if err != nil {
				return err
			}
			if s.Status == domain.SessionStatusFailed {
				return fmt.Errorf("%w: %s", domain.ErrProcessingFailed, s.FailureReason)
			}

			out := map[string]any{"session": s}
			if save {
				res, err := ctrl.Save(ctx, id)
				if err != nil {
					return err
				}
				out["gallery_key"] = res.GalleryKey
				out["session"] = res.Session
				if res.Interstitial {
					if _, err := ctrl.DismissInterstitial(id); err != nil {
						return err
					}
				}
			}
			if share != "" {
				res, err := ctrl.Share(ctx, id, share)
				if errors.Is(err, flow.ErrUnknownPlatform) {
					return fmt.Errorf("%w (choose one of %v)", err, flow.Platforms)
				}
				if err != nil {
					return err
				}
				out["session"] = res.Session
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&imageRef, "image", "i", "", "reference of the source image")
	cmd.Flags().StringVarP(&styleID, "style", "s", "anime", "style id")
	cmd.Flags().Float64Var(&intensity, "intensity", domain.DefaultIntensity, "style intensity in [0,1]")
	cmd.Flags().BoolVar(&save, "save", false, "save the result to the gallery")
	cmd.Flags().StringVar(&share, "share", "", "share the result to a platform")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait for processing")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
