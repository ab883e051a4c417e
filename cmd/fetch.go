package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFetchCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Force one refresh of the release snapshot and wait for it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}

			before, _ := a.Cache.LastFetch()
			a.Cache.Get(cmd.Context(), true)

			// Get never blocks on the crawl; poll the coordinator until the
			// background refresh it scheduled has settled.
			deadline := time.Now().Add(timeout)
			for a.Cache.Refreshing() {
				if time.Now().After(deadline) {
					return fmt.Errorf("refresh did not finish within %s", timeout)
				}
				time.Sleep(200 * time.Millisecond)
			}

			after, ok := a.Cache.LastFetch()
			if !ok || !after.After(before) {
				return fmt.Errorf("refresh finished without updating the snapshot")
			}

			snap := a.Cache.Get(cmd.Context(), false)
			a.Logger.Info("refresh complete",
				zap.Int("releases", snap.TotalReleases),
				zap.Int("trending", snap.TrendingReleases),
				zap.Time("fetched_at", snap.LastUpdated),
			)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to wait for the refresh")
	return cmd
}
