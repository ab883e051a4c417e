package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpcomingCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Print trending releases dropping in the next N days.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = a.Config.Cache.DefaultUpcomingDays
			}

			items := a.Cache.Upcoming(cmd.Context(), days, false)
			if len(items) == 0 {
				fmt.Printf("No trending releases in the next %d days.\n", days)
				return nil
			}
			for _, item := range items {
				fmt.Printf("%s  %s\n", item.ReleaseDate, item.Markdown())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days to look ahead (default from config)")
	return cmd
}
