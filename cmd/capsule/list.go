package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule"
)

var listOpts struct {
	limit      int
	cursor     string
	all        bool
	unlockable bool
}

var listCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List capsules owned by an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var capsules []capsule.Capsule
		var nextCursor *string
		if listOpts.all {
			capsules, err = client.AllCapsulesByOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
		} else {
			opts := capsule.PageOptions{Limit: listOpts.limit}
			if listOpts.cursor != "" {
				opts.Cursor = &listOpts.cursor
			}
			page, err := client.CapsulesByOwner(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			capsules = page.Capsules
			if page.HasNextPage {
				nextCursor = page.NextCursor
			}
		}

		now := time.Now()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCID\tCONDITION\tSTATUS")
		for _, c := range capsules {
			s := c.Status(now)
			if listOpts.unlockable && !s.CanUnlock {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.CID, describeCondition(c.Condition), s.Message)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if nextCursor != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "more results: --cursor %s\n", *nextCursor)
		}
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.IntVar(&listOpts.limit, "limit", capsule.DefaultPageLimit, "page size")
	f.StringVar(&listOpts.cursor, "cursor", "", "pagination cursor from a previous page")
	f.BoolVar(&listOpts.all, "all", false, "fetch every page")
	f.BoolVar(&listOpts.unlockable, "unlockable", false, "only show capsules that can be unlocked now")
	rootCmd.AddCommand(listCmd)
}
