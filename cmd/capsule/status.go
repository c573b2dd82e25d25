package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <capsule-id>",
	Short: "Show a capsule's unlock status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		c, err := client.CapsuleByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		s := client.CapsuleStatus(c)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "capsule:   %s\n", c.ID)
		fmt.Fprintf(out, "owner:     %s\n", c.Owner)
		fmt.Fprintf(out, "cid:       %s\n", c.CID)
		fmt.Fprintf(out, "created:   %s\n", time.UnixMilli(c.CreatedAt).UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "condition: %s\n", describeCondition(c.Condition))
		fmt.Fprintf(out, "status:    %s\n", s.Message)
		if s.CanUnlock {
			fmt.Fprintf(out, "\nunlock with: capsule unlock %s --caller %s\n", c.ID, c.Owner)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
