package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule/transfer"
)

var unlockOpts struct {
	caller string
	output string
	raw    bool
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <capsule-id>",
	Short: "Retrieve and decrypt a capsule's content",
	Long: `unlock checks ownership and the unlock condition, downloads the
sealed envelope, verifies its hash against the ledger record, and decrypts
it. Content sealed with --compress is decompressed transparently; --raw
skips that.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if unlockOpts.caller == "" {
			return errors.New("--caller is required")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.UnlockByID(cmd.Context(), args[0], unlockOpts.caller)
		if err != nil {
			return err
		}

		content := res.Content
		if !unlockOpts.raw {
			content, err = transfer.Restore(content)
			if err != nil {
				return fmt.Errorf("decompress content: %w", err)
			}
		}

		if unlockOpts.output != "" {
			if err := os.WriteFile(unlockOpts.output, content, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s (%s)\n",
				len(content), unlockOpts.output, res.ContentType)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	},
}

func init() {
	f := unlockCmd.Flags()
	f.StringVar(&unlockOpts.caller, "caller", "", "wallet address performing the unlock")
	f.StringVarP(&unlockOpts.output, "output", "o", "", "write content to this file instead of stdout")
	f.BoolVar(&unlockOpts.raw, "raw", false, "do not decompress LZ4-framed content")
	rootCmd.AddCommand(unlockCmd)
}
