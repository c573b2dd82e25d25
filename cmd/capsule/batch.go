package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule"
	"github.com/capsulehq/timecapsule/capsule/transfer"
)

var batchOpts struct {
	owner       string
	unlockTime  string
	extensions  []string
	recursive   bool
	compress    bool
	concurrency int
}

var batchCmd = &cobra.Command{
	Use:   "seal-dir <directory>",
	Short: "Seal every file in a directory as its own capsule",
	Long: `seal-dir scans a directory and seals each file concurrently under
the same time-lock condition. Capsule identifiers are derived from file
names. A file failing to seal does not stop the rest; failures are reported
at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchOpts.owner == "" {
			return errors.New("--owner is required")
		}
		at, err := time.Parse(time.RFC3339, batchOpts.unlockTime)
		if err != nil {
			return fmt.Errorf("parse --unlock-time: %w", err)
		}

		files, err := transfer.Scan(args[0], transfer.ScanOptions{
			Extensions: batchOpts.extensions,
			Recursive:  batchOpts.recursive,
		})
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return errors.New("no files matched")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		results, err := transfer.SealFiles(cmd.Context(), client, files, transfer.BatchOptions{
			Owner:       batchOpts.owner,
			Condition:   capsule.TimeLock{UnlockTimeMs: at.UnixMilli()},
			Compress:    batchOpts.compress,
			Concurrency: batchOpts.concurrency,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s: %v\n", r.File.Name, r.Err)
				continue
			}
			fmt.Fprintf(out, "ok   %s -> %s (cid %s)\n", r.File.Name, r.CapsuleID, r.Sealed.CID)
		}
		fmt.Fprintf(out, "%d sealed, %d failed\n", len(results)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchOpts.owner, "owner", "", "owner wallet address")
	f.StringVar(&batchOpts.unlockTime, "unlock-time", "", "unlock time as RFC3339 (required)")
	f.StringSliceVar(&batchOpts.extensions, "ext", nil, "only seal files with these extensions")
	f.BoolVar(&batchOpts.recursive, "recursive", false, "descend into subdirectories")
	f.BoolVar(&batchOpts.compress, "compress", false, "LZ4-compress content before encryption")
	f.IntVar(&batchOpts.concurrency, "concurrency", transfer.DefaultConcurrency, "parallel seal operations")
	rootCmd.AddCommand(batchCmd)
}
