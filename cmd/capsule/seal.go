package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule"
	"github.com/capsulehq/timecapsule/capsule/transfer"
)

var sealOpts struct {
	owner      string
	capsuleID  string
	unlockTime string
	unlockInMs int64
	threshold  int
	price      uint64
	compress   bool
}

var sealCmd = &cobra.Command{
	Use:   "seal <file>",
	Short: "Encrypt a file and upload it to content-addressed storage",
	Long: `seal encrypts a file under a key derived from the owner, capsule id
and unlock time, then uploads the sealed envelope. It prints the CID and the
stored-object hash to record in the capsule's ledger entry.

Exactly one unlock condition must be given:

	capsule seal letter.txt --owner 0xabc --id graduation --unlock-time 2030-06-01T00:00:00Z
	capsule seal will.pdf   --owner 0xabc --id estate --threshold 3
	capsule seal song.mp3   --owner 0xabc --id single --price 1000000
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cond, err := sealCondition()
		if err != nil {
			return err
		}
		if sealOpts.owner == "" {
			return errors.New("--owner is required")
		}
		if sealOpts.capsuleID == "" {
			return errors.New("--id is required")
		}

		content, err := transfer.ReadFile(args[0], 0)
		if err != nil {
			return err
		}
		if sealOpts.compress {
			var did bool
			content, did = transfer.MaybeCompress(content, transfer.CompressionDefault)
			if did {
				fmt.Fprintf(cmd.OutOrStdout(), "compressed to %d bytes\n", len(content))
			}
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		sealed, err := client.Seal(cmd.Context(), content, sealOpts.owner, sealOpts.capsuleID, cond)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cid:          %s\n", sealed.CID)
		fmt.Fprintf(out, "size:         %d\n", sealed.Size)
		fmt.Fprintf(out, "stored hash:  %x\n", sealed.StoredHash)
		fmt.Fprintf(out, "content hash: %x\n", sealed.ContentHash)
		fmt.Fprintf(out, "condition:    %s\n", describeCondition(cond))
		fmt.Fprintln(out, "record the cid and stored hash in the capsule's ledger entry")
		return nil
	},
}

// sealCondition builds the unlock condition from flags; exactly one of the
// three condition flags must be set.
func sealCondition() (capsule.UnlockCondition, error) {
	set := 0
	if sealOpts.unlockTime != "" || sealOpts.unlockInMs > 0 {
		set++
	}
	if sealOpts.threshold > 0 {
		set++
	}
	if sealOpts.price > 0 {
		set++
	}
	if set != 1 {
		return nil, errors.New("exactly one of --unlock-time/--unlock-in-ms, --threshold or --price is required")
	}

	switch {
	case sealOpts.unlockTime != "":
		at, err := time.Parse(time.RFC3339, sealOpts.unlockTime)
		if err != nil {
			return nil, fmt.Errorf("parse --unlock-time: %w", err)
		}
		return capsule.TimeLock{UnlockTimeMs: at.UnixMilli()}, nil
	case sealOpts.unlockInMs > 0:
		return capsule.TimeLock{UnlockTimeMs: time.Now().UnixMilli() + sealOpts.unlockInMs}, nil
	case sealOpts.threshold > 0:
		return capsule.ThresholdApproval{Threshold: sealOpts.threshold}, nil
	default:
		return capsule.Paid{Price: sealOpts.price}, nil
	}
}

func init() {
	f := sealCmd.Flags()
	f.StringVar(&sealOpts.owner, "owner", "", "owner wallet address")
	f.StringVar(&sealOpts.capsuleID, "id", "", "capsule identifier")
	f.StringVar(&sealOpts.unlockTime, "unlock-time", "", "unlock time as RFC3339 (time-lock condition)")
	f.Int64Var(&sealOpts.unlockInMs, "unlock-in-ms", 0, "unlock after this many milliseconds from now")
	f.IntVar(&sealOpts.threshold, "threshold", 0, "required approval count (threshold condition)")
	f.Uint64Var(&sealOpts.price, "price", 0, "required payment amount (payment condition)")
	f.BoolVar(&sealOpts.compress, "compress", false, "LZ4-compress content before encryption")
	rootCmd.AddCommand(sealCmd)
}
