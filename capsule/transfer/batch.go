package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/capsulehq/timecapsule/capsule"
)

// DefaultConcurrency bounds how many files are sealed at once.
const DefaultConcurrency = 4

// Sealer seals one piece of content. *capsule.Client satisfies it.
type Sealer interface {
	Seal(ctx context.Context, content []byte, owner, capsuleID string, cond capsule.UnlockCondition) (capsule.SealResult, error)
}

// BatchOptions configures a bulk seal run.
type BatchOptions struct {
	// Owner is the ledger identity sealing the files.
	Owner string
	// Condition gates every capsule in the batch.
	Condition capsule.UnlockCondition
	// Compress LZ4-compresses each file before encryption when it helps.
	Compress bool
	// Concurrency bounds parallel seals; zero means DefaultConcurrency.
	Concurrency int
	// MaxFileSize caps individual files; zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// BatchResult is the per-file outcome of a bulk seal. Exactly one of Sealed
// or Err is meaningful.
type BatchResult struct {
	File       FileInfo
	CapsuleID  string
	Compressed bool
	Sealed     capsule.SealResult
	Err        error
}

// SealFiles seals every file concurrently, bounded by opts.Concurrency. One
// file failing never aborts the rest; results are positionally aligned with
// files and carry per-file errors.
func SealFiles(ctx context.Context, s Sealer, files []FileInfo, opts BatchOptions) ([]BatchResult, error) {
	if opts.Owner == "" {
		return nil, fmt.Errorf("transfer: batch owner is required")
	}
	if opts.Condition == nil {
		return nil, fmt.Errorf("transfer: batch unlock condition is required")
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]BatchResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = sealOne(ctx, s, f, opts)
			return nil
		})
	}
	// Workers never return errors; Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func sealOne(ctx context.Context, s Sealer, f FileInfo, opts BatchOptions) BatchResult {
	res := BatchResult{File: f, CapsuleID: capsuleIDForFile(f)}

	content, err := ReadFile(f.Path, opts.MaxFileSize)
	if err != nil {
		res.Err = err
		return res
	}
	if opts.Compress {
		content, res.Compressed = MaybeCompress(content, CompressionDefault)
	}

	sealed, err := s.Seal(ctx, content, opts.Owner, res.CapsuleID, opts.Condition)
	if err != nil {
		res.Err = err
		return res
	}
	res.Sealed = sealed
	return res
}

// capsuleIDForFile derives a stable human-readable capsule identifier from
// the file name.
func capsuleIDForFile(f FileInfo) string {
	base := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	return "file-" + base
}
