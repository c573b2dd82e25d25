package capsule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/capsulehq/timecapsule/capsule/crypto"
	"github.com/capsulehq/timecapsule/capsule/errs"
	"github.com/capsulehq/timecapsule/capsule/ipfs"
	"github.com/capsulehq/timecapsule/capsule/ledger"
)

// Client composes the encryption protocol, content-addressed storage and the
// ledger read surface into the seal, query and unlock operations. Construct
// one per configuration; it is safe for concurrent use.
type Client struct {
	cfg   Config
	store ipfs.Store
	query *Query
	log   *slog.Logger
	now   func() time.Time
}

// New builds a Client from cfg. When cfg.PinningURL is set, uploads go
// through the hosted pinning service instead of a node API.
func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var store ipfs.Store
	if cfg.PinningURL != "" {
		store = ipfs.NewPinningClient(cfg.PinningURL, cfg.GatewayURL, cfg.PinningKey, ipfs.Options{
			HTTPClient: cfg.HTTPClient,
			Retry:      cfg.retryPolicy(),
			Logger:     log,
		})
	} else {
		store = ipfs.NewClient(cfg.IPFSURL, ipfs.Options{
			HTTPClient: cfg.HTTPClient,
			Retry:      cfg.retryPolicy(),
			Logger:     log,
		})
	}

	reader := ledger.NewClient(cfg.RPCURL, cfg.HTTPClient)
	return &Client{
		cfg:   cfg,
		store: store,
		query: NewQuery(reader),
		log:   log,
		now:   time.Now,
	}
}

// NewWithBackends builds a Client over explicit backends. Tests and embedders
// use it to swap the storage or ledger implementation.
func NewWithBackends(cfg Config, store ipfs.Store, reader ledger.Reader) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:   cfg,
		store: store,
		query: NewQuery(reader),
		log:   log,
		now:   time.Now,
	}
}

// EncryptContent seals plaintext for a capsule without touching storage.
// The condition's time component (if any) is bound into the derived key.
func (c *Client) EncryptContent(content []byte, owner, capsuleID string, cond UnlockCondition) (EncryptedPayload, error) {
	return crypto.Encrypt(content, owner, capsuleID, unlockTimestamp(cond))
}

// DecryptContent is the inverse of EncryptContent for a payload whose salt
// and nonce are already in hand.
func (c *Client) DecryptContent(p EncryptedPayload, owner, capsuleID string, cond UnlockCondition) ([]byte, error) {
	return crypto.Decrypt(p.Ciphertext, p.Nonce, owner, capsuleID, unlockTimestamp(cond), p.Salt)
}

// SealResult describes sealed-and-stored content. StoredHash is the BLAKE3
// hash of the stored envelope bytes; it is the value to record on the ledger
// so later downloads can be verified end to end. ContentHash is the hash of
// the plaintext.
type SealResult struct {
	CID         string
	Size        int64
	StoredHash  []byte
	ContentHash []byte
}

// Seal encrypts content and uploads the resulting envelope to storage. The
// ledger entry itself is an external transaction; Seal returns everything it
// needs (CID and stored-object hash).
func (c *Client) Seal(ctx context.Context, content []byte, owner, capsuleID string, cond UnlockCondition) (SealResult, error) {
	payload, err := c.EncryptContent(content, owner, capsuleID, cond)
	if err != nil {
		return SealResult{}, err
	}
	envelope, err := crypto.EncodeEnvelope(payload)
	if err != nil {
		return SealResult{}, err
	}

	added, err := c.store.Add(ctx, envelope)
	if err != nil {
		return SealResult{}, err
	}
	c.log.Info("capsule sealed", "capsule", capsuleID, "cid", added.CID, "size", added.Size)
	return SealResult{
		CID:         added.CID,
		Size:        added.Size,
		StoredHash:  added.Hash[:],
		ContentHash: payload.ContentHash[:],
	}, nil
}

// CapsulesByOwner returns one page of owner's capsules.
func (c *Client) CapsulesByOwner(ctx context.Context, owner string, opts PageOptions) (CapsulePage, error) {
	return c.query.ByOwner(ctx, owner, opts)
}

// AllCapsulesByOwner walks every page for owner.
func (c *Client) AllCapsulesByOwner(ctx context.Context, owner string) ([]Capsule, error) {
	return c.query.AllByOwner(ctx, owner)
}

// CapsuleByID fetches a single capsule.
func (c *Client) CapsuleByID(ctx context.Context, id string) (Capsule, error) {
	return c.query.ByID(ctx, id)
}

// CapsulesByIDs batch-resolves capsules, positionally aligned with ids.
func (c *Client) CapsulesByIDs(ctx context.Context, ids []string) ([]*Capsule, error) {
	return c.query.ByIDs(ctx, ids)
}

// CapsuleStatus evaluates the capsule's unlock condition against the
// current time.
func (c *Client) CapsuleStatus(cp Capsule) Status {
	return cp.Status(c.now())
}

// Unlock retrieves and decrypts a capsule's content for caller. It fails
// with an Authorization error when caller is not the owner, a Precondition
// error carrying the status message when the condition is not met, a
// HashMismatch error when the downloaded bytes do not match the recorded
// hash, and an Authentication error when decryption fails. Content is only
// ever returned after every check passes.
func (c *Client) Unlock(ctx context.Context, cp Capsule, caller string) (UnlockResult, error) {
	if caller != cp.Owner {
		return UnlockResult{}, errs.New(errs.KindAuthorization,
			fmt.Sprintf("caller %s does not own capsule %s", caller, cp.ID))
	}

	status := cp.Status(c.now())
	if !status.CanUnlock {
		return UnlockResult{}, errs.New(errs.KindPrecondition,
			fmt.Sprintf("capsule %s cannot be unlocked: %s", cp.ID, status.Message))
	}

	downloaded, err := c.store.Cat(ctx, cp.CID, cp.ContentHash)
	if err != nil {
		return UnlockResult{}, err
	}

	payload, err := crypto.DecodeEnvelope(downloaded.Content)
	if err != nil {
		return UnlockResult{}, err
	}

	plaintext, err := c.DecryptContent(payload, cp.Owner, cp.ID, cp.Condition)
	if err != nil {
		return UnlockResult{}, err
	}

	c.log.Info("capsule unlocked", "capsule", cp.ID, "cid", cp.CID, "size", len(plaintext))
	return UnlockResult{
		CapsuleID:   cp.ID,
		Content:     plaintext,
		ContentType: http.DetectContentType(plaintext),
		CID:         cp.CID,
	}, nil
}

// UnlockByID is Unlock over a freshly fetched capsule record.
func (c *Client) UnlockByID(ctx context.Context, id, caller string) (UnlockResult, error) {
	cp, err := c.query.ByID(ctx, id)
	if err != nil {
		return UnlockResult{}, err
	}
	return c.Unlock(ctx, cp, caller)
}
