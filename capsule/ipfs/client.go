package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/ipfs/go-cid"

	"github.com/capsulehq/timecapsule/capsule/crypto"
	"github.com/capsulehq/timecapsule/capsule/errs"
	"github.com/capsulehq/timecapsule/capsule/retry"
)

// Store is the content-addressed storage surface the SDK consumes.
type Store interface {
	// Add uploads content with pinning requested and returns its address.
	Add(ctx context.Context, content []byte) (AddResult, error)
	// Cat fetches content by CID. When expectedHash is non-nil the
	// downloaded bytes are re-hashed and a mismatch fails the call.
	Cat(ctx context.Context, cidStr string, expectedHash []byte) (CatResult, error)
	// Exists is a best-effort probe; any error collapses to false.
	Exists(ctx context.Context, cidStr string) bool
}

// AddResult describes an uploaded object. Hash is the locally computed
// BLAKE3 hash of the uploaded bytes, kept for caller-side bookkeeping
// independent of the backend's addressing.
type AddResult struct {
	CID  string
	Size int64
	Hash [crypto.HashSize]byte
}

// CatResult holds downloaded content.
type CatResult struct {
	Content []byte
	Size    int64
}

// Client talks to an IPFS node's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
	log     *slog.Logger
}

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	// HTTPClient is used for all requests. Defaults to http.DefaultClient;
	// callers needing hard deadlines set a Timeout here or cancel via ctx.
	HTTPClient *http.Client
	// Retry is the backoff policy for transient failures.
	Retry retry.Policy
	// Logger receives debug records for uploads and downloads.
	Logger *slog.Logger
}

// NewClient creates a client for the node API at baseURL
// (e.g. "http://127.0.0.1:5001").
func NewClient(baseURL string, opts Options) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    opts.HTTPClient,
		policy:  opts.Retry,
		log:     opts.Logger,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.policy.MaxAttempts == 0 {
		c.policy = retry.DefaultPolicy
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// ValidateCID checks cidStr syntactically. Invalid CIDs fail fast with a
// Validation error and are never retried.
func ValidateCID(cidStr string) (cid.Cid, error) {
	c, err := cid.Decode(cidStr)
	if err != nil {
		return cid.Undef, errs.Wrap(errs.KindValidation,
			fmt.Sprintf("ipfs: invalid cid %q", cidStr), err)
	}
	return c, nil
}

// addResponse is the node's /add reply. Size arrives as a JSON string.
type addResponse struct {
	Hash string      `json:"Hash"`
	Size json.Number `json:"Size"`
}

func (c *Client) Add(ctx context.Context, content []byte) (AddResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return AddResult{}, err
	}
	if _, err := fw.Write(content); err != nil {
		return AddResult{}, err
	}
	if err := mw.Close(); err != nil {
		return AddResult{}, err
	}

	var resp addResponse
	err = c.policy.Do(ctx, func() error {
		return c.postJSON(ctx, "/api/v0/add?pin=true", mw.FormDataContentType(), body.Bytes(), &resp)
	})
	if err != nil {
		return AddResult{}, err
	}

	size, _ := resp.Size.Int64()
	c.log.Debug("ipfs add", "cid", resp.Hash, "size", size)
	return AddResult{
		CID:  resp.Hash,
		Size: size,
		Hash: crypto.HashContent(content),
	}, nil
}

func (c *Client) Cat(ctx context.Context, cidStr string, expectedHash []byte) (CatResult, error) {
	decoded, err := ValidateCID(cidStr)
	if err != nil {
		return CatResult{}, err
	}

	var content []byte
	err = c.policy.Do(ctx, func() error {
		var ferr error
		content, ferr = c.postRaw(ctx, "/api/v0/cat?arg="+url.QueryEscape(cidStr))
		return ferr
	})
	if err != nil {
		return CatResult{}, err
	}

	if err := verifyDownload(decoded, content, expectedHash); err != nil {
		return CatResult{}, err
	}
	c.log.Debug("ipfs cat", "cid", cidStr, "size", len(content))
	return CatResult{Content: content, Size: int64(len(content))}, nil
}

// statResponse is the node's /object/stat reply.
type statResponse struct {
	CumulativeSize int64 `json:"CumulativeSize"`
}

func (c *Client) Exists(ctx context.Context, cidStr string) bool {
	if _, err := ValidateCID(cidStr); err != nil {
		return false
	}
	var resp statResponse
	err := c.postJSON(ctx, "/api/v0/object/stat?arg="+url.QueryEscape(cidStr), "", nil, &resp)
	return err == nil
}

func (c *Client) postJSON(ctx context.Context, path, contentType string, body []byte, out interface{}) error {
	data, err := c.post(ctx, path, contentType, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.KindTransientIO, "ipfs: malformed api response", err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string) ([]byte, error) {
	return c.post(ctx, path, "", nil)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "ipfs: request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "ipfs: read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindTransientIO,
			fmt.Sprintf("ipfs: %s returned status %d", path, resp.StatusCode))
	}
	return data, nil
}

// verifyDownload guards against a compromised or inconsistent backend
// returning wrong bytes under a given identifier. The explicit expectedHash
// check is authoritative; for raw-codec CIDs the content is additionally
// checked against the CID's own multihash.
func verifyDownload(decoded cid.Cid, content, expectedHash []byte) error {
	if expectedHash != nil {
		sum := crypto.HashContent(content)
		if !bytes.Equal(sum[:], expectedHash) {
			return errs.New(errs.KindHashMismatch,
				"ipfs: downloaded content does not match expected hash")
		}
	}
	if !matchesCID(decoded, content) {
		return errs.New(errs.KindHashMismatch,
			"ipfs: downloaded content does not match its cid")
	}
	return nil
}
