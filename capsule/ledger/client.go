package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/capsulehq/timecapsule/capsule/errs"
)

// Reader is the ledger read surface the query layer consumes.
type Reader interface {
	// GetOwnedObjects returns one page of capsule objects owned by owner.
	// cursor is nil for the first page.
	GetOwnedObjects(ctx context.Context, owner string, limit int, cursor *string) (Page, error)
	// GetObject returns the object for id, or nil when the node has none.
	GetObject(ctx context.Context, id string) (*ObjectRecord, error)
	// MultiGetObjects resolves many ids in one request. The node does not
	// guarantee response order and may omit unresolved ids; callers
	// re-associate results by ObjectID.
	MultiGetObjects(ctx context.Context, ids []string) ([]ObjectRecord, error)
}

// Client is a JSON-RPC 2.0 client for the ledger's fullnode endpoint.
type Client struct {
	url    string
	http   *http.Client
	nextID atomic.Uint64
}

// NewClient creates a ledger client for the node at url. httpClient may be
// nil to use http.DefaultClient.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, http: httpClient}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "ledger: rpc request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "ledger: read rpc response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.KindTransientIO,
			fmt.Sprintf("ledger: %s returned status %d", method, resp.StatusCode))
	}

	var rpc rpcResponse
	if err := json.Unmarshal(data, &rpc); err != nil {
		return errs.Wrap(errs.KindTransientIO, "ledger: malformed rpc response", err)
	}
	if rpc.Error != nil {
		return errs.New(errs.KindTransientIO,
			fmt.Sprintf("ledger: %s: rpc error %d: %s", method, rpc.Error.Code, rpc.Error.Message))
	}
	if out != nil && len(rpc.Result) > 0 {
		if err := json.Unmarshal(rpc.Result, out); err != nil {
			return errs.Wrap(errs.KindTransientIO, "ledger: malformed rpc result", err)
		}
	}
	return nil
}

func (c *Client) GetOwnedObjects(ctx context.Context, owner string, limit int, cursor *string) (Page, error) {
	var page Page
	params := []interface{}{owner, map[string]interface{}{
		"options": map[string]bool{"showContent": true},
	}}
	if cursor != nil {
		params = append(params, *cursor)
	} else {
		params = append(params, nil)
	}
	params = append(params, limit)

	if err := c.call(ctx, "suix_getOwnedObjects", params, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// getObjectResult wraps the node's object reply; absent objects arrive as a
// null data field rather than an rpc error.
type getObjectResult struct {
	Data *ObjectRecord `json:"data"`
}

func (c *Client) GetObject(ctx context.Context, id string) (*ObjectRecord, error) {
	var res getObjectResult
	params := []interface{}{id, map[string]bool{"showContent": true}}
	if err := c.call(ctx, "sui_getObject", params, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) MultiGetObjects(ctx context.Context, ids []string) ([]ObjectRecord, error) {
	var res []getObjectResult
	params := []interface{}{ids, map[string]bool{"showContent": true}}
	if err := c.call(ctx, "sui_multiGetObjects", params, &res); err != nil {
		return nil, err
	}
	records := make([]ObjectRecord, 0, len(res))
	for _, r := range res {
		if r.Data != nil {
			records = append(records, *r.Data)
		}
	}
	return records, nil
}

var _ Reader = (*Client)(nil)
