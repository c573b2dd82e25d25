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

	"github.com/capsulehq/timecapsule/capsule/crypto"
	"github.com/capsulehq/timecapsule/capsule/errs"
	"github.com/capsulehq/timecapsule/capsule/retry"
)

// PinningClient uploads through a hosted pinning service and reads through
// a public gateway. It implements the same Store interface as Client.
type PinningClient struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	http       *http.Client
	policy     retry.Policy
	log        *slog.Logger
}

// NewPinningClient creates a pinning-service client. apiURL is the service
// root (the upload endpoint is POST {apiURL}/pinning/pinFileToIPFS),
// gatewayURL serves GET {gatewayURL}/ipfs/<cid>.
func NewPinningClient(apiURL, gatewayURL, apiKey string, opts Options) *PinningClient {
	p := &PinningClient{
		apiURL:     apiURL,
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		http:       opts.HTTPClient,
		policy:     opts.Retry,
		log:        opts.Logger,
	}
	if p.http == nil {
		p.http = http.DefaultClient
	}
	if p.policy.MaxAttempts == 0 {
		p.policy = retry.DefaultPolicy
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// pinResponse is the service's upload reply.
type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// pinMetadata is the JSON metadata part sent with the file.
type pinMetadata struct {
	Name string `json:"name"`
}

func (p *PinningClient) Add(ctx context.Context, content []byte) (AddResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return AddResult{}, err
	}
	if _, err := fw.Write(content); err != nil {
		return AddResult{}, err
	}
	meta, err := json.Marshal(pinMetadata{Name: "capsule"})
	if err != nil {
		return AddResult{}, err
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return AddResult{}, err
	}
	if err := mw.Close(); err != nil {
		return AddResult{}, err
	}

	var resp pinResponse
	err = p.policy.Do(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost,
			p.apiURL+"/pinning/pinFileToIPFS", bytes.NewReader(body.Bytes()))
		if rerr != nil {
			return rerr
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		data, rerr := p.do(req)
		if rerr != nil {
			return rerr
		}
		if rerr := json.Unmarshal(data, &resp); rerr != nil {
			return errs.Wrap(errs.KindTransientIO, "ipfs: malformed pinning response", rerr)
		}
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}

	p.log.Debug("pinning add", "cid", resp.IpfsHash, "size", len(content))
	return AddResult{
		CID:  resp.IpfsHash,
		Size: int64(len(content)),
		Hash: crypto.HashContent(content),
	}, nil
}

func (p *PinningClient) Cat(ctx context.Context, cidStr string, expectedHash []byte) (CatResult, error) {
	decoded, err := ValidateCID(cidStr)
	if err != nil {
		return CatResult{}, err
	}

	var content []byte
	err = p.policy.Do(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet,
			p.gatewayURL+"/ipfs/"+cidStr, nil)
		if rerr != nil {
			return rerr
		}
		content, rerr = p.do(req)
		return rerr
	})
	if err != nil {
		return CatResult{}, err
	}

	if err := verifyDownload(decoded, content, expectedHash); err != nil {
		return CatResult{}, err
	}
	return CatResult{Content: content, Size: int64(len(content))}, nil
}

func (p *PinningClient) Exists(ctx context.Context, cidStr string) bool {
	if _, err := ValidateCID(cidStr); err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead,
		p.gatewayURL+"/ipfs/"+cidStr, nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *PinningClient) do(req *http.Request) ([]byte, error) {
	resp, err := p.http.Do(req)
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
			fmt.Sprintf("ipfs: %s returned status %d", req.URL.Path, resp.StatusCode))
	}
	return data, nil
}

var (
	_ Store = (*Client)(nil)
	_ Store = (*PinningClient)(nil)
)
