package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulehq/timecapsule/capsule/crypto"
	"github.com/capsulehq/timecapsule/capsule/errs"
)

func TestPinningAdd(t *testing.T) {
	content := []byte("pinned bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		require.NotEmpty(t, r.FormValue("pinataMetadata"))

		w.Write([]byte(`{"IpfsHash":"` + wellKnownCID + `"}`))
	}))
	defer srv.Close()

	p := NewPinningClient(srv.URL, srv.URL, "test-key", Options{Retry: fastRetry()})
	res, err := p.Add(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, wellKnownCID, res.CID)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, crypto.HashContent(content), res.Hash)
}

func TestPinningCatViaGateway(t *testing.T) {
	stored := []byte("gateway served")
	storedCID, err := ComputeCID(stored)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ipfs/"+storedCID.String(), r.URL.Path)
		w.Write(stored)
	}))
	defer srv.Close()

	p := NewPinningClient(srv.URL, srv.URL, "", Options{Retry: fastRetry()})

	sum := crypto.HashContent(stored)
	res, err := p.Cat(context.Background(), storedCID.String(), sum[:])
	require.NoError(t, err)
	assert.Equal(t, stored, res.Content)

	_, err = p.Cat(context.Background(), "junk", nil)
	assert.True(t, errs.IsKind(err, errs.KindValidation), "got %v", err)
}

func TestPinningExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/"+wellKnownCID {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPinningClient(srv.URL, srv.URL, "", Options{Retry: fastRetry()})
	assert.True(t, p.Exists(context.Background(), wellKnownCID))

	other, err := ComputeCID([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, p.Exists(context.Background(), other.String()))
}
