package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulehq/timecapsule/capsule/crypto"
	"github.com/capsulehq/timecapsule/capsule/errs"
	"github.com/capsulehq/timecapsule/capsule/retry"
)

// wellKnownCID is a syntactically valid CIDv0 (dag-pb), used where the test
// does not control the content behind it.
const wellKnownCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestAddUploadsAndHashes(t *testing.T) {
	content := []byte("stored bytes")

	var pinned atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v0/add", r.URL.Path)
		pinned.Store(r.URL.Query().Get("pin") == "true")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		w.Write([]byte(`{"Name":"blob","Hash":"` + wellKnownCID + `","Size":"12"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})
	res, err := c.Add(context.Background(), content)
	require.NoError(t, err)

	assert.True(t, pinned.Load(), "add must request pinning")
	assert.Equal(t, wellKnownCID, res.CID)
	assert.Equal(t, int64(12), res.Size)
	assert.Equal(t, crypto.HashContent(content), res.Hash)
}

func TestAddRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"Hash":"` + wellKnownCID + `","Size":"4"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: retry.Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}})

	start := time.Now()
	res, err := c.Add(context.Background(), []byte("data"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, wellKnownCID, res.CID)
	// delay = base + 2*base between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestAddExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})
	_, err := c.Add(context.Background(), []byte("data"))

	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, errs.IsKind(err, errs.KindTransientIO), "got %v", err)
}

func TestCatVerifiesExpectedHash(t *testing.T) {
	stored := []byte("capsule envelope bytes")
	storedCID, err := ComputeCID(stored)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/cat", r.URL.Path)
		require.Equal(t, storedCID.String(), r.URL.Query().Get("arg"))
		w.Write(stored)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})

	sum := crypto.HashContent(stored)
	res, err := c.Cat(context.Background(), storedCID.String(), sum[:])
	require.NoError(t, err)
	assert.Equal(t, stored, res.Content)
	assert.Equal(t, int64(len(stored)), res.Size)

	// Same fetch with a hash of different bytes must fail terminally.
	wrong := crypto.HashContent([]byte("other bytes"))
	_, err = c.Cat(context.Background(), storedCID.String(), wrong[:])
	assert.True(t, errs.IsKind(err, errs.KindHashMismatch), "got %v", err)
}

func TestCatDetectsCIDMismatch(t *testing.T) {
	// A raw CIDv1 names specific bytes; serving anything else must fail
	// even when the caller supplies no expected hash.
	claimed, err := ComputeCID([]byte("the real content"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("imposter content"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})
	_, err = c.Cat(context.Background(), claimed.String(), nil)
	assert.True(t, errs.IsKind(err, errs.KindHashMismatch), "got %v", err)
}

func TestCatInvalidCIDFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})
	_, err := c.Cat(context.Background(), "not a cid", nil)

	assert.True(t, errs.IsKind(err, errs.KindValidation), "got %v", err)
	assert.Zero(t, calls.Load(), "invalid cid must not reach the network")
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/object/stat", r.URL.Path)
		if r.URL.Query().Get("arg") == wellKnownCID {
			w.Write([]byte(`{"CumulativeSize":42}`))
			return
		}
		http.Error(w, "not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Retry: fastRetry()})

	assert.True(t, c.Exists(context.Background(), wellKnownCID))
	assert.False(t, c.Exists(context.Background(), "not a cid"))

	other, err := ComputeCID([]byte("absent"))
	require.NoError(t, err)
	assert.False(t, c.Exists(context.Background(), other.String()))
}

func TestExistsNeverPanicsOnDeadBackend(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", Options{Retry: fastRetry()})
	assert.False(t, c.Exists(context.Background(), wellKnownCID))
}

func TestComputeCIDStable(t *testing.T) {
	a, err := ComputeCID([]byte("same"))
	require.NoError(t, err)
	b, err := ComputeCID([]byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := ComputeCID([]byte("different"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}
