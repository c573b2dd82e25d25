package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulehq/timecapsule/capsule/errs"
)

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string            `json:"jsonrpc"`
			ID      uint64            `json:"id"`
			Method  string            `json:"method"`
			Params  []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGetOwnedObjects(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "suix_getOwnedObjects", method)
		require.Len(t, params, 4)

		var owner string
		require.NoError(t, json.Unmarshal(params[0], &owner))
		require.Equal(t, "0xowner", owner)

		var cursor *string
		require.NoError(t, json.Unmarshal(params[2], &cursor))

		next := "cursor-1"
		if cursor == nil {
			return Page{
				Data:        []ObjectRecord{{ObjectID: "0x1"}},
				NextCursor:  &next,
				HasNextPage: true,
			}, nil
		}
		require.Equal(t, "cursor-1", *cursor)
		return Page{Data: []ObjectRecord{{ObjectID: "0x2"}}}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	page, err := c.GetOwnedObjects(context.Background(), "0xowner", 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "0x1", page.Data[0].ObjectID)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.NextCursor)

	page, err = c.GetOwnedObjects(context.Background(), "0xowner", 50, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "0x2", page.Data[0].ObjectID)
	assert.False(t, page.HasNextPage)
}

func TestGetObjectAbsent(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "sui_getObject", method)
		return map[string]interface{}{"data": nil}, nil
	})
	defer srv.Close()

	rec, err := NewClient(srv.URL, nil).GetObject(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMultiGetObjectsSkipsUnresolved(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "sui_multiGetObjects", method)
		return []map[string]interface{}{
			{"data": map[string]interface{}{"objectId": "0xb"}},
			{"data": nil},
			{"data": map[string]interface{}{"objectId": "0xa"}},
		}, nil
	})
	defer srv.Close()

	records, err := NewClient(srv.URL, nil).MultiGetObjects(context.Background(), []string{"0xa", "0xmissing", "0xb"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0xb", records[0].ObjectID)
	assert.Equal(t, "0xa", records[1].ObjectID)
}

func TestRPCErrorSurfacesAsTransient(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "node overloaded"}
	})
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetObject(context.Background(), "0x1")
	assert.True(t, errs.IsKind(err, errs.KindTransientIO), "got %v", err)
	assert.Contains(t, err.Error(), "node overloaded")
}

func TestByteArrayDecoding(t *testing.T) {
	var b ByteArray
	require.NoError(t, json.Unmarshal([]byte(`[1,2,255]`), &b))
	assert.Equal(t, ByteArray{1, 2, 255}, b)

	// Base64 string form.
	var s ByteArray
	require.NoError(t, json.Unmarshal([]byte(`"AQID"`), &s))
	assert.Equal(t, ByteArray{1, 2, 3}, s)

	// Round trip through the number-array form.
	out, err := json.Marshal(ByteArray{9, 8})
	require.NoError(t, err)
	assert.JSONEq(t, `[9,8]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[300]`), &b))
}

func TestCapsuleFieldsDecode(t *testing.T) {
	raw := `{
		"objectId": "0xcap",
		"content": {"fields": {
			"id": "0xcap",
			"owner": "0xowner",
			"cid": "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			"content_hash": [1,2,3,4],
			"unlock_condition": {"condition_type": 1, "threshold": 2, "approvals": ["0xa","0xb"], "paid": false},
			"created_at": 1705689600000,
			"unlocked": false
		}}
	}`

	var rec ObjectRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	require.NotNil(t, rec.Content)

	f := rec.Content.Fields
	assert.Equal(t, "0xowner", f.Owner)
	assert.Equal(t, ByteArray{1, 2, 3, 4}, f.ContentHash)
	assert.Equal(t, ConditionThreshold, f.UnlockCondition.ConditionType)
	require.NotNil(t, f.UnlockCondition.Threshold)
	assert.Equal(t, 2, *f.UnlockCondition.Threshold)
	assert.Len(t, f.UnlockCondition.Approvals, 2)
}
