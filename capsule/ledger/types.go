package ledger

import (
	"encoding/json"
	"fmt"
)

// Condition type tags as recorded on chain. Decoding is exhaustive; an
// unknown tag is an error, never a default.
const (
	ConditionTime      = 0
	ConditionThreshold = 1
	ConditionPayment   = 2
)

// ObjectRecord is one ledger object as returned by the RPC node.
type ObjectRecord struct {
	ObjectID string         `json:"objectId"`
	Content  *ObjectContent `json:"content"`
}

// ObjectContent wraps the on-chain field struct.
type ObjectContent struct {
	Fields CapsuleFields `json:"fields"`
}

// CapsuleFields is the raw capsule record shape.
type CapsuleFields struct {
	ID              string                `json:"id"`
	Owner           string                `json:"owner"`
	CID             string                `json:"cid"`
	ContentHash     ByteArray             `json:"content_hash"`
	UnlockCondition UnlockConditionRecord `json:"unlock_condition"`
	CreatedAt       int64                 `json:"created_at"`
	Unlocked        bool                  `json:"unlocked"`
}

// UnlockConditionRecord is the discriminated on-chain condition payload: an
// integer tag plus a union of optional fields.
type UnlockConditionRecord struct {
	ConditionType int      `json:"condition_type"`
	UnlockTimeMs  *int64   `json:"unlock_time_ms,omitempty"`
	Threshold     *int     `json:"threshold,omitempty"`
	Approvals     []string `json:"approvals,omitempty"`
	Price         *uint64  `json:"price,omitempty"`
	Paid          bool     `json:"paid"`
}

// ByteArray decodes the node's vector<u8> encoding, a JSON array of
// numbers, into bytes. Marshals back the same way.
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	// []uint8 would be treated as base64 by encoding/json, so decode the
	// number-array form through a wider element type.
	var nums []uint16
	if err := json.Unmarshal(data, &nums); err == nil {
		out := make([]byte, len(nums))
		for i, v := range nums {
			if v > 0xff {
				return fmt.Errorf("ledger: byte array element %d out of range", v)
			}
			out[i] = byte(v)
		}
		*b = out
		return nil
	}
	// Some nodes serve base64 strings instead.
	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = raw
	return nil
}

func (b ByteArray) MarshalJSON() ([]byte, error) {
	nums := make([]uint16, len(b))
	for i, v := range b {
		nums[i] = uint16(v)
	}
	return json.Marshal(nums)
}

// Page is one page of an owned-objects query. NextCursor is an opaque token
// from the node's pagination protocol, passed through unchanged.
type Page struct {
	Data        []ObjectRecord `json:"data"`
	NextCursor  *string        `json:"nextCursor"`
	HasNextPage bool           `json:"hasNextPage"`
}
