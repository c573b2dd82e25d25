package capsule

import (
	"context"
	"fmt"

	"github.com/capsulehq/timecapsule/capsule/errs"
	"github.com/capsulehq/timecapsule/capsule/ledger"
)

// DefaultPageLimit is the owned-objects page size when the caller does not
// set one.
const DefaultPageLimit = 50

// Query turns raw ledger records into domain capsules.
type Query struct {
	ledger ledger.Reader
}

// NewQuery creates a query layer over a ledger read surface.
func NewQuery(r ledger.Reader) *Query {
	return &Query{ledger: r}
}

// PageOptions selects one page of an owner's capsules. Cursor is the opaque
// token from the previous page's result, nil for the first page.
type PageOptions struct {
	Limit  int
	Cursor *string
}

// CapsulePage is one page of query results.
type CapsulePage struct {
	Capsules    []Capsule
	HasNextPage bool
	NextCursor  *string
}

// ByOwner fetches one page of capsules owned by owner. Records that fail to
// decode are skipped; the page's pagination tokens pass through unchanged.
func (q *Query) ByOwner(ctx context.Context, owner string, opts PageOptions) (CapsulePage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	page, err := q.ledger.GetOwnedObjects(ctx, owner, limit, opts.Cursor)
	if err != nil {
		return CapsulePage{}, err
	}

	capsules := make([]Capsule, 0, len(page.Data))
	for _, rec := range page.Data {
		c, err := mapRecord(rec)
		if err != nil {
			continue
		}
		capsules = append(capsules, c)
	}
	return CapsulePage{
		Capsules:    capsules,
		HasNextPage: page.HasNextPage,
		NextCursor:  page.NextCursor,
	}, nil
}

// AllByOwner walks every page for owner and concatenates results in the
// order received. Pages are fetched strictly sequentially; each cursor only
// exists once the previous page has been read.
func (q *Query) AllByOwner(ctx context.Context, owner string) ([]Capsule, error) {
	var all []Capsule
	var cursor *string
	for {
		page, err := q.ByOwner(ctx, owner, PageOptions{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Capsules...)
		if !page.HasNextPage {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// ByID fetches a single capsule. An absent object, null content or a record
// that fails to decode is NotFound; an unrecognized condition tag surfaces
// as UnsupportedCondition.
func (q *Query) ByID(ctx context.Context, id string) (Capsule, error) {
	rec, err := q.ledger.GetObject(ctx, id)
	if err != nil {
		return Capsule{}, err
	}
	if rec == nil {
		return Capsule{}, errs.New(errs.KindNotFound, fmt.Sprintf("capsule %s not found", id))
	}
	c, err := mapRecord(*rec)
	if err != nil {
		if errs.IsKind(err, errs.KindUnsupportedCondition) {
			return Capsule{}, err
		}
		return Capsule{}, errs.Wrap(errs.KindNotFound, fmt.Sprintf("capsule %s is malformed", id), err)
	}
	return c, nil
}

// ByIDs resolves many capsules in one batched request. The result is
// positionally aligned with ids: each slot holds the capsule or nil when
// the id was unresolved or its record malformed. A missing entry never
// aborts the batch. An empty ids list returns an empty slice without any
// network call.
func (q *Query) ByIDs(ctx context.Context, ids []string) ([]*Capsule, error) {
	out := make([]*Capsule, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	records, err := q.ledger.MultiGetObjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Re-associate by object id; the node does not guarantee response
	// order.
	byID := make(map[string]Capsule, len(records))
	for _, rec := range records {
		c, err := mapRecord(rec)
		if err != nil {
			continue
		}
		byID[rec.ObjectID] = c
	}
	for i, id := range ids {
		if c, ok := byID[id]; ok {
			cc := c
			out[i] = &cc
		}
	}
	return out, nil
}

// mapRecord decodes one ledger record into a domain capsule.
func mapRecord(rec ledger.ObjectRecord) (Capsule, error) {
	if rec.Content == nil {
		return Capsule{}, fmt.Errorf("record %s has no content", rec.ObjectID)
	}
	f := rec.Content.Fields
	if f.Owner == "" || f.CID == "" {
		return Capsule{}, fmt.Errorf("record %s is missing required fields", rec.ObjectID)
	}

	cond, err := decodeCondition(f.UnlockCondition)
	if err != nil {
		return Capsule{}, err
	}

	id := f.ID
	if id == "" {
		id = rec.ObjectID
	}
	return Capsule{
		ID:          id,
		Owner:       f.Owner,
		CID:         f.CID,
		ContentHash: []byte(f.ContentHash),
		Condition:   cond,
		CreatedAt:   f.CreatedAt,
		Unlocked:    f.Unlocked,
	}, nil
}

// decodeCondition maps the on-chain discriminated payload to the tagged
// variant. Unrecognized tags are an error, never a silent default.
func decodeCondition(rc ledger.UnlockConditionRecord) (UnlockCondition, error) {
	switch rc.ConditionType {
	case ledger.ConditionTime:
		if rc.UnlockTimeMs == nil {
			return nil, fmt.Errorf("time condition without unlock_time_ms")
		}
		return TimeLock{UnlockTimeMs: *rc.UnlockTimeMs}, nil
	case ledger.ConditionThreshold:
		if rc.Threshold == nil {
			return nil, fmt.Errorf("threshold condition without threshold")
		}
		return ThresholdApproval{Threshold: *rc.Threshold, Approvals: rc.Approvals}, nil
	case ledger.ConditionPayment:
		var price uint64
		if rc.Price != nil {
			price = *rc.Price
		}
		return Paid{Price: price, Paid: rc.Paid}, nil
	default:
		return nil, errs.New(errs.KindUnsupportedCondition,
			fmt.Sprintf("unsupported unlock condition type %d", rc.ConditionType))
	}
}
