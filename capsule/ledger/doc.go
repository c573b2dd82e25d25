// Package ledger is the read-only RPC surface consumed from the chain. It
// speaks JSON-RPC 2.0 and returns raw object records; decoding records into
// domain capsules is the query layer's job. The client holds no mutable
// state and is safe for concurrent use.
package ledger
