// Package capsule is the client SDK for decentralized time capsules:
// content encrypted client-side, stored in content-addressed storage, and
// gated by an unlock condition recorded on a ledger.
//
// The Client composes the subpackages — crypto for the encryption protocol,
// ipfs for the storage client, ledger for the chain read surface — into the
// seal, query and unlock operations an application consumes. Ledger writes
// (creating capsules on chain, approvals, payments) are external
// transactions outside this SDK.
package capsule
