// Package ipfs implements the content-addressed storage client.
//
// Two backends are supported behind one Store interface:
//   - Client speaks the IPFS node HTTP API (/api/v0/add, /cat, /object/stat)
//   - PinningClient speaks a hosted pinning service plus a public gateway
//
// Both validate CIDs before any network call, verify downloaded bytes
// against an expected hash when one is supplied, and run network operations
// under the shared retry policy.
package ipfs
