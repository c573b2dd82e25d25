// Package transfer prepares local files for sealing in bulk.
//
// It scans directories with size and extension filters, optionally
// LZ4-compresses content before encryption (ciphertext does not compress, so
// compression has to happen first), and seals many files concurrently with
// bounded parallelism.
package transfer
