package ipfs

import (
	"bytes"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data. It lets a
// caller predict the address of a raw upload without a network round trip.
func ComputeCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// matchesCID re-hashes content with the CID's own multihash function and
// compares digests. Only raw-codec CIDs address the block bytes directly;
// anything else (dag-pb chunked objects and the like) cannot be checked
// this way and passes.
func matchesCID(c cid.Cid, content []byte) bool {
	if c.Prefix().Codec != cid.Raw {
		return true
	}
	dm, err := multihash.Decode(c.Hash())
	if err != nil {
		return true
	}
	sum, err := multihash.Sum(content, dm.Code, dm.Length)
	if err != nil {
		return true
	}
	return bytes.Equal(sum, c.Hash())
}
