// Package cachekey derives the identifier under which a fixture's
// materialized tests are cached.
package cachekey

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Size is the length of a Key in hex characters.
const Size = 64

// Key is a hex encoded BLAKE3-256 digest.
type Key string

// Valid reports whether k has the shape Build produces.
func (k Key) Valid() bool {
	if len(k) != Size {
		return false
	}
	_, err := hex.DecodeString(string(k))
	return err == nil
}

func (k Key) String() string {
	return string(k)
}

// Inputs is the complete set of values a key depends on.
type Inputs struct {
	Source       []byte // raw fixture source
	FixturePath  string // resolved fixture path
	ArtifactPath string // path of the rendered build artifact
	Artifact     []byte // bytes of the rendered build artifact
	Config       []byte // canonical serialized build configuration
}

// Build hashes the inputs in a fixed order, each field prefixed with its
// length, so moving bytes between adjacent fields changes the key.
func Build(in Inputs) Key {
	return Key(Sum(in.Source, []byte(in.FixturePath), []byte(in.ArtifactPath), in.Artifact, in.Config))
}

// Sum returns the hex BLAKE3-256 digest of parts, each preceded by its
// uvarint length.
func Sum(parts ...[]byte) string {
	h := blake3.New()
	var size [binary.MaxVarintLen64]byte
	for _, p := range parts {
		n := binary.PutUvarint(size[:], uint64(len(p)))
		_, _ = h.Write(size[:n])
		_, _ = h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
