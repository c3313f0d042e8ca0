package wfc

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Seed is the 32-byte key of the solver's ChaCha8 random stream.
type Seed [32]byte

// String returns the seed as 64 hex characters.
func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// ParseSeed accepts either 64 hex characters, used verbatim, or any other
// phrase, which is hashed with BLAKE2b-256.
func ParseSeed(s string) Seed {
	if len(s) == hex.EncodedLen(len(Seed{})) {
		var seed Seed
		if _, err := hex.Decode(seed[:], []byte(s)); err == nil {
			return seed
		}
	}
	return Seed(blake2b.Sum256([]byte(s)))
}

// SeedFromInt expands an integer seed to a full Seed.
func SeedFromInt(n int64) Seed {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	return Seed(blake2b.Sum256(buf[:]))
}

// Derive returns the seed for retry attempt k. Attempt 0 is the seed itself.
func (s Seed) Derive(attempt int) Seed {
	if attempt == 0 {
		return s
	}
	buf := make([]byte, 0, len(s)+8)
	buf = append(buf, s[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(attempt))
	return Seed(blake2b.Sum256(buf))
}
