package store

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// Digest is the blake3 hash of a plan's canonical JSON form.
type Digest [32]byte

// String returns the hex form of the digest.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// DigestOf hashes p. encoding/json sorts map keys, so argument maps hash
// stably regardless of insertion order.
func DigestOf(p *plan.Plan) (Digest, error) {
	canonical, err := json.Marshal(p)
	if err != nil {
		return Digest{}, fmt.Errorf("canonicalize plan: %w", err)
	}

	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return Digest{}, fmt.Errorf("hash plan: %w", err)
	}

	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d, nil
}
