package report

import (
	"encoding/hex"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	pseudoMu     sync.Mutex
	pseudoRandom = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewGUID returns a random version 4 layout id as 32 lowercase hex
// characters. When the system random source fails it falls back to a
// seeded pseudo-random one with the same layout.
func NewGUID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		id = pseudoRandomUUID()
	}
	return hex.EncodeToString(id[:])
}

func pseudoRandomUUID() uuid.UUID {
	pseudoMu.Lock()
	defer pseudoMu.Unlock()

	// math/rand never fails to read
	id, _ := uuid.NewRandomFromReader(pseudoRandom)
	return id
}
