package dice

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync"
)

func checkN(n int) {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
}

// cryptoSource draws every word from crypto/rand. The wrapped Rand keeps no
// state of its own, so Intn needs no lock.
type cryptoSource struct {
	rng *mrand.Rand
}

type cryptoReader struct{}

func (cryptoReader) Uint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// NewCryptoSource returns a non-replayable Source for previews and ad hoc
// runs.
func NewCryptoSource() Source {
	return &cryptoSource{rng: mrand.New(cryptoReader{})}
}

// Intn returns a uniform int in [0, n).
//
// Precondition: n > 0.
func (c *cryptoSource) Intn(n int) int {
	checkN(n)
	return c.rng.IntN(n)
}

// seededSource is a PCG generator so batch simulations replay from a seed.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source for seed.
//
// Postcondition: Two sources built from the same seed produce the same
// sequence of Intn results for the same sequence of arguments.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	checkN(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
