package app

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"

	"yds-challenge-service/internal/domain"
)

// CodeAlphabet excludes characters that are easy to confuse (I, O, 0, 1).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a room code.
const CodeLength = 6

// CodeGenerator produces candidate room codes.
type CodeGenerator interface {
	Generate() string
}

// Shuffler reorders a room's questions in place.
type Shuffler interface {
	Shuffle(questions []domain.Question)
}

type randomCodeGenerator struct{}

// NewRandomCodeGenerator returns a generator backed by crypto/rand.
func NewRandomCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) Generate() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	// The alphabet has 32 symbols, so masking keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)&(len(CodeAlphabet)-1)]
	}
	return string(buf)
}

type randomShuffler struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

// NewRandomShuffler returns a Fisher-Yates shuffler seeded from crypto/rand.
func NewRandomShuffler() Shuffler {
	var seed [8]byte
	_, _ = rand.Read(seed[:])
	return &randomShuffler{rnd: mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))}
}

func (s *randomShuffler) Shuffle(questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}
