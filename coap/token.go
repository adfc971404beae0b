package coap

import (
	"encoding/binary"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// TokenGenerator issues the tokens a LocalEndpoint stamps onto outbound
// requests. Tokens only need to be unique among a local endpoint's
// currently-outstanding exchanges (RFC 7252 5.3.1), not globally.
type TokenGenerator interface {
	NextToken() []byte
}

// RandomTokenGenerator hands out 4-byte tokens: three random bytes plus a
// sequence counter in the low byte, so two tokens minted in the same
// nanosecond can never collide even on a PRNG with poor short-interval
// entropy.
type RandomTokenGenerator struct {
	seq  atomic.Uint32
	rand *rand.Rand
}

// NewRandomTokenGenerator seeds its PRNG from a freshly generated UUID
// instead of a wall-clock reading, so two generators created back-to-back
// in a test still diverge.
func NewRandomTokenGenerator() TokenGenerator {
	seed := uuid.New()
	return &RandomTokenGenerator{
		rand: rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:8])))),
	}
}

func (t *RandomTokenGenerator) NextToken() []byte {
	tok := make([]byte, 4)
	t.rand.Read(tok)
	tok[0] = byte(t.seq.Inc())
	return tok
}

// CountingTokenGenerator hands out 1-byte tokens that count up from 1. It
// exists for tests that want to assert against specific token bytes.
type CountingTokenGenerator struct {
	seq atomic.Uint32
}

func NewCountingTokenGenerator() TokenGenerator {
	return &CountingTokenGenerator{}
}

func (t *CountingTokenGenerator) NextToken() []byte {
	return []byte{byte(t.seq.Inc())}
}
