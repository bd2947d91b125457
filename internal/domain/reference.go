package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	referencePrefix     = "PL"
	referenceSuffixLen  = 4
	referenceAlphabet36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// RandIntN is the randomness the reference generator needs. *rand.Rand satisfies it.
type RandIntN interface {
	IntN(n int) int
}

// ReferenceGenerator produces human-facing booking references of the form
// PL-<unix millis, base 36>-<4 random base 36 chars>, upper case.
// They are labels, not security tokens.
type ReferenceGenerator struct {
	now func() time.Time

	mu  sync.Mutex
	rnd RandIntN
}

// NewReferenceGenerator uses now for the time component. A nil rnd uses a randomly seeded source.
func NewReferenceGenerator(now func() time.Time, rnd RandIntN) *ReferenceGenerator {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ReferenceGenerator{now: now, rnd: rnd}
}

func (g *ReferenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next()
}

// Batch returns n references that are pairwise distinct.
func (g *ReferenceGenerator) Batch(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(out) < n {
		ref := g.next()
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func (g *ReferenceGenerator) next() string {
	ms := g.now().UnixMilli()
	var b strings.Builder
	b.Grow(len(referencePrefix) + 2 + 9 + referenceSuffixLen)
	b.WriteString(referencePrefix)
	b.WriteByte('-')
	b.WriteString(strings.ToUpper(strconv.FormatInt(ms, 36)))
	b.WriteByte('-')
	for i := 0; i < referenceSuffixLen; i++ {
		b.WriteByte(referenceAlphabet36[g.rnd.IntN(len(referenceAlphabet36))])
	}
	return b.String()
}
