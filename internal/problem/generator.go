package problem

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"unicorn-math-bot/internal/domain"
)

// Generator produces random arithmetic problems for the 60-second sprint.
// Every produced answer is a non-negative integer no greater than 99.
type Generator struct {
	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

func NewGenerator() *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithRand allows deterministic problem sequences in tests.
func NewGeneratorWithRand(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate picks one of the four operations uniformly and draws operands so
// that the result stays in [0,99] and division is always exact.
func (g *Generator) Generate() domain.Problem {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.rnd.Intn(4) {
	case 0:
		return g.addition()
	case 1:
		return g.subtraction()
	case 2:
		return g.multiplication()
	default:
		return g.division()
	}
}

// addition: a + b <= 99.
func (g *Generator) addition() domain.Problem {
	a := g.rnd.Intn(100)
	b := g.rnd.Intn(100 - a)
	return domain.Problem{
		Text:   fmt.Sprintf("%d + %d", a, b),
		Answer: a + b,
	}
}

// subtraction: a >= b, so the result is never negative.
func (g *Generator) subtraction() domain.Problem {
	a := g.rnd.Intn(100)
	b := g.rnd.Intn(a + 1)
	return domain.Problem{
		Text:   fmt.Sprintf("%d - %d", a, b),
		Answer: a - b,
	}
}

// multiplication: a in [0,11]; b capped so a*b <= 99 and the table stays small.
func (g *Generator) multiplication() domain.Problem {
	a := g.rnd.Intn(12)
	var b int
	if a == 0 {
		b = g.rnd.Intn(100)
	} else {
		maxB := 99 / a
		if maxB > 9 {
			maxB = 9
		}
		b = g.rnd.Intn(maxB + 1)
	}
	return domain.Problem{
		Text:   fmt.Sprintf("%d × %d", a, b),
		Answer: a * b,
	}
}

// division: dividend is built as divisor*quotient, so it always divides evenly.
func (g *Generator) division() domain.Problem {
	b := 1 + g.rnd.Intn(9)
	maxK := 99 / b
	if maxK > 11 {
		maxK = 11
	}
	k := g.rnd.Intn(maxK + 1)
	return domain.Problem{
		Text:   fmt.Sprintf("%d ÷ %d", b*k, b),
		Answer: k,
	}
}
