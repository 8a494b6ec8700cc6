package problem

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateStaysInRange(t *testing.T) {
	gen := NewGeneratorWithRand(rand.New(rand.NewSource(1)))

	for i := 0; i < 10000; i++ {
		p := gen.Generate()
		if p.Answer < 0 || p.Answer > 99 {
			t.Fatalf("answer %d out of range for %q", p.Answer, p.Text)
		}
		if p.Text == "" {
			t.Fatalf("empty problem text")
		}
	}
}

func TestDivisionIsAlwaysExact(t *testing.T) {
	gen := NewGeneratorWithRand(rand.New(rand.NewSource(2)))

	seen := 0
	for i := 0; i < 10000; i++ {
		p := gen.Generate()
		if !strings.Contains(p.Text, "÷") {
			continue
		}
		seen++
		var a, b int
		if _, err := fmt.Sscanf(p.Text, "%d ÷ %d", &a, &b); err != nil {
			t.Fatalf("unparsable division text %q: %v", p.Text, err)
		}
		if b < 1 || b > 9 {
			t.Fatalf("divisor %d out of range in %q", b, p.Text)
		}
		if a != b*p.Answer {
			t.Fatalf("%q: expected dividend %d, got %d", p.Text, b*p.Answer, a)
		}
	}
	if seen == 0 {
		t.Fatalf("no division problems generated")
	}
}

func TestAdditionAndMultiplicationOperands(t *testing.T) {
	gen := NewGeneratorWithRand(rand.New(rand.NewSource(3)))

	for i := 0; i < 10000; i++ {
		p := gen.Generate()
		switch {
		case strings.Contains(p.Text, "+"):
			var a, b int
			if _, err := fmt.Sscanf(p.Text, "%d + %d", &a, &b); err != nil {
				t.Fatalf("unparsable addition %q: %v", p.Text, err)
			}
			if a+b != p.Answer {
				t.Fatalf("%q: answer %d", p.Text, p.Answer)
			}
		case strings.Contains(p.Text, "×"):
			var a, b int
			if _, err := fmt.Sscanf(p.Text, "%d × %d", &a, &b); err != nil {
				t.Fatalf("unparsable multiplication %q: %v", p.Text, err)
			}
			if a > 11 {
				t.Fatalf("multiplier %d too large in %q", a, p.Text)
			}
			if a != 0 && b > 9 {
				t.Fatalf("multiplicand %d too large in %q", b, p.Text)
			}
			if a*b != p.Answer {
				t.Fatalf("%q: answer %d", p.Text, p.Answer)
			}
		}
	}
}
