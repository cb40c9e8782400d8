// Package sluggen generates random short codes over a fixed alphabet.
// Generators are safe for concurrent use.
package sluggen

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// Base62 is the default alphabet for generated codes.
	Base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// URLSafe adds dash and underscore to Base62.
	URLSafe = Base62 + "-_"
)

// Generator generates short codes.
type Generator interface {
	Generate(length int) (string, error)
}

type alphabetGenerator struct {
	alphabet string
	// largest multiple of len(alphabet) that fits in a byte; bytes at or above
	// it are rejected so every symbol is equally likely.
	limit int
}

// NewBase62 returns a generator over Base62.
func NewBase62() Generator {
	g, _ := NewAlphabet(Base62)
	return g
}

// NewAlphabet returns a generator over the given alphabet. The alphabet must
// hold between 2 and 256 distinct bytes.
func NewAlphabet(alphabet string) (Generator, error) {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return nil, fmt.Errorf("alphabet size %d out of range [2, 256]", len(alphabet))
	}
	seen := make(map[byte]bool, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		if seen[alphabet[i]] {
			return nil, fmt.Errorf("alphabet has duplicate symbol %q", alphabet[i])
		}
		seen[alphabet[i]] = true
	}
	return &alphabetGenerator{
		alphabet: alphabet,
		limit:    256 - 256%len(alphabet),
	}, nil
}

// Generate returns a random code of the given length.
func (g *alphabetGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= g.limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%len(g.alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
