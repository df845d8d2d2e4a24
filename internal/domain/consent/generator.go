package consent

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
)

const (
	DefaultCodeLength = 8
	MinCodeLength     = 6
	NumericAlphabet   = "0123456789"
)

var ErrGeneratorConfig = errors.New("invalid code generator config")

// CodeSource produce tokens candidatos. El service reintenta si colisionan.
type CodeSource interface {
	Generate() (string, error)
}

// Generator produce códigos de largo fijo con crypto/rand, sin sesgo de módulo.
type Generator struct {
	length   int
	alphabet []rune
	rand     io.Reader
}

func NewGenerator(length int, alphabet string) (*Generator, error) {
	if strings.TrimSpace(alphabet) == "" {
		alphabet = NumericAlphabet
	}
	if length == 0 {
		length = DefaultCodeLength
	}
	if length < MinCodeLength {
		return nil, ErrGeneratorConfig
	}

	seen := map[rune]struct{}{}
	runes := make([]rune, 0, len(alphabet))
	for _, r := range alphabet {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		runes = append(runes, r)
	}
	if len(runes) < 10 {
		return nil, ErrGeneratorConfig
	}

	return &Generator{
		length:   length,
		alphabet: runes,
		rand:     rand.Reader,
	}, nil
}

func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.alphabet)))

	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", err
		}
		b.WriteRune(g.alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Space es la cantidad de códigos posibles (|alphabet|^length).
func (g *Generator) Space() *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(len(g.alphabet))), big.NewInt(int64(g.length)), nil)
}

func (g *Generator) Length() int { return g.length }
