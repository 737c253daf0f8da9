package id

import (
	"crypto/rand"
	"encoding/hex"
)

// DefaultTokenBytes yields 20 hex characters per token.
const DefaultTokenBytes = 10

// HexGenerator produces random fixed-length hexadecimal tokens.
type HexGenerator struct {
	size int
}

func NewHexGenerator(size int) *HexGenerator {
	if size <= 0 {
		size = DefaultTokenBytes
	}
	return &HexGenerator{size: size}
}

func (g *HexGenerator) NewID() string {
	b := make([]byte, g.size)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read does not fail on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
