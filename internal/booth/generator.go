// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

// CodeAlphabet is the character set of session codes.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxUnbiasedByte is the largest multiple of len(CodeAlphabet) that fits in a
// byte. Random bytes at or above it are discarded so every symbol is equally
// likely.
const maxUnbiasedByte = 256 - 256%len(CodeAlphabet)

// CodeChecker reports whether a code is already stored in any state.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Generator produces session codes that are not yet stored.
type Generator struct {
	length  int
	checker CodeChecker
	random  io.Reader
}

// NewGenerator creates a generator for codes of the given length.
func NewGenerator(length int, checker CodeChecker) *Generator {
	return &Generator{length: length, checker: checker, random: rand.Reader}
}

// Generate returns a fresh code. It retries on collision for as long as ctx
// allows.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}
		exists, err := g.checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

func (g *Generator) randomCode() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
