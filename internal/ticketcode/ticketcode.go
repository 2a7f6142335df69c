// Package ticketcode mints collision-resistant ticket codes and the
// verification payloads encoded into ticket QR data.
package ticketcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/garyaschafer/PathRegister/internal/clock"
)

// codeAlphabet is uppercase base-36; codes stay shoutable over a radio
// and safe to type at a check-in desk.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	defaultPrefix   = "EVT"
	randomLength    = 8
	verifyPathTmpl  = "%s/api/tickets/%s"
	codeSeparator   = "-"
	timestampBase36 = 36
)

// Generator produces ticket codes combining a monotonic time component
// with a cryptographically random suffix. Codes are unguessable and
// unique with overwhelming probability.
type Generator struct {
	prefix  string
	baseURL string
	clock   clock.Clock
	rand    io.Reader
}

// Option tunes a Generator.
type Option func(*Generator)

// WithPrefix overrides the default EVT code prefix.
func WithPrefix(prefix string) Option {
	return func(g *Generator) {
		if prefix != "" {
			g.prefix = strings.ToUpper(prefix)
		}
	}
}

// WithRandSource overrides the random source (tests only).
func WithRandSource(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.rand = r
		}
	}
}

// New returns a Generator whose verification URLs are rooted at baseURL.
func New(baseURL string, clk clock.Clock, opts ...Option) *Generator {
	g := &Generator{
		prefix:  defaultPrefix,
		baseURL: strings.TrimRight(baseURL, "/"),
		clock:   clk,
		rand:    rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Code returns a fresh ticket code, e.g. EVT-MBFK2C1T-7QJ4X9PZ.
func (g *Generator) Code() (string, error) {
	ts := strings.ToUpper(strconv.FormatInt(g.clock.Now().UnixMilli(), timestampBase36))

	buf := make([]byte, randomLength)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return g.prefix + codeSeparator + ts + codeSeparator + string(buf), nil
}

// VerificationURL derives the URL an offline scanner embeds in the QR
// payload for a code. It is a pure function of the code.
func (g *Generator) VerificationURL(code string) string {
	return fmt.Sprintf(verifyPathTmpl, g.baseURL, code)
}
