// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultChunkSize is the read size used by NewAssembler.
const DefaultChunkSize = 4096

// =============================================================================
// FRAGMENTS AND ERRORS
// =============================================================================

// Fragment is one decoded piece of the stream.
type Fragment struct {
	// Text is the newly decoded text.
	Text string
	// Full is everything decoded so far, Text included.
	Full string
	// Index counts fragments from zero.
	Index int
}

// Callback receives fragments in arrival order.
type Callback func(Fragment)

// PartialError reports a stream that broke off after some text arrived.
type PartialError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *PartialError) Unwrap() error {
	return e.Err
}

// =============================================================================
// STATS
// =============================================================================

// Stats describes one assembled stream.
type Stats struct {
	Start     time.Time
	FirstByte time.Time
	End       time.Time
	Chunks    int
	Bytes     int64
}

// TTFB is the time to first byte.
func (s Stats) TTFB() time.Duration {
	if s.FirstByte.IsZero() {
		return 0
	}
	return s.FirstByte.Sub(s.Start)
}

// Duration is the total read time.
func (s Stats) Duration() time.Duration {
	if s.End.IsZero() {
		return time.Since(s.Start)
	}
	return s.End.Sub(s.Start)
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler reads a byte stream, decodes it and accumulates the text.
type Assembler struct {
	dec   *Decoder
	buf   []byte
	acc   strings.Builder
	index int
	stats Stats
}

// NewAssembler returns an Assembler reading DefaultChunkSize bytes at a time.
func NewAssembler() *Assembler {
	return NewAssemblerSize(DefaultChunkSize)
}

// NewAssemblerSize returns an Assembler with a custom read size.
func NewAssemblerSize(chunkSize int) *Assembler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Assembler{
		dec: NewDecoder(),
		buf: make([]byte, chunkSize),
	}
}

// Run reads r until EOF, calling fn after each chunk that produced text.
// It returns the full text. A read error or a cancelled ctx yields a
// *PartialError carrying the text received up to that point.
func (a *Assembler) Run(ctx context.Context, r io.Reader, fn Callback) (string, error) {
	a.reset()
	defer func() { a.stats.End = time.Now() }()

	for {
		if err := ctx.Err(); err != nil {
			return a.acc.String(), &PartialError{Partial: a.acc.String(), Err: err}
		}

		n, err := r.Read(a.buf)
		if n > 0 {
			if a.stats.FirstByte.IsZero() {
				a.stats.FirstByte = time.Now()
			}
			a.stats.Chunks++
			a.stats.Bytes += int64(n)
			a.emit(a.dec.Decode(a.buf[:n]), fn)
		}

		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			a.emit(a.dec.Flush(), fn)
			return a.acc.String(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return a.acc.String(), &PartialError{Partial: a.acc.String(), Err: err}
	}
}

// Text returns what has been accumulated so far.
func (a *Assembler) Text() string {
	return a.acc.String()
}

// Stats returns statistics for the last Run.
func (a *Assembler) Stats() Stats {
	return a.stats
}

func (a *Assembler) emit(text string, fn Callback) {
	if text == "" {
		return
	}
	a.acc.WriteString(text)
	if fn != nil {
		fn(Fragment{Text: text, Full: a.acc.String(), Index: a.index})
	}
	a.index++
}

func (a *Assembler) reset() {
	a.dec.Reset()
	a.acc.Reset()
	a.index = 0
	a.stats = Stats{Start: time.Now()}
}
