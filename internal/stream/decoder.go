// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const decodeBufSize = 4096

// Decoder is an incremental UTF-8 decoder. Bytes of a character that is not
// complete yet are held back until the next Decode call. Invalid bytes
// decode to U+FFFD. A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// NewDecoder returns a ready Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, decodeBufSize),
	}
}

// Decode feeds p to the decoder and returns all text that can be decoded
// so far.
func (d *Decoder) Decode(p []byte) string {
	d.pending = append(d.pending, p...)
	return d.drain(false)
}

// Flush ends the input. A dangling partial sequence decodes to U+FFFD.
// The decoder is reset afterwards.
func (d *Decoder) Flush() string {
	out := d.drain(true)
	d.Reset()
	return out
}

// Pending reports how many bytes are held back waiting for the rest of a
// character.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Reset discards held-back bytes so the decoder can be reused.
func (d *Decoder) Reset() {
	d.t.Reset()
	d.pending = d.pending[:0]
}

func (d *Decoder) drain(atEOF bool) string {
	var out []byte
	consumed := 0
	for consumed < len(d.pending) {
		nDst, nSrc, err := d.t.Transform(d.dst, d.pending[consumed:], atEOF)
		out = append(out, d.dst[:nDst]...)
		consumed += nSrc
		if errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0) {
			continue
		}
		break
	}
	d.pending = append(d.pending[:0], d.pending[consumed:]...)
	return string(out)
}
