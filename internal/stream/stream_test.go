// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one predefined chunk per Read call.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func split(s string, sizes ...int) [][]byte {
	b := []byte(s)
	var out [][]byte
	for _, n := range sizes {
		out = append(out, b[:n])
		b = b[n:]
	}
	if len(b) > 0 {
		out = append(out, b)
	}
	return out
}

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_ASCII(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "hello ", d.Decode([]byte("hello ")))
	assert.Equal(t, "world", d.Decode([]byte("world")))
	assert.Equal(t, "", d.Flush())
}

func TestDecoder_SplitMultibyte(t *testing.T) {
	// "é" is 0xC3 0xA9, "🎉" is four bytes.
	tests := []struct {
		name  string
		input string
		sizes []int
	}{
		{"two-byte split", "café", []int{4}},
		{"emoji split after one byte", "go 🎉!", []int{4}},
		{"emoji split after three bytes", "go 🎉!", []int{6}},
		{"emoji byte by byte", "🎉", []int{1, 1, 1}},
		{"cjk", "日本語", []int{2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			var got strings.Builder
			for _, c := range split(tt.input, tt.sizes...) {
				out := d.Decode(c)
				assert.NotContains(t, out, string(utf8.RuneError), "premature replacement character")
				got.WriteString(out)
			}
			got.WriteString(d.Flush())
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestDecoder_HoldsBackPartial(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "caf", d.Decode([]byte{'c', 'a', 'f', 0xC3}))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, "é", d.Decode([]byte{0xA9}))
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_InvalidBytes(t *testing.T) {
	d := NewDecoder()
	out := d.Decode([]byte{'a', 0xFF, 'b'})
	assert.Equal(t, "a�b", out)
}

func TestDecoder_FlushDanglingSequence(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "x", d.Decode([]byte{'x', 0xF0, 0x9F}))
	flushed := d.Flush()
	assert.NotEmpty(t, flushed)
	assert.Equal(t, "", strings.ReplaceAll(flushed, "\uFFFD", ""))
	assert.Equal(t, 0, d.Pending())

	// Reusable after flush.
	assert.Equal(t, "ok", d.Decode([]byte("ok")))
}

func TestDecoder_LargeInput(t *testing.T) {
	in := strings.Repeat("ünïcödé ", 2000)
	d := NewDecoder()
	out := d.Decode([]byte(in)) + d.Flush()
	assert.Equal(t, in, out)
}

// =============================================================================
// ASSEMBLER TESTS
// =============================================================================

func TestAssembler_FullIsPrefixOfChunks(t *testing.T) {
	chunks := []string{"Fresh ", "almond ", "butter, ", "made daily."}
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}

	var seen []Fragment
	text, err := NewAssembler().Run(context.Background(), r, func(f Fragment) {
		seen = append(seen, f)
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Join(chunks, ""), text)

	require.Len(t, seen, len(chunks))
	for i, f := range seen {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, chunks[i], f.Text)
		assert.Equal(t, strings.Join(chunks[:i+1], ""), f.Full)
	}
}

func TestAssembler_MultibyteAcrossChunks(t *testing.T) {
	input := "Amlou 🥜 très bon"
	r := &chunkReader{chunks: split(input, 7, 2, 6)}

	var fulls []string
	text, err := NewAssembler().Run(context.Background(), r, func(f Fragment) {
		fulls = append(fulls, f.Full)
	})
	require.NoError(t, err)
	assert.Equal(t, input, text)
	for _, full := range fulls {
		assert.True(t, utf8.ValidString(full))
		assert.True(t, strings.HasPrefix(input, full))
	}
}

func TestAssembler_SmallReadSize(t *testing.T) {
	input := "héllo wörld 🎉"
	text, err := NewAssemblerSize(1).Run(context.Background(), strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, input, text)
}

func TestAssembler_ReadErrorKeepsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: [][]byte{[]byte("partial ")}, err: boom}

	a := NewAssembler()
	text, err := a.Run(context.Background(), r, nil)
	require.Error(t, err)
	assert.Equal(t, "partial ", text)

	var pe *PartialError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "partial ", pe.Partial)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, a.Stats().Chunks)
	assert.Equal(t, int64(8), a.Stats().Bytes)
}

func TestAssembler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &chunkReader{chunks: [][]byte{[]byte("one"), []byte("two")}}

	_, err := NewAssembler().Run(ctx, r, func(Fragment) { cancel() })
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAssembler_EmptyStream(t *testing.T) {
	called := false
	text, err := NewAssembler().Run(context.Background(), strings.NewReader(""), func(Fragment) { called = true })
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.False(t, called)
}

func TestAssembler_Reusable(t *testing.T) {
	a := NewAssembler()
	_, err := a.Run(context.Background(), strings.NewReader("first"), nil)
	require.NoError(t, err)
	text, err := a.Run(context.Background(), strings.NewReader("second"), nil)
	require.NoError(t, err)
	assert.Equal(t, "second", text)
	assert.Equal(t, "second", a.Text())
}
