// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns the raw byte stream of a generation response into
// text.
//
// The backend flushes bytes as the model produces them, so chunk
// boundaries can fall inside a multi-byte UTF-8 character. Decoder carries
// such partial sequences over to the next chunk. Assembler drives a Decoder
// over an io.Reader and reports each decoded fragment together with the
// text accumulated so far:
//
//	a := stream.NewAssembler()
//	text, err := a.Run(ctx, resp.Body, func(f stream.Fragment) {
//		render(f.Full)
//	})
package stream
