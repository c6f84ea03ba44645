// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cow

import (
	"go.chromium.org/luci/common/errors"
)

// ByteSink consumes decoded payload bytes from Reader.ReadData.
//
// Delivery is chunked: the reader asks for a buffer of up to some number of
// bytes, fills however many bytes the sink actually granted, and commits
// them. A sink may grant arbitrarily small buffers (down to a single byte);
// the reader keeps requesting until every payload byte is delivered, in
// order.
type ByteSink interface {
	// GetBuffer returns a writable buffer for the next chunk. The length
	// of the returned slice is the granted capacity; it may be smaller
	// than requested but must not be zero.
	GetBuffer(requested int) ([]byte, error)

	// Commit marks the first n bytes of the most recently granted buffer
	// as filled.
	Commit(n int) error
}

// MemorySink is a ByteSink which accumulates everything delivered to it in
// memory.
type MemorySink struct {
	data    []byte
	granted int
}

var _ ByteSink = (*MemorySink)(nil)

// GetBuffer implements ByteSink. It always grants the full request.
func (s *MemorySink) GetBuffer(requested int) ([]byte, error) {
	old := len(s.data)
	s.data = append(s.data, make([]byte, requested)...)
	s.granted = requested
	return s.data[old:], nil
}

// Commit implements ByteSink.
func (s *MemorySink) Commit(n int) error {
	if n > s.granted {
		return errors.Reason("committed %d bytes of a %d byte grant", n, s.granted).Err()
	}
	s.data = s.data[:len(s.data)-(s.granted-n)]
	s.granted = 0
	return nil
}

// Bytes returns everything committed so far.
func (s *MemorySink) Bytes() []byte { return s.data }

// Reset discards all accumulated data.
func (s *MemorySink) Reset() {
	s.data = nil
	s.granted = 0
}
