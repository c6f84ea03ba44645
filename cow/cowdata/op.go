// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.chromium.org/luci/common/errors"
)

// OpType is the kind of an operation record. The values are protocol
// constants; changing them breaks container compatibility.
type OpType byte

// The supported operation kinds.
const (
	// OpCopy copies an existing block of the base device to the
	// destination block.
	OpCopy OpType = iota + 1

	// OpReplace writes new (possibly compressed) content, carried in the
	// payload region, to the destination block.
	OpReplace

	// OpZero fills the destination block with zero bytes.
	OpZero
)

// Valid returns nil iff this OpType is valid.
func (t OpType) Valid() error {
	switch t {
	case OpCopy, OpReplace, OpZero:
		return nil
	}
	return errors.Reason("unknown operation type 0x%x", byte(t)).Err()
}

func (t OpType) String() string {
	switch t {
	case OpCopy:
		return "Copy"
	case OpReplace:
		return "Replace"
	case OpZero:
		return "Zero"
	}
	return fmt.Sprintf("OpType(0x%x)", byte(t))
}

// OpSize is the fixed size of an on-disk operation record, in bytes.
const OpSize = 22

// Operation is one record of the operation table. Every record covers
// exactly one destination block; multi-block writes and zero fills are
// decomposed into one record per block before they reach the table.
type Operation struct {
	// Type is the kind of operation.
	Type OpType

	// Compression is the scheme the stored payload was compressed with.
	// Only meaningful for Replace records; always CompressionNone
	// otherwise.
	Compression CompressionScheme

	// DataLength is the number of stored payload bytes. 0 for Copy and
	// Zero records.
	DataLength uint32

	// NewBlock is the destination block index.
	NewBlock uint64

	// Source depends on Type: the source block index for Copy, the byte
	// offset of the stored payload within the payload region for Replace,
	// and 0 for Zero.
	Source uint64
}

// Write writes the 22 byte record to w.
func (o Operation) Write(w io.Writer) error {
	var buf [OpSize]byte
	buf[0] = byte(o.Type)
	buf[1] = byte(o.Compression)
	binary.LittleEndian.PutUint32(buf[2:], o.DataLength)
	binary.LittleEndian.PutUint64(buf[6:], o.NewBlock)
	binary.LittleEndian.PutUint64(buf[14:], o.Source)
	_, err := w.Write(buf[:])
	return err
}

// Read reads one record from r, validating its type and compression scheme.
func (o *Operation) Read(r io.Reader) error {
	var buf [OpSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return errors.Annotate(ErrFormat, "truncated operation record: %s", err).Err()
	}

	o.Type = OpType(buf[0])
	o.Compression = CompressionScheme(buf[1])
	o.DataLength = binary.LittleEndian.Uint32(buf[2:])
	o.NewBlock = binary.LittleEndian.Uint64(buf[6:])
	o.Source = binary.LittleEndian.Uint64(buf[14:])

	if err := o.Type.Valid(); err != nil {
		return errors.Annotate(ErrFormat, "%s", err).Err()
	}
	if err := o.Compression.Valid(); err != nil {
		return errors.Annotate(ErrFormat, "%s", err).Err()
	}
	return nil
}
