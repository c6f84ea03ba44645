// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cow

import (
	"io"

	"go.chromium.org/luci/common/errors"

	"github.com/snapfmt/snapdelta/cow/cowdata"
)

type openOptionData struct {
	verify bool
}

// OpenOption functions can be supplied to the Open function.
type OpenOption func(*openOptionData)

// WithVerification makes Open verify the container's checksum trailer
// before parsing. It fails on containers written without a trailer.
func WithVerification(verify bool) OpenOption {
	return func(o *openOptionData) {
		o.verify = verify
	}
}

// Reader is a parsed container. The header and operation table are loaded
// once at Open and are immutable afterwards; any number of iterators may
// walk them concurrently. ReadData seeks the underlying stream, so
// concurrent ReadData calls sharing one stream must be serialized by the
// caller (or given independent stream handles).
//
// The Reader never closes the underlying stream.
type Reader struct {
	r io.ReadSeeker

	hdr        cowdata.Header
	ops        []cowdata.Operation
	payloadOff int64
}

// Open reads and validates the container header from the beginning of r and
// loads the complete operation table.
//
// A bad magic number, an unsupported major version, or a stream shorter
// than header plus table fails with cowdata.ErrFormat; the table is never
// partially populated.
func Open(r io.ReadSeeker, options ...OpenOption) (*Reader, error) {
	opts := openOptionData{}
	for _, o := range options {
		o(&opts)
	}

	if opts.verify {
		if _, err := cowdata.Verify(r); err != nil {
			return nil, errors.Annotate(err, "verifying checksum").Err()
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Annotate(err, "seeking to header").Err()
	}
	hdr, err := cowdata.ReadHeader(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading header").Err()
	}

	// num_ops is untrusted input; bound the table against the actual
	// stream size before allocating it.
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Annotate(err, "sizing stream").Err()
	}
	tableEnd := cowdata.HeaderSize + int64(hdr.NumOps)*cowdata.OpSize
	if tableEnd > size {
		return nil, errors.Annotate(cowdata.ErrFormat,
			"operation table extends past the end of the stream: need %d bytes, have %d",
			tableEnd, size).Err()
	}
	if _, err := r.Seek(cowdata.HeaderSize, io.SeekStart); err != nil {
		return nil, errors.Annotate(err, "seeking to operation table").Err()
	}

	ops := make([]cowdata.Operation, hdr.NumOps)
	for i := range ops {
		if err := ops[i].Read(r); err != nil {
			return nil, errors.Annotate(err, "reading operation %d of %d",
				i, hdr.NumOps).Err()
		}
	}

	return &Reader{
		r:          r,
		hdr:        hdr,
		ops:        ops,
		payloadOff: cowdata.HeaderSize + int64(hdr.NumOps)*cowdata.OpSize,
	}, nil
}

// Header returns the parsed container header.
func (r *Reader) Header() cowdata.Header { return r.hdr }

// OpIter returns a fresh forward cursor over the operation table, in
// on-disk (ascending destination block) order.
func (r *Reader) OpIter() *OpIter {
	return &OpIter{ops: r.ops}
}

// ReadData decodes the payload of a Replace record and streams the
// plaintext block to sink, honoring the sink's grant sizes (see ByteSink).
//
// Calling it with a Copy or Zero record is a cowdata.ErrState. A failed
// ReadData invalidates neither the Reader nor any iterator; other records
// remain decodable.
func (r *Reader) ReadData(op *cowdata.Operation, sink ByteSink) error {
	if op.Type != cowdata.OpReplace {
		return errors.Annotate(cowdata.ErrState,
			"cannot read data for a %s operation", op.Type).Err()
	}

	if _, err := r.r.Seek(r.payloadOff+int64(op.Source), io.SeekStart); err != nil {
		return errors.Annotate(err, "seeking to payload of block %d", op.NewBlock).Err()
	}
	stored := make([]byte, op.DataLength)
	if _, err := io.ReadFull(r.r, stored); err != nil {
		return errors.Annotate(err, "reading payload of block %d", op.NewBlock).Err()
	}

	block, err := op.Compression.Decompress(stored, int(r.hdr.BlockSize))
	if err != nil {
		return errors.Annotate(err, "decoding block %d", op.NewBlock).Err()
	}

	// The sink decides the chunk size; never assume the whole block fits
	// in one grant.
	for len(block) > 0 {
		buf, err := sink.GetBuffer(len(block))
		if err != nil {
			return errors.Annotate(err, "requesting sink buffer").Err()
		}
		if len(buf) == 0 {
			return errors.Reason("sink granted an empty buffer").Err()
		}
		n := copy(buf, block)
		if err := sink.Commit(n); err != nil {
			return errors.Annotate(err, "committing %d bytes to sink", n).Err()
		}
		block = block[n:]
	}
	return nil
}

// OpIter is a forward-only cursor over a Reader's operation table. It holds
// an index into the table owned by the Reader; it never copies or re-parses
// records.
type OpIter struct {
	ops []cowdata.Operation
	idx int
}

// Done returns true once the cursor has moved past the last record.
func (i *OpIter) Done() bool { return i.idx >= len(i.ops) }

// Get returns the current record. Calling Get on an exhausted iterator is
// a cowdata.ErrState.
func (i *OpIter) Get() (*cowdata.Operation, error) {
	if i.Done() {
		return nil, errors.Annotate(cowdata.ErrState, "iterator exhausted").Err()
	}
	return &i.ops[i.idx], nil
}

// Next advances the cursor. Advancing an exhausted iterator is a no-op.
func (i *OpIter) Next() {
	if !i.Done() {
		i.idx++
	}
}
