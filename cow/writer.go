// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cow

import (
	"bytes"
	"io"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"

	"github.com/snapfmt/snapdelta/cow/cowdata"
)

type writerOptionData struct {
	blockSize   uint32
	compression string
	checksum    cowdata.ChecksumScheme
}

// WriterOption functions can be supplied to NewWriter.
type WriterOption func(*writerOptionData)

// WithBlockSize sets the container's block size in bytes. The default is
// cowdata.DefaultBlockSize.
func WithBlockSize(size uint32) WriterOption {
	return func(o *writerOptionData) {
		o.blockSize = size
	}
}

// WithCompression selects the compression scheme for Replace payloads by
// its configuration name ("none", "gz", "lz4", "zstd", "snappy"). The empty
// string (the default) means no compression.
func WithCompression(name string) WriterOption {
	return func(o *writerOptionData) {
		o.compression = name
	}
}

// WithChecksum makes Finalize append a checksum trailer of the given scheme
// after the payload region. The default, cowdata.ChecksumNULL, writes no
// trailer at all.
func WithChecksum(kind cowdata.ChecksumScheme) WriterOption {
	return func(o *writerOptionData) {
		o.checksum = kind
	}
}

// Writer builds a container in memory and emits it to the underlying stream
// at Finalize.
//
// A Writer belongs to a single producer from construction through Finalize;
// it holds no locks. Any failed operation is terminal for the container:
// the Writer refuses further use and the caller must start over. The Writer
// never closes the underlying stream.
type Writer struct {
	w io.Writer

	blockSize uint32
	scheme    cowdata.CompressionScheme
	checksum  cowdata.ChecksumScheme

	ops     []cowdata.Operation
	payload bytes.Buffer

	lastBlock uint64
	haveOps   bool
	done      bool
}

// NewWriter creates a Writer which will emit a container to w.
func NewWriter(w io.Writer, options ...WriterOption) (*Writer, error) {
	opts := writerOptionData{
		blockSize: cowdata.DefaultBlockSize,
		checksum:  cowdata.ChecksumNULL,
	}
	for _, o := range options {
		o(&opts)
	}

	if opts.blockSize == 0 {
		return nil, errors.Reason("block size must be positive").Err()
	}
	scheme, err := cowdata.ParseCompressionScheme(opts.compression)
	if err != nil {
		return nil, errors.Annotate(err, "configuring writer").Err()
	}
	if err := opts.checksum.Valid(); err != nil {
		return nil, errors.Annotate(err, "configuring writer").Err()
	}

	return &Writer{
		w:         w,
		blockSize: opts.blockSize,
		scheme:    scheme,
		checksum:  opts.checksum,
	}, nil
}

// maxOps is the largest operation count the header's uint32 num_ops field
// can record.
const maxOps = 1<<32 - 1

func checkOpCount(n int) error {
	if uint64(n) > maxOps {
		return errors.Reason("%d operations exceed the format limit of %d", n, uint64(maxOps)).Err()
	}
	return nil
}

// fail marks the Writer terminally failed and returns err.
func (w *Writer) fail(err error) error {
	w.done = true
	return err
}

func (w *Writer) checkOpen() error {
	if w.done {
		return errors.Annotate(cowdata.ErrState, "container is finalized or failed").Err()
	}
	return nil
}

// claimBlock enforces strictly ascending destination blocks across all
// records.
func (w *Writer) claimBlock(block uint64) error {
	if w.haveOps {
		if block == w.lastBlock {
			return errors.Annotate(cowdata.ErrDuplicateBlock, "block %d", block).Err()
		}
		if block < w.lastBlock {
			return errors.Annotate(cowdata.ErrBlockOrder,
				"block %d after block %d", block, w.lastBlock).Err()
		}
	}
	w.lastBlock = block
	w.haveOps = true
	return nil
}

// AddCopy records that newBlock of the target is a verbatim copy of
// sourceBlock of the base device.
func (w *Writer) AddCopy(newBlock, sourceBlock uint64) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if err := w.claimBlock(newBlock); err != nil {
		return w.fail(err)
	}
	w.ops = append(w.ops, cowdata.Operation{
		Type:     cowdata.OpCopy,
		NewBlock: newBlock,
		Source:   sourceBlock,
	})
	return nil
}

// AddRawBlocks records new content for consecutive target blocks starting
// at newBlock. len(data) must be a positive exact multiple of the block
// size; the data is split into one Replace record per block, and each
// block's slice is compressed independently with the configured scheme.
func (w *Writer) AddRawBlocks(newBlock uint64, data []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	bs := int(w.blockSize)
	if len(data) == 0 || len(data)%bs != 0 {
		return w.fail(errors.Annotate(cowdata.ErrAlignment,
			"%d bytes with a %d byte block size", len(data), bs).Err())
	}

	for i := 0; i < len(data)/bs; i++ {
		block := newBlock + uint64(i)
		if err := w.claimBlock(block); err != nil {
			return w.fail(err)
		}
		stored, err := w.scheme.Compress(data[i*bs : (i+1)*bs])
		if err != nil {
			return w.fail(errors.Annotate(err, "compressing block %d", block).Err())
		}
		w.ops = append(w.ops, cowdata.Operation{
			Type:        cowdata.OpReplace,
			Compression: w.scheme,
			DataLength:  uint32(len(stored)),
			NewBlock:    block,
			Source:      uint64(w.payload.Len()),
		})
		w.payload.Write(stored)
	}
	return nil
}

// AddZeroBlocks records that count consecutive target blocks starting at
// newBlock are filled with zero bytes. Each block gets its own Zero record,
// so every record stays single-block for iteration and random access.
func (w *Writer) AddZeroBlocks(newBlock, count uint64) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		if err := w.claimBlock(newBlock + i); err != nil {
			return w.fail(err)
		}
		w.ops = append(w.ops, cowdata.Operation{
			Type:     cowdata.OpZero,
			NewBlock: newBlock + i,
		})
	}
	return nil
}

// Finalize writes the header, the operation table and the payload region,
// in that order, followed by the checksum trailer when one was configured.
//
// After Finalize (successful or not) the Writer refuses all further calls.
// A failed write may leave the stream truncated; there is no rollback.
func (w *Writer) Finalize() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.done = true

	if err := checkOpCount(len(w.ops)); err != nil {
		return err
	}

	out := io.Writer(w.w)
	var trailer func() error
	if w.checksum != cowdata.ChecksumNULL {
		cw := w.checksum.Writer(w.w)
		out = cw
		trailer = cw.Close
	}
	cnt := &iotools.CountingWriter{Writer: out}

	hdr := cowdata.Header{
		Magic:        cowdata.Magic,
		MajorVersion: cowdata.VersionMajor,
		MinorVersion: cowdata.VersionMinor,
		BlockSize:    w.blockSize,
		NumOps:       uint32(len(w.ops)),
	}
	if err := hdr.Write(cnt); err != nil {
		return errors.Annotate(err, "writing header").Err()
	}
	for i, op := range w.ops {
		if err := op.Write(cnt); err != nil {
			return errors.Annotate(err, "writing operation %d at offset %d",
				i, cnt.Count).Err()
		}
	}
	if _, err := cnt.Write(w.payload.Bytes()); err != nil {
		return errors.Annotate(err, "writing payload region at offset %d",
			cnt.Count).Err()
	}
	if trailer != nil {
		if err := trailer(); err != nil {
			return errors.Annotate(err, "writing checksum trailer").Err()
		}
	}
	return nil
}
