// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cow

import (
	"context"
	"io"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/snapfmt/snapdelta/cow/cowdata"
)

// writerAtSink delivers decoded payload bytes straight into target at a
// fixed byte offset.
type writerAtSink struct {
	w   io.WriterAt
	off int64
	buf []byte
}

func (s *writerAtSink) GetBuffer(requested int) ([]byte, error) {
	if cap(s.buf) < requested {
		s.buf = make([]byte, requested)
	}
	return s.buf[:requested], nil
}

func (s *writerAtSink) Commit(n int) error {
	if _, err := s.w.WriteAt(s.buf[:n], s.off); err != nil {
		return err
	}
	s.off += int64(n)
	return nil
}

// Apply materializes the target device described by a parsed container:
// Copy records read their source block from base, Replace records decode
// their payload, Zero records write a zero block. All output goes to target
// at destination-block offsets.
//
// base and target are caller-owned; Apply never closes them.
func Apply(ctx context.Context, r *Reader, base io.ReaderAt, target io.WriterAt) error {
	bs := int64(r.Header().BlockSize)
	logging.Infof(ctx, "applying %d operations (block size %d)", len(r.ops), bs)

	buf := make([]byte, bs)
	zero := make([]byte, bs)
	for it := r.OpIter(); !it.Done(); it.Next() {
		op, err := it.Get()
		if err != nil {
			return err
		}

		switch op.Type {
		case cowdata.OpCopy:
			if _, err := base.ReadAt(buf, int64(op.Source)*bs); err != nil {
				return errors.Annotate(err, "reading base block %d", op.Source).Err()
			}
			if _, err := target.WriteAt(buf, int64(op.NewBlock)*bs); err != nil {
				return errors.Annotate(err, "copying to block %d", op.NewBlock).Err()
			}

		case cowdata.OpReplace:
			sink := &writerAtSink{w: target, off: int64(op.NewBlock) * bs}
			if err := r.ReadData(op, sink); err != nil {
				return errors.Annotate(err, "replacing block %d", op.NewBlock).Err()
			}

		case cowdata.OpZero:
			if _, err := target.WriteAt(zero, int64(op.NewBlock)*bs); err != nil {
				return errors.Annotate(err, "zeroing block %d", op.NewBlock).Err()
			}
		}
	}

	logging.Infof(ctx, "applied %d operations", len(r.ops))
	return nil
}
