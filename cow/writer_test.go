// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cow

import (
	"bytes"
	"testing"

	. "go.chromium.org/luci/common/testing/assertions"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/snapfmt/snapdelta/cow/cowdata"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	Convey("Writer", t, func() {
		buf := &bytes.Buffer{}

		Convey("options", func() {
			Convey("zero block size", func() {
				_, err := NewWriter(buf, WithBlockSize(0))
				So(err, ShouldErrLike, "block size must be positive")
			})

			Convey("unknown compression", func() {
				_, err := NewWriter(buf, WithCompression("brotli"))
				So(err, ShouldErrLike, `unknown compression scheme "brotli"`)
			})

			Convey("unknown checksum", func() {
				_, err := NewWriter(buf, WithChecksum(cowdata.ChecksumScheme(7)))
				So(err, ShouldErrLike, "unknown checksum scheme 0x7")
			})
		})

		Convey("single copy container", func() {
			w, err := NewWriter(buf)
			So(err, ShouldBeNil)
			So(w.AddCopy(10, 20), ShouldBeNil)
			So(w.Finalize(), ShouldBeNil)

			So(buf.Bytes(), ShouldResemble, []byte{
				'S', 'n', 'a', 'p', 'D', 'l', 't', '!', // magic
				1, 0, // major version
				0, 0, // minor version
				0, 16, 0, 0, // block size (4096)
				1, 0, 0, 0, // num ops
				1,          // Copy
				0,          // compression none
				0, 0, 0, 0, // data length
				10, 0, 0, 0, 0, 0, 0, 0, // new block
				20, 0, 0, 0, 0, 0, 0, 0, // source
			})
		})

		Convey("alignment", func() {
			w, err := NewWriter(buf, WithBlockSize(16))
			So(err, ShouldBeNil)

			Convey("short", func() {
				err := w.AddRawBlocks(1, make([]byte, 15))
				So(err, ShouldErrLike, "15 bytes with a 16 byte block size")
				So(err, ShouldErrLike, cowdata.ErrAlignment)
			})

			Convey("empty", func() {
				So(w.AddRawBlocks(1, nil), ShouldErrLike, cowdata.ErrAlignment)
			})

			Convey("ragged multiple", func() {
				So(w.AddRawBlocks(1, make([]byte, 40)), ShouldErrLike, cowdata.ErrAlignment)
			})
		})

		Convey("destination ordering", func() {
			w, err := NewWriter(buf, WithBlockSize(16))
			So(err, ShouldBeNil)
			So(w.AddCopy(10, 3), ShouldBeNil)

			Convey("duplicate", func() {
				err := w.AddCopy(10, 4)
				So(err, ShouldErrLike, cowdata.ErrDuplicateBlock)
				So(err, ShouldErrLike, "block 10")
			})

			Convey("out of order", func() {
				err := w.AddZeroBlocks(5, 1)
				So(err, ShouldErrLike, cowdata.ErrBlockOrder)
				So(err, ShouldErrLike, "block 5 after block 10")
			})

			Convey("duplicate below the watermark", func() {
				// Only a repeat of the most recent block is
				// distinguishable as a duplicate; older repeats report
				// as ordering violations.
				So(w.AddCopy(20, 4), ShouldBeNil)
				err := w.AddCopy(10, 5)
				So(err, ShouldErrLike, cowdata.ErrBlockOrder)
				So(err, ShouldErrLike, "block 10 after block 20")
			})

			Convey("failure is terminal", func() {
				So(w.AddCopy(10, 4), ShouldErrLike, cowdata.ErrDuplicateBlock)
				So(w.AddCopy(11, 4), ShouldErrLike, cowdata.ErrState)
				So(w.Finalize(), ShouldErrLike, cowdata.ErrState)
			})
		})

		Convey("after finalize", func() {
			w, err := NewWriter(buf)
			So(err, ShouldBeNil)
			So(w.AddCopy(1, 2), ShouldBeNil)
			So(w.Finalize(), ShouldBeNil)

			So(w.AddCopy(3, 4), ShouldErrLike, cowdata.ErrState)
			So(w.AddRawBlocks(5, make([]byte, 4096)), ShouldErrLike, cowdata.ErrState)
			So(w.AddZeroBlocks(6, 1), ShouldErrLike, cowdata.ErrState)
			So(w.Finalize(), ShouldErrLike, cowdata.ErrState)
		})

		Convey("operation count limit", func() {
			So(checkOpCount(0), ShouldBeNil)
			So(checkOpCount(maxOps), ShouldBeNil)
			So(checkOpCount(maxOps+1), ShouldErrLike,
				"4294967296 operations exceed the format limit of 4294967295")
		})

		Convey("empty container", func() {
			w, err := NewWriter(buf, WithBlockSize(512))
			So(err, ShouldBeNil)
			So(w.Finalize(), ShouldBeNil)

			r, err := Open(bytes.NewReader(buf.Bytes()))
			So(err, ShouldBeNil)
			So(r.Header().NumOps, ShouldEqual, 0)
			So(r.Header().BlockSize, ShouldEqual, 512)
			So(r.OpIter().Done(), ShouldBeTrue)
		})
	})
}
