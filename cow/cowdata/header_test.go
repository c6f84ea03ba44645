// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"bytes"
	"testing"

	. "go.chromium.org/luci/common/testing/assertions"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	Convey("Header", t, func() {
		hdr := Header{
			Magic:        Magic,
			MajorVersion: VersionMajor,
			MinorVersion: VersionMinor,
			BlockSize:    4096,
			NumOps:       3,
		}

		Convey("write", func() {
			buf := &bytes.Buffer{}
			So(hdr.Write(buf), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, []byte{
				'S', 'n', 'a', 'p', 'D', 'l', 't', '!', // magic
				1, 0, // major version
				0, 0, // minor version
				0, 16, 0, 0, // block size (4096)
				3, 0, 0, 0, // num ops
			})
		})

		Convey("read", func() {
			buf := &bytes.Buffer{}
			So(hdr.Write(buf), ShouldBeNil)

			Convey("good", func() {
				got, err := ReadHeader(buf)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, hdr)
			})

			Convey("bad magic", func() {
				b := buf.Bytes()
				b[0] = 'P'
				_, err := ReadHeader(bytes.NewReader(b))
				So(err, ShouldErrLike, "bad magic")
				So(err, ShouldErrLike, ErrFormat)
			})

			Convey("newer major version", func() {
				b := buf.Bytes()
				b[8] = 2
				_, err := ReadHeader(bytes.NewReader(b))
				So(err, ShouldErrLike, "unsupported major version: 2 != 1")
			})

			Convey("newer minor version is fine", func() {
				b := buf.Bytes()
				b[10] = 9
				got, err := ReadHeader(bytes.NewReader(b))
				So(err, ShouldBeNil)
				So(got.MinorVersion, ShouldEqual, 9)
			})

			Convey("zero block size", func() {
				b := buf.Bytes()
				b[12], b[13] = 0, 0
				_, err := ReadHeader(bytes.NewReader(b))
				So(err, ShouldErrLike, "zero block size")
			})

			Convey("short read", func() {
				_, err := ReadHeader(bytes.NewReader(buf.Bytes()[:10]))
				So(err, ShouldErrLike, "truncated header")
				So(err, ShouldErrLike, ErrFormat)
			})
		})
	})
}
