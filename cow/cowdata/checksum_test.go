// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"bytes"
	"crypto/sha256"
	"testing"

	. "go.chromium.org/luci/common/testing/assertions"

	. "github.com/smartystreets/goconvey/convey"
)

func TestChecksum(t *testing.T) {
	t.Parallel()

	Convey("Checksum", t, func() {
		buf := &bytes.Buffer{}
		wr := ChecksumSHA2_256.Writer(buf)
		_, err := wr.Write([]byte("hello world!"))
		So(err, ShouldBeNil)
		So(wr.Close(), ShouldBeNil)

		Convey("trailer layout", func() {
			payload := []byte("hello world!")
			payload = append(payload, 1) // ChecksumSHA2_256
			sum := sha256.Sum256([]byte("hello world!"))
			payload = append(payload, sum[:]...)
			payload = append(payload, 32)
			So(buf.Bytes(), ShouldResemble, payload)
		})

		Convey("ParseTrailer", func() {
			Convey("normal", func() {
				c, h, nominalEnd, nominalCsum, err := ParseTrailer(bytes.NewReader(buf.Bytes()))
				So(err, ShouldBeNil)
				So(c, ShouldEqual, ChecksumSHA2_256)
				So(h, ShouldResemble, sha256.New())
				So(nominalEnd, ShouldEqual, len("hello world!"))
				sum := sha256.Sum256([]byte("hello world!"))
				So(nominalCsum, ShouldResemble, sum[:])
			})

			Convey("bad size", func() {
				// Change to SHA2-512.
				buf.Bytes()[len("hello world!")] = 2
				_, _, _, _, err := ParseTrailer(bytes.NewReader(buf.Bytes()))
				So(err, ShouldErrLike, "mismatched hash size (ChecksumSHA2_512): 32 expected 64")
			})

			Convey("bad scheme", func() {
				buf.Bytes()[len("hello world!")] = 100
				_, _, _, _, err := ParseTrailer(bytes.NewReader(buf.Bytes()))
				So(err, ShouldErrLike, "unknown checksum scheme 0x64")
			})
		})

		Convey("Verify", func() {
			Convey("normal", func() {
				c, err := Verify(bytes.NewReader(buf.Bytes()))
				So(err, ShouldBeNil)
				So(c, ShouldEqual, ChecksumSHA2_256)
			})

			Convey("corrupted payload", func() {
				buf.Bytes()[0] = 'd'
				_, err := Verify(bytes.NewReader(buf.Bytes()))
				So(err, ShouldErrLike, "mismatched checksum (ChecksumSHA2_256)")
			})
		})

		Convey("null", func() {
			buf := &bytes.Buffer{}
			wr := ChecksumNULL.Writer(buf)
			_, err := wr.Write([]byte("hello world!"))
			So(err, ShouldBeNil)
			So(wr.Close(), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, []byte("hello world!\xff\x00"))

			c, err := Verify(bytes.NewReader(buf.Bytes()))
			So(err, ShouldBeNil)
			So(c, ShouldEqual, ChecksumNULL)
		})

		Convey("other schemes", func() {
			for _, c := range []ChecksumScheme{
				ChecksumSHA2_512, ChecksumBLAKE2b, ChecksumSHA3_256,
			} {
				buf := &bytes.Buffer{}
				wr := c.Writer(buf)
				_, err := wr.Write([]byte("some data"))
				So(err, ShouldBeNil)
				So(wr.Close(), ShouldBeNil)

				got, err := Verify(bytes.NewReader(buf.Bytes()))
				So(err, ShouldBeNil)
				So(got, ShouldEqual, c)
			}
		})
	})
}
