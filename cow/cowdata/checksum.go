// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"go.chromium.org/luci/common/errors"
)

// ChecksumScheme identifies the digest algorithm of a container's optional
// checksum trailer. The trailer is the scheme byte, the digest bytes, and
// the digest length as a single trailing byte; the digest covers every
// container byte before the trailer. The trailing length byte lets the
// trailer be located by reading from the end of the stream without parsing
// the container.
type ChecksumScheme byte

// The available checksum schemes.
const (
	ChecksumSHA2_256 ChecksumScheme = iota + 1
	ChecksumSHA2_512
	ChecksumBLAKE2b
	ChecksumSHA3_256

	// ChecksumNULL means no trailer is written and no verification is
	// possible.
	ChecksumNULL ChecksumScheme = 255
)

// Valid returns nil iff the ChecksumScheme is valid.
func (c ChecksumScheme) Valid() error {
	switch c {
	case ChecksumSHA2_256, ChecksumSHA2_512, ChecksumBLAKE2b, ChecksumSHA3_256:
	case ChecksumNULL:
	default:
		return errors.Reason("unknown checksum scheme 0x%x", byte(c)).Err()
	}
	return nil
}

func (c ChecksumScheme) String() string {
	switch c {
	case ChecksumSHA2_256:
		return "ChecksumSHA2_256"
	case ChecksumSHA2_512:
		return "ChecksumSHA2_512"
	case ChecksumBLAKE2b:
		return "ChecksumBLAKE2b"
	case ChecksumSHA3_256:
		return "ChecksumSHA3_256"
	case ChecksumNULL:
		return "ChecksumNULL"
	}
	return fmt.Sprintf("ChecksumScheme(0x%x)", byte(c))
}

// nullHash is so that ChecksumScheme.Hash returns a valid hash.Hash for
// ChecksumNULL.
type nullHash struct{}

var _ hash.Hash = nullHash{}

func (nullHash) Reset()                    {}
func (nullHash) BlockSize() int            { return 0 }
func (nullHash) Size() int                 { return 0 }
func (nullHash) Sum(buf []byte) []byte     { return buf }
func (nullHash) Write([]byte) (int, error) { return 0, nil }

// Hash gets the hash.Hash associated with this scheme.
func (c ChecksumScheme) Hash() hash.Hash {
	var h hash.Hash
	switch c {
	case ChecksumSHA2_256:
		h = sha256.New()
	case ChecksumSHA2_512:
		h = sha512.New()
	case ChecksumBLAKE2b:
		h, _ = blake2b.New512(nil)
	case ChecksumSHA3_256:
		h = sha3.New256()
	case ChecksumNULL:
		h = nullHash{}
	}
	if h == nil {
		panic(c.Valid())
	}
	if h.Size() > 255 {
		panic("selected checksum has a size over 255?")
	}
	return h
}

// Writer wraps w in a WriteCloser which hashes everything written through
// it and appends the checksum trailer on Close. It never closes w; the
// stream's lifecycle belongs to the caller.
func (c ChecksumScheme) Writer(w io.Writer) io.WriteCloser {
	if c == ChecksumNULL {
		return writeCloseHook{w, func() error {
			_, err := w.Write([]byte{byte(c), 0})
			return err
		}}
	}

	h := c.Hash()
	return writeCloseHook{
		io.MultiWriter(w, h),
		func() error {
			buf := make([]byte, 0, h.Size()+2)
			buf = append(buf, byte(c))
			buf = h.Sum(buf)
			buf = append(buf, byte(h.Size()))
			_, err := w.Write(buf)
			return err
		},
	}
}

// ErrMismatchedChecksum is returned from Verify when the digest doesn't
// match up.
type ErrMismatchedChecksum struct {
	Scheme  ChecksumScheme
	Nominal []byte
	Actual  []byte
}

func (e *ErrMismatchedChecksum) Error() string {
	return fmt.Sprintf("mismatched checksum (%s): %x expected %x", e.Scheme,
		e.Nominal, e.Actual)
}

// ParseTrailer seeks to the end of r, parses the checksum trailer, and
// returns the pertinent details.
//
// nominalEnd is the offset where the trailer begins (i.e. the end of the
// checksummed range), measured from the beginning of the stream. The
// stream position is restored before returning.
func ParseTrailer(r io.ReadSeeker) (c ChecksumScheme, h hash.Hash, nominalEnd int64, nominalChecksum []byte, err error) {
	curOffset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	if _, err = r.Seek(-1, io.SeekEnd); err != nil {
		return
	}
	one := []byte{0}
	if _, err = io.ReadFull(r, one); err != nil {
		return
	}

	nominalSize := one[0]
	// +1 for nominalSize (we just read)
	// +nominalSize for the digest
	// +1 for the scheme byte
	if nominalEnd, err = r.Seek(-(int64(nominalSize) + 2), io.SeekCurrent); err != nil {
		return
	}
	buf := make([]byte, nominalSize+1)
	if _, err = io.ReadFull(r, buf); err != nil {
		return
	}

	c = ChecksumScheme(buf[0])
	nominalChecksum = buf[1:]
	if err = c.Valid(); err != nil {
		return
	}
	h = c.Hash()
	if int(nominalSize) != h.Size() {
		err = errors.Reason("mismatched hash size (%s): %d expected %d",
			c, nominalSize, h.Size()).Err()
		return
	}

	// finally seek back to where we started
	_, err = r.Seek(curOffset, io.SeekStart)
	return
}

// Verify parses the trailer of r, hashes the checksummed range in one pass
// and compares the digests. The stream position afterwards is unspecified.
func Verify(r io.ReadSeeker) (ChecksumScheme, error) {
	c, h, nominalEnd, nominalChecksum, err := ParseTrailer(r)
	if err != nil {
		return 0, err
	}
	if c == ChecksumNULL {
		return c, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.Copy(h, io.LimitReader(r, nominalEnd)); err != nil {
		return 0, err
	}
	actual := h.Sum(nil)
	if !bytes.Equal(actual, nominalChecksum) {
		return 0, &ErrMismatchedChecksum{c, nominalChecksum, actual}
	}
	return c, nil
}
