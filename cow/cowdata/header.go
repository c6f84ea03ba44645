// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"encoding/binary"
	"io"

	"go.chromium.org/luci/common/errors"
)

// Magic is the magic number at the beginning of every container. It reads
// as "SnapDlt!" when stored little-endian.
const Magic uint64 = 0x21746c4470616e53

// The version of the container format. A reader accepts any container whose
// major version matches its own; the minor version only signals additions
// which older readers may safely ignore.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// HeaderSize is the fixed size of the on-disk header, in bytes.
const HeaderSize = 20

// DefaultBlockSize is the block size used when the writer is not configured
// otherwise. Readers must always take the block size from the header.
const DefaultBlockSize uint32 = 4096

// Header is the fixed-size header at offset 0 of a container. All fields
// are stored little-endian.
type Header struct {
	// Magic must equal Magic.
	Magic uint64

	// MajorVersion and MinorVersion of the format which wrote the
	// container.
	MajorVersion uint16
	MinorVersion uint16

	// BlockSize is the number of bytes per logical block.
	BlockSize uint32

	// NumOps is the number of operation records following the header.
	NumOps uint32
}

// Write writes the 20 byte header to w.
func (h Header) Write(w io.Writer) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint64(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[8:], h.MajorVersion)
	binary.LittleEndian.PutUint16(buf[10:], h.MinorVersion)
	binary.LittleEndian.PutUint32(buf[12:], h.BlockSize)
	binary.LittleEndian.PutUint32(buf[16:], h.NumOps)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads a header from r, checking the magic number and that the
// major version is one this implementation understands.
func ReadHeader(r io.Reader) (h Header, err error) {
	var buf [HeaderSize]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		err = errors.Annotate(ErrFormat, "truncated header: %s", err).Err()
		return
	}

	h.Magic = binary.LittleEndian.Uint64(buf[0:])
	h.MajorVersion = binary.LittleEndian.Uint16(buf[8:])
	h.MinorVersion = binary.LittleEndian.Uint16(buf[10:])
	h.BlockSize = binary.LittleEndian.Uint32(buf[12:])
	h.NumOps = binary.LittleEndian.Uint32(buf[16:])

	if h.Magic != Magic {
		err = errors.Annotate(ErrFormat, "bad magic: 0x%016x", h.Magic).Err()
		return
	}
	if h.MajorVersion != VersionMajor {
		err = errors.Annotate(ErrFormat, "unsupported major version: %d != %d",
			h.MajorVersion, VersionMajor).Err()
		return
	}
	if h.BlockSize == 0 {
		err = errors.Annotate(ErrFormat, "zero block size").Err()
		return
	}

	return
}
