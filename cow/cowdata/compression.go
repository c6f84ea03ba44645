// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"go.chromium.org/luci/common/errors"
)

// CompressionScheme indicates how a Replace record's payload is stored, as
// recorded in that record's compression field. The values are protocol
// constants; changing them breaks container compatibility.
//
// A scheme always operates on exactly one block's worth of plaintext, never
// across block boundaries, so every stored payload is independently
// decodable. The configured scheme's output is always stored, even when it
// is not smaller than the input; there is no fallback to raw storage.
type CompressionScheme byte

// The supported compression schemes.
const (
	CompressionNone CompressionScheme = iota
	CompressionGz
	CompressionLz4
	CompressionZstd
	CompressionSnappy
)

// zstdEncoder and zstdDecoder are shared across all Compress/Decompress
// calls; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil); err != nil {
		panic("cowdata: zstd encoder initialization failed: " + err.Error())
	}
	if zstdDecoder, err = zstd.NewReader(nil); err != nil {
		panic("cowdata: zstd decoder initialization failed: " + err.Error())
	}
}

// ParseCompressionScheme parses a scheme from its configuration name. The
// empty string means CompressionNone.
func ParseCompressionScheme(name string) (CompressionScheme, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "gz":
		return CompressionGz, nil
	case "lz4":
		return CompressionLz4, nil
	case "zstd":
		return CompressionZstd, nil
	case "snappy":
		return CompressionSnappy, nil
	}
	return 0, errors.Reason("unknown compression scheme %q", name).Err()
}

// Valid returns nil iff this CompressionScheme is valid.
func (c CompressionScheme) Valid() error {
	switch c {
	case CompressionNone, CompressionGz, CompressionLz4, CompressionZstd,
		CompressionSnappy:
		return nil
	}
	return errors.Reason("unknown compression scheme 0x%x", byte(c)).Err()
}

func (c CompressionScheme) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGz:
		return "gz"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionSnappy:
		return "snappy"
	}
	return fmt.Sprintf("CompressionScheme(0x%x)", byte(c))
}

// Compress compresses one block's plaintext, returning the bytes to store.
func (c CompressionScheme) Compress(block []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		out := make([]byte, len(block))
		copy(out, block)
		return out, nil

	case CompressionGz:
		buf := &bytes.Buffer{}
		zw := zlib.NewWriter(buf)
		if _, err := zw.Write(block); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionLz4:
		// The lz4 block API refuses incompressible input; the frame
		// format always yields valid output, which the no-fallback
		// storage policy requires.
		buf := &bytes.Buffer{}
		zw := lz4.NewWriter(buf)
		if _, err := zw.Write(block); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(block, nil), nil

	case CompressionSnappy:
		return snappy.Encode(nil, block), nil
	}
	return nil, c.Valid()
}

// Decompress reconstructs one block's plaintext from its stored bytes.
// originalLen is the block size recorded in the container header; anything
// other than exactly originalLen reconstructed bytes is an ErrDecompress.
func (c CompressionScheme) Decompress(stored []byte, originalLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(stored) != originalLen {
			return nil, errors.Annotate(ErrDecompress,
				"raw payload is %d bytes, expected %d", len(stored), originalLen).Err()
		}
		out := make([]byte, len(stored))
		copy(out, stored)
		return out, nil

	case CompressionGz:
		zr, err := zlib.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, errors.Annotate(ErrDecompress, "gz: %s", err).Err()
		}
		return readBlock(zr, originalLen, "gz")

	case CompressionLz4:
		return readBlock(lz4.NewReader(bytes.NewReader(stored)), originalLen, "lz4")

	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, originalLen))
		if err != nil {
			return nil, errors.Annotate(ErrDecompress, "zstd: %s", err).Err()
		}
		if len(out) != originalLen {
			return nil, errors.Annotate(ErrDecompress,
				"zstd produced %d bytes, expected %d", len(out), originalLen).Err()
		}
		return out, nil

	case CompressionSnappy:
		out, err := snappy.Decode(nil, stored)
		if err != nil {
			return nil, errors.Annotate(ErrDecompress, "snappy: %s", err).Err()
		}
		if len(out) != originalLen {
			return nil, errors.Annotate(ErrDecompress,
				"snappy produced %d bytes, expected %d", len(out), originalLen).Err()
		}
		return out, nil
	}
	return nil, c.Valid()
}

// readBlock reads exactly originalLen decompressed bytes from zr and
// verifies the stream holds no more than that.
func readBlock(zr io.Reader, originalLen int, scheme string) ([]byte, error) {
	out := make([]byte, originalLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, errors.Annotate(ErrDecompress, "%s: %s", scheme, err).Err()
	}
	var one [1]byte
	if n, _ := zr.Read(one[:]); n != 0 {
		return nil, errors.Annotate(ErrDecompress,
			"%s produced more than %d bytes", scheme, originalLen).Err()
	}
	return out, nil
}
