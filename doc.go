// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package snapdelta implements an append-only block-delta container format.
// A container records how to transform a base block device into a target
// block device without modifying the base, which makes it suitable for
// atomic, reconstructible snapshots during staged partition updates: the
// delta is written next to the base, and the target is materialized (or
// merged) later by replaying the recorded operations.
//
// A container holds one operation record per touched destination block.
// There are three kinds of operation:
//   - Copy: take an existing block of the base device verbatim.
//   - Replace: new block content, carried in the container and optionally
//     compressed.
//   - Zero: fill the destination block with zero bytes.
//
// The format is:
//   - fixed 20 byte header (magic, major/minor version, block size,
//     operation count)
//   - fixed 22 byte operation records, one per block, ordered by ascending
//     destination block
//   - the payload region: every Replace record's stored bytes, concatenated
//     in table order
//   - optionally, a checksum trailer covering everything before it
//
// Replace payloads are compressed one block at a time, never across block
// boundaries. This costs some compression ratio but means any single block
// is recoverable from its record's (offset, length) alone, without touching
// neighboring records.
//
// The checksum trailer is the scheme indicator, the digest bytes, and
// finally the digest length as a single byte. The trailing length byte
// allows the trailer to be located by reading from the end of the stream
// without parsing the container.
//
// See the cow package for the writer/reader pair and cow/cowdata for the
// byte-level layout.
package snapdelta
