// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cowdata

import (
	"go.chromium.org/luci/common/errors"
)

// Sentinel errors for the failure classes of the container format. They are
// wrapped with annotations at the failure site, so both errors.Is and
// message matching work.
var (
	// ErrFormat covers bad magic, unsupported versions and truncated
	// headers or operation tables.
	ErrFormat = errors.New("malformed container")

	// ErrAlignment is returned when a raw write is not an exact multiple
	// of the container's block size.
	ErrAlignment = errors.New("write size is not a multiple of the block size")

	// ErrDuplicateBlock is returned when a destination block already has
	// an operation record.
	ErrDuplicateBlock = errors.New("destination block already recorded")

	// ErrBlockOrder is returned when a destination block is below an
	// already recorded block. Records must be appended in strictly
	// ascending destination order, so a repeat of any block below the
	// highest one recorded also reports as an ordering violation;
	// ErrDuplicateBlock is only distinguishable for the most recently
	// recorded block.
	ErrBlockOrder = errors.New("destination block out of order")

	// ErrDecompress is returned when a stored payload cannot be
	// reconstructed with the scheme named in its record.
	ErrDecompress = errors.New("stored payload cannot be decompressed")

	// ErrState is returned for operations performed in an invalid state,
	// like adding to a finalized writer or reading past an exhausted
	// iterator.
	ErrState = errors.New("invalid operation for current state")
)
