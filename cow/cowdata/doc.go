// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cowdata implements IO routines for the byte-level pieces of the
// snapdelta container format: the header, the fixed-size operation records,
// the per-block compression schemes and the checksum trailer.
package cowdata
