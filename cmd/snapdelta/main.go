// Copyright 2026 The Snapdelta Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command snapdelta inspects block-delta containers: it prints the header
// and operation table, and can verify the checksum trailer of containers
// written with one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/snapfmt/snapdelta/cow"
	"github.com/snapfmt/snapdelta/cow/cowdata"
)

var (
	verify = pflag.Bool("verify", false, "verify the container's checksum trailer")
	ops    = pflag.Bool("ops", true, "print the operation table")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: snapdelta [flags] <container>\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	ctx := gologger.StdConfig.Use(context.Background())
	if err := run(ctx, pflag.Args()); err != nil {
		logging.Errorf(ctx, "%s", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var options []cow.OpenOption
	if *verify {
		options = append(options, cow.WithVerification(true))
	}
	r, err := cow.Open(f, options...)
	if err != nil {
		return err
	}
	if *verify {
		logging.Infof(ctx, "checksum OK")
	}

	hdr := r.Header()
	fmt.Printf("version:    %d.%d\n", hdr.MajorVersion, hdr.MinorVersion)
	fmt.Printf("block size: %d\n", hdr.BlockSize)
	fmt.Printf("num ops:    %d\n", hdr.NumOps)

	if !*ops {
		return nil
	}
	for it := r.OpIter(); !it.Done(); it.Next() {
		op, err := it.Get()
		if err != nil {
			return err
		}
		switch op.Type {
		case cowdata.OpReplace:
			fmt.Printf("%-7s block %d (compression %s, %d stored bytes at +%d)\n",
				op.Type, op.NewBlock, op.Compression, op.DataLength, op.Source)
		case cowdata.OpCopy:
			fmt.Printf("%-7s block %d from base block %d\n", op.Type, op.NewBlock, op.Source)
		default:
			fmt.Printf("%-7s block %d\n", op.Type, op.NewBlock)
		}
	}
	return nil
}
