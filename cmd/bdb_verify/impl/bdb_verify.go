// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package impl is the implementation of a tool that verifies BDB files.
package impl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/bdb"
	"github.com/google/firmware-bdb/internal/crypto"
	"golang.org/x/sync/errgroup"
)

// VerifyOpts encapsulates parameters for the verify Main below.
type VerifyOpts struct {
	// AnchorPath is a trust anchor file written by bdb_create.
	AnchorPath string

	// RootKeyPath, RootKeyVersion and RootKeyDescription describe the
	// root key when AnchorPath is empty.
	RootKeyPath        string
	RootKeyVersion     uint32
	RootKeyDescription string

	// AllowKeyAdvance accepts files whose root key version is newer than
	// the pinned one.
	AllowKeyAdvance bool

	Files []string
	Out   io.Writer
}

// report is the outcome of verifying one file.
type report struct {
	path   string
	blob   []byte
	result *bdb.Result
	err    error
}

// Main is the verify entrypoint.
func Main(opts VerifyOpts) error {
	if len(opts.Files) == 0 {
		return errors.New("no files to verify")
	}
	anchor, err := trustAnchor(opts)
	if err != nil {
		return err
	}

	reports := make([]report, len(opts.Files))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, path := range opts.Files {
		g.Go(func() error {
			reports[i] = verifyFile(path, anchor, opts.AllowKeyAdvance)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range reports {
		if r.err != nil {
			failed++
		}
		printReport(opts.Out, r)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(reports))
	}
	return nil
}

func trustAnchor(opts VerifyOpts) (bdb.TrustAnchor, error) {
	if len(opts.AnchorPath) > 0 {
		return crypto.LoadTrustAnchor(opts.AnchorPath)
	}
	if len(opts.RootKeyPath) == 0 {
		return bdb.TrustAnchor{}, errors.New("must specify AnchorPath or RootKeyPath")
	}
	pub, err := crypto.LoadPublicKey(opts.RootKeyPath)
	if err != nil {
		return bdb.TrustAnchor{}, err
	}
	k, err := bdb.NewKey(pub, opts.RootKeyVersion, opts.RootKeyDescription)
	if err != nil {
		return bdb.TrustAnchor{}, fmt.Errorf("failed to build root key record: %w", err)
	}
	return bdb.NewTrustAnchor(k), nil
}

func verifyFile(path string, anchor bdb.TrustAnchor, allowKeyAdvance bool) report {
	r := report{path: path}
	r.blob, r.err = os.ReadFile(path)
	if r.err != nil {
		return r
	}
	r.result, r.err = bdb.Verify(r.blob, anchor)
	if r.err == nil && r.result.Status == bdb.StatusGoodOtherThanKey && !allowKeyAdvance {
		r.err = fmt.Errorf("root key version %d is newer than pinned version %d", r.result.RootKeyVersion, anchor.KeyVersion)
	}
	glog.V(1).Infof("%s: %v", path, r.err)
	return r
}

func printReport(w io.Writer, r report) {
	if r.err != nil {
		fmt.Fprintf(w, "%s: FAILED: %v\n", r.path, r.err)
		return
	}
	b := bdb.BDB(r.blob)
	fmt.Fprintf(w, "%s: %v\n", r.path, r.result.Status)
	fmt.Fprintf(w, "  load address: %#x\n", b.Header().LoadAddress())
	fmt.Fprintf(w, "  root key:     %q v%d %v\n", b.RootKey().Description(), r.result.RootKeyVersion, b.RootKey().SigAlg())
	fmt.Fprintf(w, "  subkey:       %q v%d %v\n", b.Subkey().Description(), r.result.SubkeyVersion, b.Subkey().SigAlg())
	fmt.Fprintf(w, "  data:         %q v%d\n", b.Data().Description(), r.result.DataVersion)
	fmt.Fprintf(w, "  OEM areas:    %d, %d bytes\n", len(b.OEMArea0()), len(b.OEMArea1()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  type\tpartition\toffset\tsize\tload address\tdigest")
	for _, h := range b.Hashes() {
		e := h.Entry()
		fmt.Fprintf(tw, "  %v\t%d\t%#x\t%d\t%#x\t%x\n", e.Type, e.Partition, e.Offset, e.Size, e.LoadAddress, e.Digest)
	}
	tw.Flush()
}
