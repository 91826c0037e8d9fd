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

// Package impl is the implementation of a hacker tool for tampering with BDBs.
package impl

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/bdb"
	"github.com/google/firmware-bdb/internal/crypto"
)

// ModifyBDBOpts encapsulates parameters for the modify BDB Main below.
type ModifyBDBOpts struct {
	Input          string
	Output         string
	BumpKeyVersion bool
	// Flips are section:offset pairs naming bytes whose low bit is flipped.
	Flips      []string
	BinaryPath string
	DataType   string
	Sign       bool
}

// sections maps the names accepted in flips to section accessors.
var sections = map[string]func(b bdb.BDB) []byte{
	"header":     func(b bdb.BDB) []byte { return b.Header() },
	"root_key":   func(b bdb.BDB) []byte { return b.RootKey() },
	"oem0":       func(b bdb.BDB) []byte { return b.OEMArea0() },
	"subkey":     func(b bdb.BDB) []byte { return b.Subkey() },
	"header_sig": func(b bdb.BDB) []byte { return b.HeaderSig() },
	"data":       func(b bdb.BDB) []byte { return b.Data() },
	"oem1":       func(b bdb.BDB) []byte { return b.OEMArea1() },
	"hashes": func(b bdb.BDB) []byte {
		hs := b.Hashes()
		if len(hs) == 0 {
			return nil
		}
		// The entries are contiguous, so the table runs from the first
		// entry to the end of the signed data.
		d := b.Data()
		return d[len(d)-len(hs)*bdb.HashEntrySize:]
	},
	"data_sig": func(b bdb.BDB) []byte { return b.DataSig() },
}

// Main is the modify BDB entrypoint.
func Main(opts ModifyBDBOpts) error {
	if len(opts.Input) == 0 || len(opts.Output) == 0 {
		return errors.New("must specify Input and Output")
	}
	blob, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("failed to read BDB %q: %w", opts.Input, err)
	}
	b := bdb.BDB(blob)

	if opts.BumpKeyVersion {
		k := b.RootKey()
		if k == nil {
			return errors.New("BDB has no root key")
		}
		k.SetKeyVersion(k.KeyVersion() + 1)
		glog.Infof("Bumped root key version to %d", k.KeyVersion())
	}

	for _, f := range opts.Flips {
		if err := flip(b, f); err != nil {
			return err
		}
	}

	if len(opts.BinaryPath) > 0 {
		if err := replaceBinary(b, opts.BinaryPath, opts.DataType); err != nil {
			return err
		}
	}

	if opts.Sign {
		// Use stolen subkey to re-sign the dodgy data section.
		s, err := crypto.ParsePrivateKey([]byte(crypto.TestSubkeyPriv))
		if err != nil {
			return fmt.Errorf("failed to parse stolen subkey: %w", err)
		}
		if err := bdb.SignData(blob, s); err != nil {
			return fmt.Errorf("failed to re-sign data: %w", err)
		}
		glog.Info("Re-signed data section")
	}

	if err := os.WriteFile(opts.Output, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write modified BDB to %q: %w", opts.Output, err)
	}
	return nil
}

func flip(b bdb.BDB, f string) error {
	name, offStr, ok := strings.Cut(f, ":")
	if !ok {
		return fmt.Errorf("flip %q is not section:offset", f)
	}
	section, ok := sections[name]
	if !ok {
		return fmt.Errorf("unknown section %q", name)
	}
	off, err := strconv.Atoi(offStr)
	if err != nil {
		return fmt.Errorf("invalid offset in flip %q: %w", f, err)
	}
	s := section(b)
	if off < 0 || off >= len(s) {
		return fmt.Errorf("offset %d is outside %s, which is %d bytes", off, name, len(s))
	}
	s[off] ^= 1
	glog.Infof("Flipped %s byte %d", name, off)
	return nil
}

func replaceBinary(b bdb.BDB, path, dataType string) error {
	var t bdb.DataType
	for _, c := range []bdb.DataType{bdb.DataSPRW, bdb.DataAPRW, bdb.DataMCU} {
		if c.String() == dataType {
			t = c
		}
	}
	h := b.Hash(t)
	if h == nil {
		return fmt.Errorf("BDB has no %q hash entry", dataType)
	}
	fw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}
	if len(fw) > math.MaxUint32 {
		return fmt.Errorf("binary %q is too large", path)
	}
	d := sha256.Sum256(fw)
	h.SetSize(uint32(len(fw)))
	copy(h.Digest(), d[:])
	glog.Infof("Pointed %v entry at %q", t, path)
	return nil
}
