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

// Package impl is the implementation of a tool that builds signed BDBs.
//
// The BDB is described by a JSON manifest naming the PEM encoded root key and
// subkey, the OEM areas and the payload files to be listed in the hash table.
// Relative paths in the manifest are resolved against the manifest's
// directory.
package impl

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/bdb"
	"github.com/google/firmware-bdb/internal/crypto"
)

// CreateOpts encapsulates parameters for the create Main below.
type CreateOpts struct {
	Config       string
	Output       string
	AnchorOutput string
}

// Manifest describes a BDB to build.
type Manifest struct {
	LoadAddress uint64  `json:"load_address"`
	RootKey     KeySpec `json:"root_key"`
	Subkey      KeySpec `json:"subkey"`

	// OEMArea0 and OEMArea1 name files whose contents are copied into the
	// OEM areas, zero padded to a multiple of 4 bytes. Either may be empty.
	OEMArea0 string `json:"oem_area_0"`
	OEMArea1 string `json:"oem_area_1"`

	HeaderSigDescription string `json:"header_sig_description"`
	DataSigDescription   string `json:"data_sig_description"`
	DataDescription      string `json:"data_description"`
	DataVersion          uint32 `json:"data_version"`

	Hashes []HashSpec `json:"hashes"`
}

// KeySpec names a signing key and the contents of its key record.
type KeySpec struct {
	PrivateKey  string `json:"private_key"`
	Version     uint32 `json:"version"`
	Description string `json:"description"`
}

// HashSpec describes one payload. Its size and digest are taken from File.
type HashSpec struct {
	Type        string `json:"type"`
	Partition   uint8  `json:"partition"`
	Offset      uint64 `json:"offset"`
	LoadAddress uint64 `json:"load_address"`
	File        string `json:"file"`
}

// Main is the create entrypoint.
func Main(opts CreateOpts) error {
	if len(opts.Config) == 0 {
		return errors.New("must specify Config")
	}
	if len(opts.Output) == 0 {
		return errors.New("must specify Output")
	}

	raw, err := os.ReadFile(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to read manifest %q: %w", opts.Config, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	p, err := buildParams(m, filepath.Dir(opts.Config))
	if err != nil {
		return err
	}
	blob, err := bdb.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create BDB: %w", err)
	}
	if err := os.WriteFile(opts.Output, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write BDB to %q: %w", opts.Output, err)
	}
	glog.Infof("Wrote %d byte BDB with %d hash entries to %q", len(blob), len(p.Hashes), opts.Output)

	if len(opts.AnchorOutput) > 0 {
		a, err := crypto.MarshalTrustAnchor(bdb.NewTrustAnchor(p.RootKey))
		if err != nil {
			return fmt.Errorf("failed to marshal trust anchor: %w", err)
		}
		if err := os.WriteFile(opts.AnchorOutput, a, 0o644); err != nil {
			return fmt.Errorf("failed to write trust anchor to %q: %w", opts.AnchorOutput, err)
		}
		glog.Infof("Wrote trust anchor to %q", opts.AnchorOutput)
	}
	return nil
}

func buildParams(m Manifest, dir string) (bdb.CreateParams, error) {
	resolve := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(dir, path)
	}

	root, err := loadClaimant(m.RootKey, resolve)
	if err != nil {
		return bdb.CreateParams{}, fmt.Errorf("root key: %w", err)
	}
	sub, err := loadClaimant(m.Subkey, resolve)
	if err != nil {
		return bdb.CreateParams{}, fmt.Errorf("subkey: %w", err)
	}
	oem0, err := readOEMArea(m.OEMArea0, resolve)
	if err != nil {
		return bdb.CreateParams{}, err
	}
	oem1, err := readOEMArea(m.OEMArea1, resolve)
	if err != nil {
		return bdb.CreateParams{}, err
	}

	p := bdb.CreateParams{
		LoadAddress:          m.LoadAddress,
		OEMArea0:             oem0,
		OEMArea1:             oem1,
		HeaderSigDescription: m.HeaderSigDescription,
		DataSigDescription:   m.DataSigDescription,
		DataDescription:      m.DataDescription,
		DataVersion:          m.DataVersion,
		RootKey:              root.Key,
		Subkey:               sub.Key,
		RootSigner:           root.Signer,
		SubkeySigner:         sub.Signer,
	}
	for i, hs := range m.Hashes {
		e, err := hashEntry(hs, resolve)
		if err != nil {
			return bdb.CreateParams{}, fmt.Errorf("hash %d: %w", i, err)
		}
		p.Hashes = append(p.Hashes, e)
	}
	return p, nil
}

func loadClaimant(k KeySpec, resolve func(string) string) (*crypto.Claimant, error) {
	if len(k.PrivateKey) == 0 {
		return nil, errors.New("no private_key given")
	}
	s, err := crypto.LoadPrivateKey(resolve(k.PrivateKey))
	if err != nil {
		return nil, err
	}
	return crypto.NewClaimant(s, k.Version, k.Description)
}

func readOEMArea(path string, resolve func(string) string) ([]byte, error) {
	if len(path) == 0 {
		return nil, nil
	}
	b, err := os.ReadFile(resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read OEM area %q: %w", path, err)
	}
	if pad := len(b) % 4; pad != 0 {
		glog.V(1).Infof("Padding OEM area %q by %d bytes", path, 4-pad)
		b = append(b, make([]byte, 4-pad)...)
	}
	return b, nil
}

func hashEntry(hs HashSpec, resolve func(string) string) (bdb.HashEntry, error) {
	t, err := parseDataType(hs.Type)
	if err != nil {
		return bdb.HashEntry{}, err
	}
	b, err := os.ReadFile(resolve(hs.File))
	if err != nil {
		return bdb.HashEntry{}, fmt.Errorf("failed to read payload %q: %w", hs.File, err)
	}
	if len(b) > math.MaxUint32 {
		return bdb.HashEntry{}, fmt.Errorf("payload %q is too large", hs.File)
	}
	glog.V(1).Infof("Payload %q: %v, %d bytes", hs.File, t, len(b))
	return bdb.HashEntry{
		Offset:      hs.Offset,
		Size:        uint32(len(b)),
		Partition:   hs.Partition,
		Type:        t,
		LoadAddress: hs.LoadAddress,
		Digest:      sha256.Sum256(b),
	}, nil
}

// parseDataType accepts the names printed by bdb.DataType.String.
func parseDataType(s string) (bdb.DataType, error) {
	for _, t := range []bdb.DataType{bdb.DataSPRW, bdb.DataAPRW, bdb.DataMCU} {
		if s == t.String() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q, want one of sp-rw, ap-rw, mcu", s)
}
