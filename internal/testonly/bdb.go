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

// Package testonly holds helpers for building signed containers in tests.
package testonly

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/google/firmware-bdb/bdb"
	"github.com/google/firmware-bdb/internal/crypto"
)

// Key versions of the test root key and subkey.
const (
	RootKeyVersion = 100
	SubkeyVersion  = 200
)

// Payload is a firmware image placed on a test partition.
type Payload struct {
	Type        bdb.DataType
	Partition   uint8
	Offset      uint64
	LoadAddress uint64
	Data        []byte
}

// Entry returns the hash entry describing p.
func (p Payload) Entry() bdb.HashEntry {
	return bdb.HashEntry{
		Offset:      p.Offset,
		Size:        uint32(len(p.Data)),
		Partition:   p.Partition,
		Type:        p.Type,
		LoadAddress: p.LoadAddress,
		Digest:      sha256.Sum256(p.Data),
	}
}

// Params returns the parameters of a container signed by the test keys whose
// hash table describes payloads.
func Params(payloads ...Payload) (bdb.CreateParams, error) {
	root, err := crypto.TestClaimant(crypto.TestRootPriv, RootKeyVersion, "Test root key")
	if err != nil {
		return bdb.CreateParams{}, fmt.Errorf("failed to load root key: %w", err)
	}
	sub, err := crypto.TestClaimant(crypto.TestSubkeyPriv, SubkeyVersion, "Test subkey")
	if err != nil {
		return bdb.CreateParams{}, fmt.Errorf("failed to load subkey: %w", err)
	}
	p := bdb.CreateParams{
		LoadAddress:          0x80000000,
		OEMArea0:             []byte("oem0"),
		OEMArea1:             []byte("oem1"),
		HeaderSigDescription: "test header sig",
		DataSigDescription:   "test data sig",
		DataDescription:      "test data",
		DataVersion:          1,
		RootKey:              root.Key,
		Subkey:               sub.Key,
		RootSigner:           root.Signer,
		SubkeySigner:         sub.Signer,
	}
	for _, pl := range payloads {
		p.Hashes = append(p.Hashes, pl.Entry())
	}
	return p, nil
}

// Partitions lays payloads out on in-memory partitions, each just large
// enough to hold the payloads placed on it.
func Partitions(payloads ...Payload) map[uint8]io.ReaderAt {
	images := make(map[uint8][]byte)
	for _, pl := range payloads {
		img := images[pl.Partition]
		if end := int(pl.Offset) + len(pl.Data); end > len(img) {
			img = append(img, make([]byte, end-len(img))...)
		}
		copy(img[pl.Offset:], pl.Data)
		images[pl.Partition] = img
	}
	parts := make(map[uint8]io.ReaderAt, len(images))
	for n, img := range images {
		parts[n] = bytes.NewReader(img)
	}
	return parts
}
