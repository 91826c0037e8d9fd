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

// Package boot loads firmware payloads described by a BDB.
//
// A container is verified against a pinned trust anchor before any of its
// hash entries are used. Payloads are then read from partitions and only
// returned if their SHA-256 digest matches the signed entry.
package boot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/bdb"
	"golang.org/x/sync/errgroup"
)

// chunkSize is how much of a partition is read and hashed at a time.
const chunkSize = 1 << 21

var (
	// ErrKeyAdvanced is returned by Open when the container's root key
	// version is newer than the pinned one and the loader does not accept
	// that.
	ErrKeyAdvanced = errors.New("root key version advanced beyond trust anchor")
	// ErrNoEntry is returned when no hash entry describes the requested type.
	ErrNoEntry = errors.New("no hash entry for data type")
	// ErrNoPartition is returned when a hash entry names an unknown partition.
	ErrNoPartition = errors.New("unknown partition")
	// ErrDigest is returned when a payload does not match its signed digest.
	ErrDigest = errors.New("payload digest mismatch")
)

// Loader opens containers signed under a single trust anchor.
type Loader struct {
	Anchor bdb.TrustAnchor
	// Partitions maps the partition numbers used in hash entries to storage.
	Partitions map[uint8]io.ReaderAt
	// AllowKeyAdvance accepts containers whose root key version is newer
	// than Anchor.KeyVersion.
	AllowKeyAdvance bool
}

// Image is a verified container.
type Image struct {
	b      bdb.BDB
	result *bdb.Result
	parts  map[uint8]io.ReaderAt
}

// Payload is a firmware image whose digest matched its hash entry.
type Payload struct {
	Type        bdb.DataType
	LoadAddress uint64
	Data        []byte
}

// Open verifies blob. The returned Image holds a private copy of blob, so
// later changes to blob cannot affect what was verified.
func (l *Loader) Open(blob []byte) (*Image, error) {
	b := bytes.Clone(blob)
	r, err := bdb.Verify(b, l.Anchor)
	if err != nil {
		return nil, fmt.Errorf("failed to verify BDB: %w", err)
	}
	if r.Status == bdb.StatusGoodOtherThanKey && !l.AllowKeyAdvance {
		return nil, fmt.Errorf("%w: container has version %d, pinned version is %d", ErrKeyAdvanced, r.RootKeyVersion, l.Anchor.KeyVersion)
	}
	glog.Infof("Verified BDB: %v, root key v%d, subkey v%d, data v%d", r.Status, r.RootKeyVersion, r.SubkeyVersion, r.DataVersion)
	return &Image{b: b, result: r, parts: l.Partitions}, nil
}

// Result returns the outcome of verifying the image.
func (i *Image) Result() bdb.Result {
	return *i.result
}

// LoadAddress is where the container asks to be loaded.
func (i *Image) LoadAddress() uint64 {
	return i.b.Header().LoadAddress()
}

// Entries returns the signed hash entries of the image.
func (i *Image) Entries() []bdb.HashEntry {
	hs := i.b.Hashes()
	es := make([]bdb.HashEntry, 0, len(hs))
	for _, h := range hs {
		es = append(es, h.Entry())
	}
	return es
}

// Load reads and checks the first payload of type t.
func (i *Image) Load(ctx context.Context, t bdb.DataType) (*Payload, error) {
	h := i.b.Hash(t)
	if h == nil {
		return nil, fmt.Errorf("%w %v", ErrNoEntry, t)
	}
	return i.load(ctx, h.Entry())
}

// LoadAll reads and checks every payload in the hash table concurrently.
// Payloads are returned in table order.
func (i *Image) LoadAll(ctx context.Context) ([]*Payload, error) {
	es := i.Entries()
	ps := make([]*Payload, len(es))
	g, ctx := errgroup.WithContext(ctx)
	for n, e := range es {
		g.Go(func() error {
			p, err := i.load(ctx, e)
			if err != nil {
				return fmt.Errorf("entry %d (%v): %w", n, e.Type, err)
			}
			ps[n] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ps, nil
}

func (i *Image) load(ctx context.Context, e bdb.HashEntry) (*Payload, error) {
	part, ok := i.parts[e.Partition]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoPartition, e.Partition)
	}
	if e.Offset > math.MaxInt64-uint64(e.Size) {
		return nil, fmt.Errorf("payload at offset %d does not fit in a partition", e.Offset)
	}
	data, err := measure(ctx, io.NewSectionReader(part, int64(e.Offset), int64(e.Size)), e)
	if err != nil {
		return nil, err
	}
	return &Payload{Type: e.Type, LoadAddress: e.LoadAddress, Data: data}, nil
}

// measure reads e.Size bytes from r in chunks, hashing as it goes, and
// checks the result against the entry's digest.
func measure(ctx context.Context, r io.Reader, e bdb.HashEntry) ([]byte, error) {
	glog.V(1).Infof("Reading %v from partition %d at offset %d, %d bytes", e.Type, e.Partition, e.Offset, e.Size)
	start := time.Now()
	data := make([]byte, e.Size)
	h := sha256.New()
	for off := 0; off < len(data); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(off+chunkSize, len(data))
		if _, err := io.ReadFull(r, data[off:end]); err != nil {
			return nil, fmt.Errorf("failed to read %v at offset %d: %w", e.Type, e.Offset+uint64(off), err)
		}
		h.Write(data[off:end])
		off = end
	}
	if got := h.Sum(nil); !bytes.Equal(got, e.Digest[:]) {
		return nil, fmt.Errorf("%w for %v: got %x, want %x", ErrDigest, e.Type, got, e.Digest)
	}
	glog.V(1).Infof("Finished %v, hashing in %s", e.Type, time.Since(start))
	return data, nil
}
