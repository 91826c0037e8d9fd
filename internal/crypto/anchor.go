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

package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/firmware-bdb/bdb"
)

// anchorJSON is the on-disk form of a bdb.TrustAnchor.
type anchorJSON struct {
	// Digest is the hex encoded KeyDigest of the pinned root key.
	Digest     string `json:"digest"`
	KeyVersion uint32 `json:"key_version"`
}

// MarshalTrustAnchor encodes a as JSON.
func MarshalTrustAnchor(a bdb.TrustAnchor) ([]byte, error) {
	return json.MarshalIndent(anchorJSON{
		Digest:     hex.EncodeToString(a.Digest[:]),
		KeyVersion: a.KeyVersion,
	}, "", "  ")
}

// ParseTrustAnchor decodes a trust anchor written by MarshalTrustAnchor.
func ParseTrustAnchor(b []byte) (bdb.TrustAnchor, error) {
	var aj anchorJSON
	if err := json.Unmarshal(b, &aj); err != nil {
		return bdb.TrustAnchor{}, fmt.Errorf("failed to parse trust anchor: %w", err)
	}
	d, err := hex.DecodeString(aj.Digest)
	if err != nil {
		return bdb.TrustAnchor{}, fmt.Errorf("invalid trust anchor digest: %w", err)
	}
	a := bdb.TrustAnchor{KeyVersion: aj.KeyVersion}
	if len(d) != len(a.Digest) {
		return bdb.TrustAnchor{}, fmt.Errorf("trust anchor digest is %d bytes, want %d", len(d), len(a.Digest))
	}
	copy(a.Digest[:], d)
	return a, nil
}

// LoadTrustAnchor reads a trust anchor from path.
func LoadTrustAnchor(path string) (bdb.TrustAnchor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return bdb.TrustAnchor{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return ParseTrustAnchor(b)
}
