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

package bdb

import (
	"crypto/sha256"
	"fmt"
	"hash"
)

// Status is the outcome of a successful verification.
type Status int

const (
	// StatusSuccess means the whole trust chain verified against the anchor.
	StatusSuccess Status = iota
	// StatusGoodOtherThanKey means the trust chain verified, but the root
	// key's version has advanced beyond the version pinned in the anchor.
	StatusGoodOtherThanKey
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGoodOtherThanKey:
		return "good other than key"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result describes a verified container.
type Result struct {
	Status Status
	// RootKeyVersion is the key_version stored in the container's root key,
	// which callers can pin after a StatusGoodOtherThanKey result.
	RootKeyVersion uint32
	SubkeyVersion  uint32
	DataVersion    uint32
}

// TrustAnchor pins a root key.
type TrustAnchor struct {
	// Digest is KeyDigest of the pinned root key.
	Digest [SHA256DigestSize]byte
	// KeyVersion is the root key's key_version when it was pinned. Containers
	// carrying an older version are rejected.
	KeyVersion uint32
}

// NewTrustAnchor pins k at its current version.
func NewTrustAnchor(k Key) TrustAnchor {
	return TrustAnchor{Digest: KeyDigest(k), KeyVersion: k.KeyVersion()}
}

// KeyDigest returns the SHA-256 digest of the key record with its
// key_version field normalized to zero. k must pass CheckKey.
func KeyDigest(k Key) [SHA256DigestSize]byte {
	h := sha256.New()
	writeNormalizedKey(h, k)
	var d [SHA256DigestSize]byte
	h.Sum(d[:0])
	return d
}

// writeNormalizedKey writes k, trimmed to struct_size, with key_version
// replaced by zero. Trust anchor digests and header signatures both cover
// this form, so a root key's version can be bumped in place without
// re-signing the container.
func writeNormalizedKey(h hash.Hash, k Key) {
	var zero [4]byte
	r := k.Bytes()
	h.Write(r[:offKeyVersion])
	h.Write(zero[:])
	h.Write(r[offKeyVersion+len(zero):])
}

// headerDigest returns the digest signed by the header signature: bytes
// [0, signed_size) of the container with the root key normalized.
func headerDigest(b BDB, h Header, root Key) []byte {
	rootOff := uint64(h.StructSize())
	rootEnd := rootOff + uint64(root.StructSize())
	d := sha256.New()
	d.Write(b[:rootOff])
	writeNormalizedKey(d, root)
	d.Write(b[rootEnd:h.SignedSize()])
	return d.Sum(nil)
}

// verifySig checks that s is a signature by k over digest.
func verifySig(k Key, s Sig, digest []byte) error {
	if k.HashAlg() != s.HashAlg() || k.SigAlg() != s.SigAlg() {
		return errAlgMismatch
	}
	return k.SigAlg().verifyDigest(k.KeyData(), digest, s.SigData())
}

func checkKey(k Key) error {
	if k == nil {
		return ErrBufSize
	}
	return CheckKey(k)
}

func checkSig(s Sig) error {
	if s == nil {
		return ErrBufSize
	}
	return CheckSig(s)
}

// Verify checks buf against the trust anchor.
//
// The root key is trusted if its normalized digest matches the anchor; it
// then vouches for the subkey through the header signature, and the subkey
// vouches for the data section through the data signature. Structural
// problems with a section are reported before any signature covering it is
// checked. Errors wrap one of the stage errors (ErrHeader, ErrBDBKey, ...)
// together with the underlying cause.
//
// buf is never modified.
func Verify(buf []byte, anchor TrustAnchor) (*Result, error) {
	b := BDB(buf)

	if err := CheckHeader(buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHeader, err)
	}
	h := b.Header()
	if uint64(h.BDBSize()) > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: bdb_size %d exceeds buffer length %d: %w", ErrHeader, h.BDBSize(), len(buf), ErrBufSize)
	}

	root := b.RootKey()
	if err := checkKey(root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBDBKey, err)
	}
	if KeyDigest(root) != anchor.Digest {
		return nil, fmt.Errorf("%w: %w", ErrBDBKey, errKeyDigest)
	}
	v := root.KeyVersion()
	if v < anchor.KeyVersion {
		return nil, fmt.Errorf("%w: key version %d is older than pinned version %d", ErrBDBKey, v, anchor.KeyVersion)
	}
	keyAdvanced := v > anchor.KeyVersion

	if b.OEMArea0() == nil {
		return nil, fmt.Errorf("%w: %w", ErrOEMArea0, ErrOEMAreaSize)
	}

	sub := b.Subkey()
	if err := checkKey(sub); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubkey, err)
	}

	span, ok := sumSizes(uint64(h.StructSize()), uint64(root.StructSize()), uint64(h.OEMArea0Size()), uint64(sub.StructSize()))
	if !ok || span != uint64(h.SignedSize()) {
		return nil, fmt.Errorf("%w: %w", ErrBDBSignedSize, ErrSignedSize)
	}

	hsig := b.HeaderSig()
	if err := checkSig(hsig); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHeaderSig, err)
	}
	if hsig.SignedSize() != h.SignedSize() {
		return nil, fmt.Errorf("%w: %w", ErrHeaderSig, ErrSignedSize)
	}
	if err := verifySig(root, hsig, headerDigest(b, h, root)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHeaderSig, err)
	}

	// The subkey is trusted from here on.
	d := b.Data()
	if d == nil {
		return nil, fmt.Errorf("%w: %w", ErrData, ErrBufSize)
	}
	if err := CheckData(d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrData, err)
	}

	dsig := b.DataSig()
	if err := checkSig(dsig); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSig, err)
	}
	if dsig.SignedSize() != d.SignedSize() {
		return nil, fmt.Errorf("%w: %w", ErrDataSig, ErrSignedSize)
	}
	digest := sha256.Sum256(d[:d.SignedSize()])
	if err := verifySig(sub, dsig, digest[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSig, err)
	}

	r := &Result{
		Status:         StatusSuccess,
		RootKeyVersion: v,
		SubkeyVersion:  sub.KeyVersion(),
		DataVersion:    d.DataVersion(),
	}
	if keyAdvanced {
		r.Status = StatusGoodOtherThanKey
	}
	return r, nil
}
