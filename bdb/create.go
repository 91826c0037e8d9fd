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
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
)

// CreateParams holds the contents of a container to be built by Create.
type CreateParams struct {
	// LoadAddress is where the container should be loaded in memory.
	LoadAddress uint64

	// OEMArea0 and OEMArea1 are opaque OEM data. Their lengths must be
	// multiples of 4.
	OEMArea0 []byte
	OEMArea1 []byte

	HeaderSigDescription string
	DataSigDescription   string
	DataDescription      string
	DataVersion          uint32

	Hashes []HashEntry

	// RootKey and Subkey are key records, typically built with NewKey.
	RootKey Key
	Subkey  Key

	// RootSigner and SubkeySigner hold the private halves of RootKey and
	// Subkey.
	RootSigner   crypto.Signer
	SubkeySigner crypto.Signer
}

// NewKey builds a key record for pub. RSA keys must be 4096 bits with public
// exponent 65537; ECDSA keys must be on P-521.
func NewKey(pub crypto.PublicKey, version uint32, description string) (Key, error) {
	alg, material, err := encodePublicKey(pub)
	if err != nil {
		return nil, err
	}
	k := make(Key, KeySize+len(material))
	k.SetStructMagic(KeyMagic)
	k.SetStructMajorVersion(KeyVersionMajor)
	k.SetStructMinorVersion(KeyVersionMinor)
	k.SetStructSize(uint16(len(k)))
	k.SetHashAlg(HashAlgSHA256)
	k.SetSigAlg(alg)
	k.SetKeyVersion(version)
	if err := setDescription(k.RawDescription(), description); err != nil {
		return nil, err
	}
	copy(k[offKeyMaterial:], material)
	return k, nil
}

// PublicKey decodes the key material of k.
func (k Key) PublicKey() (crypto.PublicKey, error) {
	if err := CheckKey(k); err != nil {
		return nil, err
	}
	return k.SigAlg().publicKey(k.KeyData())
}

func setDescription(w []byte, s string) error {
	if len(s) >= len(w) {
		return fmt.Errorf("description %q longer than %d bytes", s, len(w)-1)
	}
	clear(w)
	copy(w, s)
	return nil
}

// checkSigner makes sure s holds the private half of k.
func checkSigner(k Key, s crypto.Signer) error {
	if s == nil {
		return errors.New("no signer")
	}
	_, material, err := encodePublicKey(s.Public())
	if err != nil {
		return err
	}
	if !bytes.Equal(material, k.KeyData()) {
		return errors.New("signer does not match key")
	}
	return nil
}

func initSig(s Sig, alg SigAlg, signed uint32, desc string) error {
	s.SetStructMagic(SigMagic)
	s.SetStructMajorVersion(SigVersionMajor)
	s.SetStructMinorVersion(SigVersionMinor)
	s.SetStructSize(uint16(len(s)))
	s.SetHashAlg(HashAlgSHA256)
	s.SetSigAlg(alg)
	s.SetSignedSize(signed)
	return setDescription(s.RawDescription(), desc)
}

// Create assembles and signs a container. The returned buffer belongs to the
// caller.
func Create(p CreateParams) ([]byte, error) {
	if err := CheckKey(p.RootKey); err != nil {
		return nil, fmt.Errorf("invalid root key: %w", err)
	}
	if err := CheckKey(p.Subkey); err != nil {
		return nil, fmt.Errorf("invalid subkey: %w", err)
	}
	if err := checkSigner(p.RootKey, p.RootSigner); err != nil {
		return nil, fmt.Errorf("root signer: %w", err)
	}
	if err := checkSigner(p.Subkey, p.SubkeySigner); err != nil {
		return nil, fmt.Errorf("subkey signer: %w", err)
	}
	if len(p.OEMArea0)%4 != 0 || len(p.OEMArea1)%4 != 0 {
		return nil, fmt.Errorf("OEM areas must be multiples of 4 bytes: %w", ErrOEMAreaSize)
	}
	if len(p.Hashes) > math.MaxUint8 {
		return nil, fmt.Errorf("%d hash entries, at most %d allowed", len(p.Hashes), math.MaxUint8)
	}

	root, sub := p.RootKey.Bytes(), p.Subkey.Bytes()
	rootAlg, subAlg := p.RootKey.SigAlg(), p.Subkey.SigAlg()
	rootSigSize, _ := rootAlg.SigSize()
	subSigSize, _ := subAlg.SigSize()

	headerSigned, _ := sumSizes(HeaderSize, uint64(len(root)), uint64(len(p.OEMArea0)), uint64(len(sub)))
	dataSigned, _ := sumSizes(DataSize, uint64(len(p.OEMArea1)), uint64(len(p.Hashes))*HashEntrySize)
	total, _ := sumSizes(headerSigned, SigSize+uint64(rootSigSize), dataSigned, SigSize+uint64(subSigSize))
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("container of %d bytes is too large: %w", total, ErrOEMAreaSize)
	}

	buf := make([]byte, total)
	b := BDB(buf)

	h := Header(buf[:HeaderSize])
	h.SetStructMagic(HeaderMagic)
	h.SetStructMajorVersion(HeaderVersionMajor)
	h.SetStructMinorVersion(HeaderVersionMinor)
	h.SetStructSize(HeaderSize)
	h.SetLoadAddress(p.LoadAddress)
	h.SetBDBSize(uint32(total))
	h.SetSignedSize(uint32(headerSigned))
	h.SetOEMArea0Size(uint32(len(p.OEMArea0)))
	off := HeaderSize
	off += copy(buf[off:], root)
	off += copy(buf[off:], p.OEMArea0)
	off += copy(buf[off:], sub)

	hsig := Sig(buf[off : off+SigSize+rootSigSize])
	if err := initSig(hsig, rootAlg, uint32(headerSigned), p.HeaderSigDescription); err != nil {
		return nil, fmt.Errorf("header signature: %w", err)
	}
	off += len(hsig)

	dataOff := off
	d := Data(buf[dataOff : dataOff+int(dataSigned)])
	d.SetStructMagic(DataMagic)
	d.SetStructMajorVersion(DataVersionMajor)
	d.SetStructMinorVersion(DataVersionMinor)
	d.SetStructSize(DataSize)
	d.SetDataVersion(p.DataVersion)
	d.SetOEMArea1Size(uint32(len(p.OEMArea1)))
	d.SetNumHashes(uint8(len(p.Hashes)))
	d.SetHashEntrySize(HashEntrySize)
	d.SetSignedSize(uint32(dataSigned))
	if err := setDescription(d.RawDescription(), p.DataDescription); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	off += DataSize
	off += copy(buf[off:], p.OEMArea1)
	for _, e := range p.Hashes {
		e.put(Hash(buf[off : off+HashEntrySize]))
		off += HashEntrySize
	}

	dsig := Sig(buf[off:])
	if err := initSig(dsig, subAlg, uint32(dataSigned), p.DataSigDescription); err != nil {
		return nil, fmt.Errorf("data signature: %w", err)
	}

	sig, err := rootAlg.signDigest(p.RootSigner, headerDigest(b, h, b.RootKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to sign header: %w", err)
	}
	copy(hsig.SigData(), sig)

	digest := sha256.Sum256(d)
	if sig, err = subAlg.signDigest(p.SubkeySigner, digest[:]); err != nil {
		return nil, fmt.Errorf("failed to sign data: %w", err)
	}
	copy(dsig.SigData(), sig)

	return buf, nil
}

// SignData replaces the data signature of buf with a fresh one made by s,
// which must hold the private half of the container's subkey. The header
// signature is left alone, so the result still verifies if the subkey does.
func SignData(buf []byte, s crypto.Signer) error {
	b := BDB(buf)
	sub := b.Subkey()
	if err := checkKey(sub); err != nil {
		return fmt.Errorf("%w: %w", ErrSubkey, err)
	}
	if err := checkSigner(sub, s); err != nil {
		return fmt.Errorf("subkey signer: %w", err)
	}
	d := b.Data()
	if d == nil {
		return fmt.Errorf("%w: %w", ErrData, ErrBufSize)
	}
	if err := CheckData(d); err != nil {
		return fmt.Errorf("%w: %w", ErrData, err)
	}
	dsig := b.DataSig()
	if err := checkSig(dsig); err != nil {
		return fmt.Errorf("%w: %w", ErrDataSig, err)
	}
	if dsig.HashAlg() != sub.HashAlg() || dsig.SigAlg() != sub.SigAlg() {
		return fmt.Errorf("%w: %w", ErrDataSig, errAlgMismatch)
	}

	digest := sha256.Sum256(d[:d.SignedSize()])
	sig, err := sub.SigAlg().signDigest(s, digest[:])
	if err != nil {
		return fmt.Errorf("failed to sign data: %w", err)
	}
	copy(dsig.SigData(), sig)
	dsig.SetSignedSize(d.SignedSize())
	return nil
}
