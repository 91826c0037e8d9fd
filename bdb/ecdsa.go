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
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ECDSA P-521 key material is X || Y and signatures are r || s, each value a
// fixed-width big-endian integer.
const (
	p521CoordSize       = 66
	ecdsa521KeyDataSize = 2 * p521CoordSize
	ecdsa521SigSize     = 2 * p521CoordSize
)

func encodeECDSA521(pub *ecdsa.PublicKey) ([]byte, error) {
	k, err := pub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("invalid P-521 public key: %w", err)
	}
	// Uncompressed SEC 1 encoding: 0x04 || X || Y.
	raw := k.Bytes()
	return append([]byte(nil), raw[1:]...), nil
}

func decodeECDSA521(b []byte) (*ecdsa.PublicKey, error) {
	if len(b) != ecdsa521KeyDataSize {
		return nil, fmt.Errorf("ECDSA key data is %d bytes, want %d", len(b), ecdsa521KeyDataSize)
	}
	raw := make([]byte, 1+len(b))
	raw[0] = 4
	copy(raw[1:], b)
	if _, err := ecdh.P521().NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("invalid P-521 point: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P521(),
		X:     new(big.Int).SetBytes(b[:p521CoordSize]),
		Y:     new(big.Int).SetBytes(b[p521CoordSize:]),
	}, nil
}

func verifyECDSA521(keyData, digest, sig []byte) error {
	pub, err := decodeECDSA521(keyData)
	if err != nil {
		return err
	}
	if len(sig) != ecdsa521SigSize {
		return fmt.Errorf("ECDSA signature is %d bytes, want %d", len(sig), ecdsa521SigSize)
	}
	r := new(big.Int).SetBytes(sig[:p521CoordSize])
	s := new(big.Int).SetBytes(sig[p521CoordSize:])
	if !ecdsa.Verify(pub, digest, r, s) {
		return errBadSig
	}
	return nil
}

func signECDSA521(signer crypto.Signer, digest []byte) ([]byte, error) {
	der, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, err
	}
	r, s := new(big.Int), new(big.Int)
	var inner cryptobyte.String
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, errors.New("malformed ECDSA signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > 8*p521CoordSize || s.BitLen() > 8*p521CoordSize {
		return nil, errors.New("ECDSA signature out of range")
	}
	sig := make([]byte, ecdsa521SigSize)
	r.FillBytes(sig[:p521CoordSize])
	s.FillBytes(sig[p521CoordSize:])
	return sig, nil
}
