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
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"
)

// RSA-4096 key material is laid out for a Montgomery-multiplication verifier:
//
//	u32 word count (128)
//	u32 n0inv, -1/n mod 2^32
//	n   as 128 little-endian 32-bit words, least significant first
//	rr  (2^4096)^2 mod n, same encoding
//
// The public exponent is always 65537.
const (
	rsa4096Bits        = 4096
	rsa4096Words       = rsa4096Bits / 32
	rsa4096WordBytes   = rsa4096Words * 4
	rsa4096KeyDataSize = 8 + 2*rsa4096WordBytes
	rsa4096SigSize     = rsa4096Bits / 8
	rsaExponent        = 65537

	offRSAWords = 0
	offRSAN0Inv = 4
	offRSAN     = 8
	offRSARR    = offRSAN + rsa4096WordBytes
)

var two32 = new(big.Int).Lsh(big.NewInt(1), 32)

// n0inv returns -1/n mod 2^32. n must be odd.
func n0inv(n *big.Int) uint32 {
	inv := new(big.Int).ModInverse(n, two32)
	return uint32(new(big.Int).Sub(two32, inv).Uint64())
}

// montgomeryRR returns (2^bits)^2 mod n.
func montgomeryRR(n *big.Int) *big.Int {
	rr := new(big.Int).Lsh(big.NewInt(1), 2*rsa4096Bits)
	return rr.Mod(rr, n)
}

// putWords writes x into dst as little-endian words.
func putWords(dst []byte, x *big.Int) {
	x.FillBytes(dst)
	for i, j := 0, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
}

// words reads a little-endian word array into an integer.
func words(src []byte) *big.Int {
	be := make([]byte, len(src))
	for i, c := range src {
		be[len(src)-1-i] = c
	}
	return new(big.Int).SetBytes(be)
}

func encodeRSA4096(pub *rsa.PublicKey) ([]byte, error) {
	if got := pub.N.BitLen(); got != rsa4096Bits {
		return nil, fmt.Errorf("RSA modulus is %d bits, want %d", got, rsa4096Bits)
	}
	if pub.E != rsaExponent {
		return nil, fmt.Errorf("RSA exponent is %d, want %d", pub.E, rsaExponent)
	}
	if pub.N.Bit(0) == 0 {
		return nil, errors.New("RSA modulus is even")
	}
	b := make([]byte, rsa4096KeyDataSize)
	le.PutUint32(b[offRSAWords:], rsa4096Words)
	le.PutUint32(b[offRSAN0Inv:], n0inv(pub.N))
	putWords(b[offRSAN:offRSARR], pub.N)
	putWords(b[offRSARR:], montgomeryRR(pub.N))
	return b, nil
}

// decodeRSA4096 parses key material, rejecting it unless the precomputed
// values agree with the modulus.
func decodeRSA4096(b []byte) (*rsa.PublicKey, error) {
	if len(b) != rsa4096KeyDataSize {
		return nil, fmt.Errorf("RSA key data is %d bytes, want %d", len(b), rsa4096KeyDataSize)
	}
	if w := le.Uint32(b[offRSAWords:]); w != rsa4096Words {
		return nil, fmt.Errorf("RSA key has %d words, want %d", w, rsa4096Words)
	}
	n := words(b[offRSAN:offRSARR])
	if n.BitLen() != rsa4096Bits || n.Bit(0) == 0 {
		return nil, errors.New("invalid RSA modulus")
	}
	if le.Uint32(b[offRSAN0Inv:]) != n0inv(n) {
		return nil, errors.New("RSA n0inv does not match modulus")
	}
	rr := make([]byte, rsa4096WordBytes)
	putWords(rr, montgomeryRR(n))
	if !bytes.Equal(rr, b[offRSARR:]) {
		return nil, errors.New("RSA rr does not match modulus")
	}
	return &rsa.PublicKey{N: n, E: rsaExponent}, nil
}

func verifyRSA4096(keyData, digest, sig []byte) error {
	pub, err := decodeRSA4096(keyData)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig); err != nil {
		return fmt.Errorf("%w: %v", errBadSig, err)
	}
	return nil
}

func signRSA4096(s crypto.Signer, digest []byte) ([]byte, error) {
	sig, err := s.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, err
	}
	if len(sig) != rsa4096SigSize {
		return nil, fmt.Errorf("RSA signature is %d bytes, want %d", len(sig), rsa4096SigSize)
	}
	return sig, nil
}
