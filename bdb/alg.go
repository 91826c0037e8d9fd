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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

// HashAlg identifies the digest algorithm of a key or signature.
type HashAlg uint8

const (
	HashAlgInvalid HashAlg = 0
	HashAlgSHA256  HashAlg = 1
)

// DigestSize returns the digest length of a, and false if a is not supported.
func (a HashAlg) DigestSize() (int, bool) {
	switch a {
	case HashAlgSHA256:
		return SHA256DigestSize, true
	}
	return 0, false
}

func (a HashAlg) String() string {
	switch a {
	case HashAlgSHA256:
		return "sha256"
	}
	return fmt.Sprintf("hash_alg(%d)", uint8(a))
}

// SigAlg identifies the signature algorithm of a key or signature.
type SigAlg uint8

const (
	SigAlgInvalid  SigAlg = 0
	SigAlgRSA4096  SigAlg = 1
	SigAlgECDSA521 SigAlg = 2
)

// KeyDataSize returns the length of the key material that follows a key
// record's fixed part, and false if a is not supported.
func (a SigAlg) KeyDataSize() (int, bool) {
	switch a {
	case SigAlgRSA4096:
		return rsa4096KeyDataSize, true
	case SigAlgECDSA521:
		return ecdsa521KeyDataSize, true
	}
	return 0, false
}

// SigSize returns the length of the signature material that follows a
// signature record's fixed part, and false if a is not supported.
func (a SigAlg) SigSize() (int, bool) {
	switch a {
	case SigAlgRSA4096:
		return rsa4096SigSize, true
	case SigAlgECDSA521:
		return ecdsa521SigSize, true
	}
	return 0, false
}

func (a SigAlg) String() string {
	switch a {
	case SigAlgRSA4096:
		return "rsa4096"
	case SigAlgECDSA521:
		return "ecdsa521"
	}
	return fmt.Sprintf("sig_alg(%d)", uint8(a))
}

// publicKey decodes key material.
func (a SigAlg) publicKey(keyData []byte) (crypto.PublicKey, error) {
	switch a {
	case SigAlgRSA4096:
		return decodeRSA4096(keyData)
	case SigAlgECDSA521:
		return decodeECDSA521(keyData)
	}
	return nil, ErrSigAlg
}

// verifyDigest checks sig over a SHA-256 digest with the given key material.
func (a SigAlg) verifyDigest(keyData, digest, sig []byte) error {
	switch a {
	case SigAlgRSA4096:
		return verifyRSA4096(keyData, digest, sig)
	case SigAlgECDSA521:
		return verifyECDSA521(keyData, digest, sig)
	}
	return ErrSigAlg
}

// signDigest signs a SHA-256 digest, returning exactly SigSize bytes.
func (a SigAlg) signDigest(s crypto.Signer, digest []byte) ([]byte, error) {
	switch a {
	case SigAlgRSA4096:
		return signRSA4096(s, digest)
	case SigAlgECDSA521:
		return signECDSA521(s, digest)
	}
	return nil, ErrSigAlg
}

// encodePublicKey picks the algorithm for pub and encodes its key material.
func encodePublicKey(pub crypto.PublicKey) (SigAlg, []byte, error) {
	switch p := pub.(type) {
	case *rsa.PublicKey:
		b, err := encodeRSA4096(p)
		return SigAlgRSA4096, b, err
	case *ecdsa.PublicKey:
		if p.Curve != elliptic.P521() {
			return SigAlgInvalid, nil, fmt.Errorf("unsupported curve %s", p.Curve.Params().Name)
		}
		b, err := encodeECDSA521(p)
		return SigAlgECDSA521, b, err
	default:
		return SigAlgInvalid, nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}
