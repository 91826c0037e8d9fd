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

// Package crypto loads the keys used to build and verify BDBs.
package crypto

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/google/firmware-bdb/bdb"
)

// ParsePrivateKey parses a PEM encoded RSA or EC private key.
func ParsePrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, rest := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("pem decoded to nil")
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("extraneous data: %v", rest)
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("private key is of the wrong type %s", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}
	s, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key of type %T cannot sign", key)
	}
	return s, nil
}

// ParsePublicKey parses a PEM encoded public key.
func ParsePublicKey(pemBytes []byte) (crypto.PublicKey, error) {
	block, rest := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("pem decoded to nil")
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("extraneous data: %v", rest)
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse RSA public key: %w", err)
		}
		return pub, nil
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse public key: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("public key is of the wrong type %s", block.Type)
	}
}

// LoadPrivateKey reads a PEM private key from path.
func LoadPrivateKey(path string) (crypto.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return ParsePrivateKey(b)
}

// LoadPublicKey reads a PEM public key from path. A private key file is
// accepted too, in which case its public half is returned.
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if pub, err := ParsePublicKey(b); err == nil {
		return pub, nil
	}
	s, err := ParsePrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("%q holds neither a public nor a private key: %w", path, err)
	}
	return s.Public(), nil
}

// Claimant is a key pair that signs one level of a BDB trust chain.
type Claimant struct {
	Signer crypto.Signer
	// Key is the BDB key record for Signer's public half.
	Key bdb.Key
}

// NewClaimant builds a Claimant from a signer, recording version and
// description in its key record.
func NewClaimant(s crypto.Signer, version uint32, description string) (*Claimant, error) {
	k, err := bdb.NewKey(s.Public(), version, description)
	if err != nil {
		return nil, fmt.Errorf("failed to build key record: %w", err)
	}
	return &Claimant{Signer: s, Key: k}, nil
}

// TestClaimant returns a Claimant for one of the TEST/DEMO keys in this
// package.
func TestClaimant(privPEM string, version uint32, description string) (*Claimant, error) {
	s, err := ParsePrivateKey([]byte(privPEM))
	if err != nil {
		return nil, err
	}
	return NewClaimant(s, version, description)
}
