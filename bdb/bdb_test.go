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

package bdb_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/google/firmware-bdb/bdb"
	"github.com/google/firmware-bdb/internal/crypto"
	"github.com/google/go-cmp/cmp"
)

const (
	rootKeyVersion = 100
	subkeyVersion  = 200
)

// testParams returns the parameters of a small container signed with the
// test keys. subkeyPEM selects the subkey.
func testParams(t *testing.T, subkeyPEM string) bdb.CreateParams {
	t.Helper()
	root, err := crypto.TestClaimant(crypto.TestRootPriv, rootKeyVersion, "BDB key")
	if err != nil {
		t.Fatalf("root claimant: %v", err)
	}
	sub, err := crypto.TestClaimant(subkeyPEM, subkeyVersion, "Subkey")
	if err != nil {
		t.Fatalf("subkey claimant: %v", err)
	}
	oem0 := make([]byte, 32)
	copy(oem0, "Some OEM area.")
	oem1 := make([]byte, 64)
	copy(oem1, "Some other OEM area.")
	return bdb.CreateParams{
		LoadAddress:          0x123456789abcdef,
		OEMArea0:             oem0,
		OEMArea1:             oem1,
		HeaderSigDescription: "The header sig",
		DataSigDescription:   "The data sig",
		DataDescription:      "Test BDB data",
		DataVersion:          3,
		Hashes: []bdb.HashEntry{
			{
				Offset:      0x10000,
				Size:        0x18000,
				Partition:   1,
				Type:        bdb.DataSPRW,
				LoadAddress: 0x100000,
				Digest:      sha256.Sum256([]byte("sp-rw firmware")),
			},
			{
				Offset:      0x28000,
				Size:        0x20000,
				Partition:   1,
				Type:        bdb.DataAPRW,
				LoadAddress: 0x200000,
				Digest:      sha256.Sum256([]byte("ap-rw firmware")),
			},
		},
		RootKey:      root.Key,
		Subkey:       sub.Key,
		RootSigner:   root.Signer,
		SubkeySigner: sub.Signer,
	}
}

func mustCreate(t *testing.T, p bdb.CreateParams) []byte {
	t.Helper()
	buf, err := bdb.Create(p)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	return buf
}

func TestCreateAccessors(t *testing.T) {
	p := testParams(t, crypto.TestSubkeyPriv)
	b := bdb.BDB(mustCreate(t, p))

	h := b.Header()
	if got, want := h.LoadAddress(), p.LoadAddress; got != want {
		t.Errorf("LoadAddress() = %x, want %x", got, want)
	}
	if got, want := int(h.BDBSize()), len(b); got != want {
		t.Errorf("BDBSize() = %d, want %d", got, want)
	}
	if diff := cmp.Diff(p.RootKey.Bytes(), b.RootKey().Bytes()); diff != "" {
		t.Errorf("root key diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.Subkey.Bytes(), b.Subkey().Bytes()); diff != "" {
		t.Errorf("subkey diff (-want +got):\n%s", diff)
	}
	if !bytes.Equal(b.OEMArea0(), p.OEMArea0) {
		t.Errorf("OEMArea0() = %q, want %q", b.OEMArea0(), p.OEMArea0)
	}
	if !bytes.Equal(b.OEMArea1(), p.OEMArea1) {
		t.Errorf("OEMArea1() = %q, want %q", b.OEMArea1(), p.OEMArea1)
	}
	if got, want := b.HeaderSig().Description(), p.HeaderSigDescription; got != want {
		t.Errorf("header sig description = %q, want %q", got, want)
	}
	if got, want := b.DataSig().Description(), p.DataSigDescription; got != want {
		t.Errorf("data sig description = %q, want %q", got, want)
	}
	d := b.Data()
	if got, want := d.Description(), p.DataDescription; got != want {
		t.Errorf("data description = %q, want %q", got, want)
	}
	if got, want := d.DataVersion(), p.DataVersion; got != want {
		t.Errorf("DataVersion() = %d, want %d", got, want)
	}

	var entries []bdb.HashEntry
	for _, h := range b.Hashes() {
		entries = append(entries, h.Entry())
	}
	if diff := cmp.Diff(p.Hashes, entries); diff != "" {
		t.Errorf("hash entries diff (-want +got):\n%s", diff)
	}
}

func TestHashLookup(t *testing.T) {
	p := testParams(t, crypto.TestSubkeyPriv)
	b := bdb.BDB(mustCreate(t, p))

	for _, test := range []struct {
		desc string
		t    bdb.DataType
		want *bdb.HashEntry
	}{
		{
			desc: "sp-rw",
			t:    bdb.DataSPRW,
			want: &p.Hashes[0],
		}, {
			desc: "ap-rw",
			t:    bdb.DataAPRW,
			want: &p.Hashes[1],
		}, {
			desc: "missing type",
			t:    bdb.DataMCU,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			h := b.Hash(test.t)
			if test.want == nil {
				if h != nil {
					t.Fatalf("Hash(%v) = %v, want nil", test.t, h.Entry())
				}
				return
			}
			if h == nil {
				t.Fatalf("Hash(%v) = nil", test.t)
			}
			if diff := cmp.Diff(*test.want, h.Entry()); diff != "" {
				t.Errorf("Hash(%v) diff (-want +got):\n%s", test.t, diff)
			}
		})
	}
}

func TestHashLookupReturnsFirstMatch(t *testing.T) {
	p := testParams(t, crypto.TestSubkeyPriv)
	p.Hashes[1].Type = bdb.DataSPRW
	b := bdb.BDB(mustCreate(t, p))
	h := b.Hash(bdb.DataSPRW)
	if h == nil {
		t.Fatal("Hash() = nil")
	}
	if got, want := h.Offset(), p.Hashes[0].Offset; got != want {
		t.Errorf("Hash().Offset() = %x, want %x", got, want)
	}
}

func TestAccessorsOnTruncatedBuffer(t *testing.T) {
	buf := mustCreate(t, testParams(t, crypto.TestSubkeyPriv))
	full := bdb.BDB(buf)

	for _, test := range []struct {
		desc    string
		b       bdb.BDB
		wantNil []string
	}{
		{
			desc:    "empty",
			b:       bdb.BDB{},
			wantNil: []string{"header", "root key", "oem0", "subkey", "header sig", "data", "oem1", "hashes", "data sig"},
		}, {
			desc:    "header only",
			b:       full[:bdb.HeaderSize],
			wantNil: []string{"root key", "oem0", "subkey", "header sig", "data", "oem1", "hashes", "data sig"},
		}, {
			desc:    "data signature cut short",
			b:       full[:len(full)-600],
			wantNil: []string{"data sig"},
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			b := test.b
			got := map[string]bool{
				"header":     b.Header() == nil,
				"root key":   b.RootKey() == nil,
				"oem0":       b.OEMArea0() == nil,
				"subkey":     b.Subkey() == nil,
				"header sig": b.HeaderSig() == nil,
				"data":       b.Data() == nil,
				"oem1":       b.OEMArea1() == nil,
				"hashes":     b.Hashes() == nil,
				"data sig":   b.DataSig() == nil,
			}
			want := map[string]bool{}
			for k := range got {
				want[k] = false
			}
			for _, k := range test.wantNil {
				want[k] = true
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("nil sections diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateErrors(t *testing.T) {
	for _, test := range []struct {
		desc    string
		mangle  func(p *bdb.CreateParams)
		wantErr string
		wantIs  error
	}{
		{
			desc:   "unaligned OEM area 0",
			mangle: func(p *bdb.CreateParams) { p.OEMArea0 = make([]byte, 3) },
			wantIs: bdb.ErrOEMAreaSize,
		}, {
			desc:   "unaligned OEM area 1",
			mangle: func(p *bdb.CreateParams) { p.OEMArea1 = make([]byte, 6) },
			wantIs: bdb.ErrOEMAreaSize,
		}, {
			desc:    "swapped signers",
			mangle:  func(p *bdb.CreateParams) { p.RootSigner, p.SubkeySigner = p.SubkeySigner, p.RootSigner },
			wantErr: "signer does not match key",
		}, {
			desc:    "missing signer",
			mangle:  func(p *bdb.CreateParams) { p.SubkeySigner = nil },
			wantErr: "no signer",
		}, {
			desc:    "long description",
			mangle:  func(p *bdb.CreateParams) { p.DataDescription = strings.Repeat("x", bdb.DescriptionSize) },
			wantErr: "longer than",
		}, {
			desc:    "too many hashes",
			mangle:  func(p *bdb.CreateParams) { p.Hashes = make([]bdb.HashEntry, 256) },
			wantErr: "at most 255",
		}, {
			desc:   "broken root key",
			mangle: func(p *bdb.CreateParams) { p.RootKey = p.RootKey[:bdb.KeySize] },
			wantIs: bdb.ErrBufSize,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			p := testParams(t, crypto.TestSubkeyPriv)
			test.mangle(&p)
			_, err := bdb.Create(p)
			if err == nil {
				t.Fatal("Create() = nil error")
			}
			if test.wantIs != nil && !errors.Is(err, test.wantIs) {
				t.Errorf("Create() = %v, want %v", err, test.wantIs)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Create() = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestNewKeyRoundTrip(t *testing.T) {
	for _, test := range []struct {
		desc    string
		privPEM string
		wantAlg bdb.SigAlg
	}{
		{
			desc:    "rsa4096",
			privPEM: crypto.TestRootPriv,
			wantAlg: bdb.SigAlgRSA4096,
		}, {
			desc:    "ecdsa521",
			privPEM: crypto.TestECDSASubkeyPriv,
			wantAlg: bdb.SigAlgECDSA521,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			s, err := crypto.ParsePrivateKey([]byte(test.privPEM))
			if err != nil {
				t.Fatalf("ParsePrivateKey() = %v", err)
			}
			k, err := bdb.NewKey(s.Public(), 7, "round trip")
			if err != nil {
				t.Fatalf("NewKey() = %v", err)
			}
			if err := bdb.CheckKey(k); err != nil {
				t.Fatalf("CheckKey() = %v", err)
			}
			if got := k.SigAlg(); got != test.wantAlg {
				t.Errorf("SigAlg() = %v, want %v", got, test.wantAlg)
			}
			if got, want := k.Description(), "round trip"; got != want {
				t.Errorf("Description() = %q, want %q", got, want)
			}
			pub, err := k.PublicKey()
			if err != nil {
				t.Fatalf("PublicKey() = %v", err)
			}
			again, err := bdb.NewKey(pub, 7, "round trip")
			if err != nil {
				t.Fatalf("NewKey(PublicKey()) = %v", err)
			}
			if diff := cmp.Diff([]byte(k), []byte(again)); diff != "" {
				t.Errorf("key record rebuilt from PublicKey() differs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRSAKeyMaterialIsConsistent(t *testing.T) {
	p := testParams(t, crypto.TestSubkeyPriv)
	k := p.RootKey.KeyData()
	words := le32(k[0:])
	n0inv := le32(k[4:])
	if words != 128 {
		t.Fatalf("words = %d, want 128", words)
	}
	// n0inv is -1/n mod 2^32, so n[0]*n0inv wraps to 0xffffffff.
	if got := le32(k[8:]) * n0inv; got != 0xffffffff {
		t.Errorf("n[0]*n0inv = %#x, want 0xffffffff", got)
	}

	bad := bdb.Key(bytes.Clone(p.RootKey))
	bad.KeyData()[4] ^= 1
	if _, err := bad.PublicKey(); err == nil {
		t.Error("PublicKey() accepted key material with a bad n0inv")
	}
	bad = bdb.Key(bytes.Clone(p.RootKey))
	bad.KeyData()[8+512] ^= 1
	if _, err := bad.PublicKey(); err == nil {
		t.Error("PublicKey() accepted key material with a bad rr")
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
