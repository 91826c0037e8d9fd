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
	"errors"
	"math"
	"testing"

	"github.com/google/firmware-bdb/bdb"
)

func goodHeader() bdb.Header {
	h := make(bdb.Header, bdb.HeaderSize)
	h.SetStructMagic(bdb.HeaderMagic)
	h.SetStructMajorVersion(bdb.HeaderVersionMajor)
	h.SetStructMinorVersion(bdb.HeaderVersionMinor)
	h.SetStructSize(bdb.HeaderSize)
	h.SetLoadAddress(math.MaxUint64)
	h.SetBDBSize(1024)
	h.SetSignedSize(512)
	h.SetOEMArea0Size(256)
	return h
}

func TestCheckHeader(t *testing.T) {
	for _, test := range []struct {
		desc   string
		trim   int
		mangle func(h bdb.Header)
		want   error
	}{
		{
			desc: "valid",
		}, {
			desc: "short buffer",
			trim: 1,
			want: bdb.ErrBufSize,
		}, {
			desc:   "struct_size beyond buffer",
			mangle: func(h bdb.Header) { h.SetStructSize(h.StructSize() + 1) },
			want:   bdb.ErrBufSize,
		}, {
			desc:   "struct_size too small",
			mangle: func(h bdb.Header) { h.SetStructSize(h.StructSize() - 1) },
			want:   bdb.ErrStructSize,
		}, {
			desc:   "bad magic",
			mangle: func(h bdb.Header) { h.SetStructMagic(h.StructMagic() + 1) },
			want:   bdb.ErrStructMagic,
		}, {
			desc:   "bad major version",
			mangle: func(h bdb.Header) { h.SetStructMajorVersion(h.StructMajorVersion() + 1) },
			want:   bdb.ErrStructVersion,
		}, {
			desc:   "bad minor version",
			mangle: func(h bdb.Header) { h.SetStructMinorVersion(h.StructMinorVersion() + 1) },
			want:   bdb.ErrStructVersion,
		}, {
			desc:   "unaligned OEM area 0",
			mangle: func(h bdb.Header) { h.SetOEMArea0Size(h.OEMArea0Size() + 1) },
			want:   bdb.ErrOEMAreaSize,
		}, {
			desc:   "bdb_size smaller than header",
			mangle: func(h bdb.Header) { h.SetBDBSize(bdb.HeaderSize - 1) },
			want:   bdb.ErrBDBSize,
		}, {
			desc:   "OEM area 0 beyond bdb_size",
			mangle: func(h bdb.Header) { h.SetOEMArea0Size(h.BDBSize()) },
			want:   bdb.ErrOEMAreaSize,
		}, {
			desc: "OEM area 0 wraps around",
			mangle: func(h bdb.Header) {
				h.SetBDBSize(math.MaxUint32)
				h.SetOEMArea0Size(math.MaxUint32 &^ 3)
			},
			want: bdb.ErrOEMAreaSize,
		}, {
			desc:   "OEM area 0 fills bdb_size",
			mangle: func(h bdb.Header) { h.SetOEMArea0Size(h.BDBSize() - bdb.HeaderSize) },
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			h := goodHeader()
			if test.mangle != nil {
				test.mangle(h)
			}
			if err := bdb.CheckHeader(h[:len(h)-test.trim]); !errors.Is(err, test.want) {
				t.Errorf("CheckHeader() = %v, want %v", err, test.want)
			}
		})
	}
}

// algRecord is the part of the Key and Sig method sets the structural checks
// care about.
type algRecord interface {
	StructMagic() uint32
	StructMajorVersion() uint8
	StructMinorVersion() uint8
	StructSize() uint16
	SetStructMagic(uint32)
	SetStructMajorVersion(uint8)
	SetStructMinorVersion(uint8)
	SetStructSize(uint16)
	SetHashAlg(bdb.HashAlg)
	SetSigAlg(bdb.SigAlg)
	RawDescription() []byte
}

func goodKey() []byte {
	n, _ := bdb.SigAlgRSA4096.KeyDataSize()
	k := make(bdb.Key, bdb.KeySize+n)
	k.SetStructMagic(bdb.KeyMagic)
	k.SetStructMajorVersion(bdb.KeyVersionMajor)
	k.SetStructMinorVersion(bdb.KeyVersionMinor)
	k.SetStructSize(uint16(len(k)))
	k.SetHashAlg(bdb.HashAlgSHA256)
	k.SetSigAlg(bdb.SigAlgRSA4096)
	k.SetKeyVersion(1)
	copy(k.RawDescription(), "Test key")
	return k
}

func goodSig() []byte {
	n, _ := bdb.SigAlgRSA4096.SigSize()
	s := make(bdb.Sig, bdb.SigSize+n)
	s.SetStructMagic(bdb.SigMagic)
	s.SetStructMajorVersion(bdb.SigVersionMajor)
	s.SetStructMinorVersion(bdb.SigVersionMinor)
	s.SetStructSize(uint16(len(s)))
	s.SetHashAlg(bdb.HashAlgSHA256)
	s.SetSigAlg(bdb.SigAlgRSA4096)
	s.SetSignedSize(2)
	copy(s.RawDescription(), "Test sig")
	return s
}

func TestCheckKeyAndSig(t *testing.T) {
	ecdsaKeySize, _ := bdb.SigAlgECDSA521.KeyDataSize()
	ecdsaSigSize, _ := bdb.SigAlgECDSA521.SigSize()

	for _, kind := range []struct {
		name   string
		fixed  int
		ecdsa  int
		newRec func() []byte
		view   func([]byte) algRecord
		check  func([]byte) error
	}{
		{
			name:   "key",
			fixed:  bdb.KeySize,
			ecdsa:  ecdsaKeySize,
			newRec: goodKey,
			view:   func(b []byte) algRecord { return bdb.Key(b) },
			check:  bdb.CheckKey,
		}, {
			name:   "sig",
			fixed:  bdb.SigSize,
			ecdsa:  ecdsaSigSize,
			newRec: goodSig,
			view:   func(b []byte) algRecord { return bdb.Sig(b) },
			check:  bdb.CheckSig,
		},
	} {
		for _, test := range []struct {
			desc   string
			trim   int
			mangle func(r algRecord)
			want   error
		}{
			{
				desc: "valid",
			}, {
				desc: "short buffer",
				trim: 1,
				want: bdb.ErrBufSize,
			}, {
				desc: "shorter than fixed part",
				trim: -1,
				want: bdb.ErrBufSize,
			}, {
				desc:   "struct_size beyond buffer",
				mangle: func(r algRecord) { r.SetStructSize(r.StructSize() + 1) },
				want:   bdb.ErrBufSize,
			}, {
				desc:   "struct_size smaller than fixed part",
				mangle: func(r algRecord) { r.SetStructSize(uint16(kind.fixed - 1)) },
				want:   bdb.ErrStructSize,
			}, {
				desc:   "trailing material too short",
				mangle: func(r algRecord) { r.SetStructSize(r.StructSize() - 1) },
				want:   bdb.ErrStructSize,
			}, {
				desc:   "bad magic",
				mangle: func(r algRecord) { r.SetStructMagic(r.StructMagic() + 1) },
				want:   bdb.ErrStructMagic,
			}, {
				desc:   "bad major version",
				mangle: func(r algRecord) { r.SetStructMajorVersion(r.StructMajorVersion() + 1) },
				want:   bdb.ErrStructVersion,
			}, {
				desc:   "bad minor version",
				mangle: func(r algRecord) { r.SetStructMinorVersion(r.StructMinorVersion() + 1) },
				want:   bdb.ErrStructVersion,
			}, {
				desc:   "invalid hash alg",
				mangle: func(r algRecord) { r.SetHashAlg(bdb.HashAlgInvalid) },
				want:   bdb.ErrHashAlg,
			}, {
				desc:   "unknown hash alg",
				mangle: func(r algRecord) { r.SetHashAlg(7) },
				want:   bdb.ErrHashAlg,
			}, {
				desc:   "invalid sig alg",
				mangle: func(r algRecord) { r.SetSigAlg(bdb.SigAlgInvalid) },
				want:   bdb.ErrSigAlg,
			}, {
				desc:   "unknown sig alg",
				mangle: func(r algRecord) { r.SetSigAlg(9) },
				want:   bdb.ErrSigAlg,
			}, {
				desc:   "ECDSA with RSA sized material",
				mangle: func(r algRecord) { r.SetSigAlg(bdb.SigAlgECDSA521) },
				want:   bdb.ErrStructSize,
			}, {
				desc: "ECDSA with matching struct_size",
				mangle: func(r algRecord) {
					r.SetSigAlg(bdb.SigAlgECDSA521)
					r.SetStructSize(uint16(kind.fixed + kind.ecdsa))
				},
			}, {
				desc:   "unterminated description",
				mangle: func(r algRecord) { fill(r.RawDescription(), 'x') },
				want:   bdb.ErrDescription,
			}, {
				desc:   "text after terminator",
				mangle: func(r algRecord) { r.RawDescription()[100] = 'x' },
			},
		} {
			t.Run(kind.name+"/"+test.desc, func(t *testing.T) {
				b := kind.newRec()
				if test.mangle != nil {
					test.mangle(kind.view(b))
				}
				end := len(b) - test.trim
				if test.trim < 0 {
					end = kind.fixed - 1
				}
				if err := kind.check(b[:end]); !errors.Is(err, test.want) {
					t.Errorf("check() = %v, want %v", err, test.want)
				}
			})
		}
	}
}

func fill(b []byte, c byte) {
	for i := range b {
		b[i] = c
	}
}

const (
	testOEMArea1Size = 256
	testNumHashes    = 3
)

func goodData() bdb.Data {
	signed := bdb.DataSize + testOEMArea1Size + testNumHashes*bdb.HashEntrySize
	d := make(bdb.Data, signed)
	d.SetStructMagic(bdb.DataMagic)
	d.SetStructMajorVersion(bdb.DataVersionMajor)
	d.SetStructMinorVersion(bdb.DataVersionMinor)
	d.SetStructSize(bdb.DataSize)
	d.SetDataVersion(1)
	d.SetOEMArea1Size(testOEMArea1Size)
	d.SetNumHashes(testNumHashes)
	d.SetHashEntrySize(bdb.HashEntrySize)
	d.SetSignedSize(uint32(signed))
	copy(d.RawDescription(), "Test data")
	return d
}

func TestCheckData(t *testing.T) {
	for _, test := range []struct {
		desc   string
		trim   int
		mangle func(d bdb.Data)
		want   error
	}{
		{
			desc: "valid",
		}, {
			desc: "buffer shorter than signed_size",
			trim: 1,
			want: bdb.ErrBufSize,
		}, {
			desc: "buffer shorter than fixed part",
			trim: testOEMArea1Size + testNumHashes*bdb.HashEntrySize + 1,
			want: bdb.ErrBufSize,
		}, {
			desc:   "signed_size beyond buffer",
			mangle: func(d bdb.Data) { d.SetSignedSize(d.SignedSize() + 1) },
			want:   bdb.ErrBufSize,
		}, {
			desc:   "struct_size too small",
			mangle: func(d bdb.Data) { d.SetStructSize(d.StructSize() - 1) },
			want:   bdb.ErrStructSize,
		}, {
			desc:   "struct_size too large",
			mangle: func(d bdb.Data) { d.SetStructSize(d.StructSize() + 4) },
			want:   bdb.ErrStructSize,
		}, {
			desc:   "bad magic",
			mangle: func(d bdb.Data) { d.SetStructMagic(d.StructMagic() + 1) },
			want:   bdb.ErrStructMagic,
		}, {
			desc:   "bad major version",
			mangle: func(d bdb.Data) { d.SetStructMajorVersion(d.StructMajorVersion() + 1) },
			want:   bdb.ErrStructVersion,
		}, {
			desc:   "bad minor version",
			mangle: func(d bdb.Data) { d.SetStructMinorVersion(d.StructMinorVersion() + 1) },
			want:   bdb.ErrStructVersion,
		}, {
			desc:   "unterminated description",
			mangle: func(d bdb.Data) { fill(d.RawDescription(), 'x') },
			want:   bdb.ErrDescription,
		}, {
			desc:   "text after terminator",
			mangle: func(d bdb.Data) { d.RawDescription()[100] = 'x' },
		}, {
			desc:   "bad hash entry size",
			mangle: func(d bdb.Data) { d.SetHashEntrySize(d.HashEntrySize() - 1) },
			want:   bdb.ErrHashEntrySize,
		}, {
			desc:   "unaligned OEM area 1",
			mangle: func(d bdb.Data) { d.SetOEMArea1Size(d.OEMArea1Size() + 1) },
			want:   bdb.ErrOEMAreaSize,
		}, {
			desc:   "OEM area 1 overflows 32 bits",
			mangle: func(d bdb.Data) { d.SetOEMArea1Size(math.MaxUint32 &^ 3) },
			want:   bdb.ErrOEMAreaSize,
		}, {
			desc:   "signed_size one short",
			mangle: func(d bdb.Data) { d.SetSignedSize(d.SignedSize() - 1) },
			want:   bdb.ErrSignedSize,
		}, {
			desc:   "more hashes than signed",
			mangle: func(d bdb.Data) { d.SetNumHashes(d.NumHashes() + 1) },
			want:   bdb.ErrSignedSize,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			d := goodData()
			if test.mangle != nil {
				test.mangle(d)
			}
			if err := bdb.CheckData(d[:len(d)-test.trim]); !errors.Is(err, test.want) {
				t.Errorf("CheckData() = %v, want %v", err, test.want)
			}
		})
	}
}
