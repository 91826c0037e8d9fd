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
	"math"
	"math/bits"
)

// sumSizes adds section sizes, returning false if the sum carries out of 64
// bits.
func sumSizes(sizes ...uint64) (uint64, bool) {
	var total, carry uint64
	for _, s := range sizes {
		total, carry = bits.Add64(total, s, 0)
		if carry != 0 {
			return 0, false
		}
	}
	return total, true
}

// dataSignedSize returns struct_size + num_hashes*hash_entry_size +
// oem_area_1_size, and false if the total does not fit in 32 bits.
func dataSignedSize(d Data) (uint64, bool) {
	hi, table := bits.Mul64(uint64(d.NumHashes()), uint64(d.HashEntrySize()))
	if hi != 0 {
		return 0, false
	}
	total, ok := sumSizes(uint64(d.StructSize()), table, uint64(d.OEMArea1Size()))
	if !ok || total > math.MaxUint32 {
		return 0, false
	}
	return total, true
}

// CheckHeader checks that b starts with a self-consistent header record.
// len(b) is the number of bytes known to be available.
func CheckHeader(b []byte) error {
	if len(b) < HeaderSize {
		return ErrBufSize
	}
	h := Header(b)
	if len(b) < int(h.StructSize()) {
		return ErrBufSize
	}
	if h.StructSize() != HeaderSize {
		return ErrStructSize
	}
	if h.StructMagic() != HeaderMagic {
		return ErrStructMagic
	}
	if h.StructMajorVersion() != HeaderVersionMajor || h.StructMinorVersion() != HeaderVersionMinor {
		return ErrStructVersion
	}
	if h.OEMArea0Size()%4 != 0 {
		return ErrOEMAreaSize
	}
	if h.BDBSize() < uint32(h.StructSize()) {
		return ErrBDBSize
	}
	if end, ok := sumSizes(uint64(h.StructSize()), uint64(h.OEMArea0Size())); !ok || end > uint64(h.BDBSize()) {
		return ErrOEMAreaSize
	}
	return nil
}

// CheckKey checks that b starts with a self-consistent key record.
func CheckKey(b []byte) error {
	if len(b) < KeySize {
		return ErrBufSize
	}
	k := Key(b)
	if err := checkSizeMagicVersion(b, k.StructSize(), KeySize, k.StructMagic(), KeyMagic,
		k.StructMajorVersion(), k.StructMinorVersion(), KeyVersionMajor, KeyVersionMinor); err != nil {
		return err
	}
	return checkAlgs(k.HashAlg(), k.SigAlg(), int(k.StructSize())-KeySize, SigAlg.KeyDataSize, k.RawDescription())
}

// CheckSig checks that b starts with a self-consistent signature record.
func CheckSig(b []byte) error {
	if len(b) < SigSize {
		return ErrBufSize
	}
	s := Sig(b)
	if err := checkSizeMagicVersion(b, s.StructSize(), SigSize, s.StructMagic(), SigMagic,
		s.StructMajorVersion(), s.StructMinorVersion(), SigVersionMajor, SigVersionMinor); err != nil {
		return err
	}
	return checkAlgs(s.HashAlg(), s.SigAlg(), int(s.StructSize())-SigSize, SigAlg.SigSize, s.RawDescription())
}

func checkSizeMagicVersion(b []byte, size uint16, fixed int, magic, wantMagic uint32, major, minor, wantMajor, wantMinor uint8) error {
	if len(b) < int(size) {
		return ErrBufSize
	}
	if int(size) < fixed {
		return ErrStructSize
	}
	if magic != wantMagic {
		return ErrStructMagic
	}
	if major != wantMajor || minor != wantMinor {
		return ErrStructVersion
	}
	return nil
}

// checkAlgs whitelists the algorithms before trusting the registry for the
// length of the trailing material, then checks the description.
func checkAlgs(hashAlg HashAlg, sigAlg SigAlg, trailing int, trailingSize func(SigAlg) (int, bool), desc []byte) error {
	if _, ok := hashAlg.DigestSize(); !ok {
		return ErrHashAlg
	}
	want, ok := trailingSize(sigAlg)
	if !ok {
		return ErrSigAlg
	}
	if trailing != want {
		return ErrStructSize
	}
	if !hasNull(desc) {
		return ErrDescription
	}
	return nil
}

// CheckData checks that b starts with a self-consistent data record, and
// that b is long enough to hold OEM area 1 and the hash table after it.
func CheckData(b []byte) error {
	if len(b) < DataSize {
		return ErrBufSize
	}
	d := Data(b)
	if len(b) < int(d.StructSize()) || uint64(len(b)) < uint64(d.SignedSize()) {
		return ErrBufSize
	}
	if d.StructSize() != DataSize {
		return ErrStructSize
	}
	if d.StructMagic() != DataMagic {
		return ErrStructMagic
	}
	if d.StructMajorVersion() != DataVersionMajor || d.StructMinorVersion() != DataVersionMinor {
		return ErrStructVersion
	}
	if !hasNull(d.RawDescription()) {
		return ErrDescription
	}
	if d.HashEntrySize() != HashEntrySize {
		return ErrHashEntrySize
	}
	if d.OEMArea1Size()%4 != 0 {
		return ErrOEMAreaSize
	}
	want, ok := dataSignedSize(d)
	if !ok {
		return ErrOEMAreaSize
	}
	if uint64(d.SignedSize()) != want {
		return ErrSignedSize
	}
	return nil
}
