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

// Package bdb implements the boot descriptor block, a signed container that
// carries a root key, a subkey, OEM areas and a table of payload digests.
//
// A BDB is laid out as:
//
//	header | root key | OEM area 0 | subkey | header sig |
//	data | OEM area 1 | hash table | data sig
//
// The root key signs header through subkey; the subkey signs data through
// hash table. All integers are little-endian.
package bdb

// BDB is a view of a container. Section accessors compute offsets from the
// size fields of the preceding sections and return nil for any section that
// does not fit within both the buffer and the header's bdb_size.
type BDB []byte

// limit returns the number of bytes sections may occupy.
func (b BDB) limit() uint64 {
	n := uint64(len(b))
	if h := b.Header(); h != nil && uint64(h.BDBSize()) < n {
		n = uint64(h.BDBSize())
	}
	return n
}

// section returns b[off:off+size], or nil if it does not fit.
func (b BDB) section(off, size uint64) []byte {
	end, ok := sumSizes(off, size)
	if !ok || end > b.limit() {
		return nil
	}
	return b[off:end:end]
}

// record returns a view of the record at off: at least fixed bytes, extended
// to want bytes if they fit, and clipped to the limit otherwise. Clipped views
// fail the record checks with ErrBufSize.
func (b BDB) record(off uint64, fixed int, want uint64) []byte {
	lim := b.limit()
	if off > lim || lim-off < uint64(fixed) {
		return nil
	}
	end := off + uint64(fixed)
	if want > uint64(fixed) {
		end = off + want
		if want > lim-off {
			end = lim
		}
	}
	return b[off:end:end]
}

// recordSize reads the struct_size field of the record at off, which must
// already be known to hold at least the common prefix.
func (b BDB) recordSize(off uint64) uint64 {
	return uint64(le.Uint16(b[off+offStructSize:]))
}

// Header returns the header record.
func (b BDB) Header() Header {
	if len(b) < HeaderSize {
		return nil
	}
	return Header(b[:HeaderSize:HeaderSize])
}

func (b BDB) rootKeyOffset() (uint64, bool) {
	h := b.Header()
	if h == nil {
		return 0, false
	}
	return uint64(h.StructSize()), true
}

// RootKey returns the BDB key, the root of trust of the container.
func (b BDB) RootKey() Key {
	off, ok := b.rootKeyOffset()
	if !ok {
		return nil
	}
	return b.keyAt(off)
}

func (b BDB) keyAt(off uint64) Key {
	r := b.record(off, KeySize, 0)
	if r == nil {
		return nil
	}
	return Key(b.record(off, KeySize, b.recordSize(off)))
}

func (b BDB) sigAt(off uint64) Sig {
	r := b.record(off, SigSize, 0)
	if r == nil {
		return nil
	}
	return Sig(b.record(off, SigSize, b.recordSize(off)))
}

func (b BDB) oemArea0Offset() (uint64, bool) {
	off, ok := b.rootKeyOffset()
	if !ok {
		return 0, false
	}
	k := b.RootKey()
	if k == nil {
		return 0, false
	}
	return sumSizes(off, uint64(k.StructSize()))
}

// OEMArea0 returns the OEM area following the root key.
func (b BDB) OEMArea0() []byte {
	off, ok := b.oemArea0Offset()
	if !ok {
		return nil
	}
	return b.section(off, uint64(b.Header().OEMArea0Size()))
}

func (b BDB) subkeyOffset() (uint64, bool) {
	off, ok := b.oemArea0Offset()
	if !ok {
		return 0, false
	}
	return sumSizes(off, uint64(b.Header().OEMArea0Size()))
}

// Subkey returns the key that signs the data section.
func (b BDB) Subkey() Key {
	off, ok := b.subkeyOffset()
	if !ok {
		return nil
	}
	return b.keyAt(off)
}

func (b BDB) headerSigOffset() (uint64, bool) {
	off, ok := b.subkeyOffset()
	if !ok {
		return 0, false
	}
	k := b.Subkey()
	if k == nil {
		return 0, false
	}
	return sumSizes(off, uint64(k.StructSize()))
}

// HeaderSig returns the root key's signature over header through subkey.
func (b BDB) HeaderSig() Sig {
	off, ok := b.headerSigOffset()
	if !ok {
		return nil
	}
	return b.sigAt(off)
}

func (b BDB) dataOffset() (uint64, bool) {
	off, ok := b.headerSigOffset()
	if !ok {
		return 0, false
	}
	s := b.HeaderSig()
	if s == nil {
		return 0, false
	}
	return sumSizes(off, uint64(s.StructSize()))
}

// Data returns the data record. The view extends over OEM area 1 and the
// hash table, up to the record's signed_size.
func (b BDB) Data() Data {
	off, ok := b.dataOffset()
	if !ok {
		return nil
	}
	r := b.record(off, DataSize, 0)
	if r == nil {
		return nil
	}
	d := Data(r)
	return Data(b.record(off, DataSize, max(uint64(d.StructSize()), uint64(d.SignedSize()))))
}

func (b BDB) oemArea1Offset() (uint64, bool) {
	off, ok := b.dataOffset()
	if !ok {
		return 0, false
	}
	d := b.Data()
	if d == nil {
		return 0, false
	}
	return sumSizes(off, uint64(d.StructSize()))
}

// OEMArea1 returns the OEM area following the data record.
func (b BDB) OEMArea1() []byte {
	off, ok := b.oemArea1Offset()
	if !ok {
		return nil
	}
	return b.section(off, uint64(b.Data().OEMArea1Size()))
}

// hashTable returns the raw hash table and its entry stride.
func (b BDB) hashTable() ([]byte, uint64) {
	off, ok := b.oemArea1Offset()
	if !ok {
		return nil, 0
	}
	d := b.Data()
	if int(d.HashEntrySize()) < HashEntrySize {
		return nil, 0
	}
	off, ok = sumSizes(off, uint64(d.OEMArea1Size()))
	if !ok {
		return nil, 0
	}
	stride := uint64(d.HashEntrySize())
	return b.section(off, uint64(d.NumHashes())*stride), stride
}

// Hashes returns every entry of the hash table, or nil if the table does not
// fit.
func (b BDB) Hashes() []Hash {
	t, stride := b.hashTable()
	if t == nil {
		return nil
	}
	hs := make([]Hash, 0, uint64(len(t))/stride)
	for off := uint64(0); off < uint64(len(t)); off += stride {
		hs = append(hs, Hash(t[off:off+HashEntrySize:off+HashEntrySize]))
	}
	return hs
}

// Hash returns the first hash entry describing payload type t, or nil if
// there is none.
func (b BDB) Hash(t DataType) Hash {
	tbl, stride := b.hashTable()
	for off := uint64(0); off < uint64(len(tbl)); off += stride {
		if h := Hash(tbl[off : off+HashEntrySize : off+HashEntrySize]); h.Type() == t {
			return h
		}
	}
	return nil
}

// DataSig returns the subkey's signature over data through hash table.
func (b BDB) DataSig() Sig {
	off, ok := b.dataOffset()
	if !ok {
		return nil
	}
	d := b.Data()
	if d == nil {
		return nil
	}
	off, ok = sumSizes(off, uint64(d.SignedSize()))
	if !ok {
		return nil
	}
	return b.sigAt(off)
}
