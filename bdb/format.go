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

import "encoding/binary"

var le = binary.LittleEndian

// Record identities. Both version numbers must match exactly.
const (
	HeaderMagic        = 0x30426442 // "BdB0"
	HeaderVersionMajor = 1
	HeaderVersionMinor = 0

	KeyMagic        = 0x73334256 // "VB3s"
	KeyVersionMajor = 1
	KeyVersionMinor = 0

	SigMagic        = 0x6b334256 // "VB3k"
	SigVersionMajor = 1
	SigVersionMinor = 0

	DataMagic        = 0x31426442 // "BdB1"
	DataVersionMajor = 1
	DataVersionMinor = 0
)

// Fixed record sizes. Key and Sig records are followed by algorithm
// dependent material, so their struct_size is larger than KeySize/SigSize.
const (
	HeaderSize    = 36
	KeySize       = 144
	SigSize       = 144
	DataSize      = 160
	HashEntrySize = 56

	// DescriptionSize is the size of the description field in Key, Sig and
	// Data records. A valid description holds at least one zero byte.
	DescriptionSize = 128

	// SHA256DigestSize is the size of a SHA-256 digest.
	SHA256DigestSize = 32
)

// Field offsets common to every record except hash entries.
const (
	offMagic      = 0
	offMajor      = 4
	offMinor      = 5
	offStructSize = 6
)

// Header field offsets.
const (
	offHeaderLoadAddress = 8
	offHeaderBDBSize     = 16
	offHeaderSignedSize  = 20
	offHeaderOEMArea0    = 24
)

// Key and Sig field offsets. The two records share a layout, differing only
// in the meaning of the word at offset 12.
const (
	offHashAlg     = 8
	offSigAlg      = 9
	offKeyVersion  = 12
	offSigSigned   = 12
	offKeyDesc     = 16
	offSigDesc     = 16
	offKeyMaterial = KeySize
	offSigMaterial = SigSize
)

// Data field offsets.
const (
	offDataVersion   = 8
	offDataOEMArea1  = 12
	offDataNumHashes = 16
	offDataEntrySize = 17
	offDataSigned    = 20
	offDataDesc      = 32
)

// Hash entry field offsets.
const (
	offHashOffset      = 0
	offHashSize        = 8
	offHashPartition   = 12
	offHashType        = 13
	offHashLoadAddress = 16
	offHashDigest      = 24
)

// DataType identifies the payload described by a hash entry.
type DataType uint8

const (
	// DataSPRW is the read-write firmware of the security processor.
	DataSPRW DataType = 1
	// DataAPRW is the read-write firmware of the application processor.
	DataAPRW DataType = 2
	// DataMCU is microcontroller firmware.
	DataMCU DataType = 3
)

func (t DataType) String() string {
	switch t {
	case DataSPRW:
		return "sp-rw"
	case DataAPRW:
		return "ap-rw"
	case DataMCU:
		return "mcu"
	default:
		return "unknown"
	}
}

// description returns the text before the first zero byte of a description
// window, or the whole window if there is none.
func description(w []byte) string {
	for i, c := range w {
		if c == 0 {
			return string(w[:i])
		}
	}
	return string(w)
}

func hasNull(w []byte) bool {
	for _, c := range w {
		if c == 0 {
			return true
		}
	}
	return false
}

// Header is a view of a BDB header record.
// Views are at least HeaderSize bytes long.
type Header []byte

func (h Header) StructMagic() uint32 { return le.Uint32(h[offMagic:]) }
func (h Header) StructMajorVersion() uint8 { return h[offMajor] }
func (h Header) StructMinorVersion() uint8 { return h[offMinor] }
func (h Header) StructSize() uint16 { return le.Uint16(h[offStructSize:]) }
func (h Header) LoadAddress() uint64 { return le.Uint64(h[offHeaderLoadAddress:]) }
func (h Header) BDBSize() uint32 { return le.Uint32(h[offHeaderBDBSize:]) }
func (h Header) SignedSize() uint32 { return le.Uint32(h[offHeaderSignedSize:]) }
func (h Header) OEMArea0Size() uint32 { return le.Uint32(h[offHeaderOEMArea0:]) }
func (h Header) SetStructMagic(v uint32) { le.PutUint32(h[offMagic:], v) }
func (h Header) SetStructMajorVersion(v uint8) { h[offMajor] = v }
func (h Header) SetStructMinorVersion(v uint8) { h[offMinor] = v }
func (h Header) SetStructSize(v uint16) { le.PutUint16(h[offStructSize:], v) }
func (h Header) SetLoadAddress(v uint64) { le.PutUint64(h[offHeaderLoadAddress:], v) }
func (h Header) SetBDBSize(v uint32) { le.PutUint32(h[offHeaderBDBSize:], v) }
func (h Header) SetSignedSize(v uint32) { le.PutUint32(h[offHeaderSignedSize:], v) }
func (h Header) SetOEMArea0Size(v uint32) { le.PutUint32(h[offHeaderOEMArea0:], v) }

// Key is a view of a key record: the fixed part followed by key material.
// Views are at least KeySize bytes long.
type Key []byte

func (k Key) StructMagic() uint32 { return le.Uint32(k[offMagic:]) }
func (k Key) StructMajorVersion() uint8 { return k[offMajor] }
func (k Key) StructMinorVersion() uint8 { return k[offMinor] }
func (k Key) StructSize() uint16 { return le.Uint16(k[offStructSize:]) }
func (k Key) HashAlg() HashAlg { return HashAlg(k[offHashAlg]) }
func (k Key) SigAlg() SigAlg { return SigAlg(k[offSigAlg]) }
func (k Key) KeyVersion() uint32 { return le.Uint32(k[offKeyVersion:]) }
func (k Key) Description() string { return description(k.RawDescription()) }
func (k Key) SetStructMagic(v uint32) { le.PutUint32(k[offMagic:], v) }
func (k Key) SetStructMajorVersion(v uint8) { k[offMajor] = v }
func (k Key) SetStructMinorVersion(v uint8) { k[offMinor] = v }
func (k Key) SetStructSize(v uint16) { le.PutUint16(k[offStructSize:], v) }
func (k Key) SetHashAlg(v HashAlg) { k[offHashAlg] = byte(v) }
func (k Key) SetSigAlg(v SigAlg) { k[offSigAlg] = byte(v) }
func (k Key) SetKeyVersion(v uint32) { le.PutUint32(k[offKeyVersion:], v) }

// RawDescription returns the description window, including any bytes after
// the terminating zero.
func (k Key) RawDescription() []byte {
	return k[offKeyDesc : offKeyDesc+DescriptionSize : offKeyDesc+DescriptionSize]
}

// KeyData returns the key material, or nil if struct_size is inconsistent
// with the view.
func (k Key) KeyData() []byte {
	return trailer(k, offKeyMaterial, k.StructSize())
}

// Bytes returns the record trimmed to struct_size.
func (k Key) Bytes() []byte {
	return record(k, k.StructSize())
}

// Sig is a view of a signature record: the fixed part followed by signature
// material. Views are at least SigSize bytes long.
type Sig []byte

func (s Sig) StructMagic() uint32 { return le.Uint32(s[offMagic:]) }
func (s Sig) StructMajorVersion() uint8 { return s[offMajor] }
func (s Sig) StructMinorVersion() uint8 { return s[offMinor] }
func (s Sig) StructSize() uint16 { return le.Uint16(s[offStructSize:]) }
func (s Sig) HashAlg() HashAlg { return HashAlg(s[offHashAlg]) }
func (s Sig) SigAlg() SigAlg { return SigAlg(s[offSigAlg]) }
func (s Sig) SignedSize() uint32 { return le.Uint32(s[offSigSigned:]) }
func (s Sig) Description() string { return description(s.RawDescription()) }
func (s Sig) SetStructMagic(v uint32) { le.PutUint32(s[offMagic:], v) }
func (s Sig) SetStructMajorVersion(v uint8) { s[offMajor] = v }
func (s Sig) SetStructMinorVersion(v uint8) { s[offMinor] = v }
func (s Sig) SetStructSize(v uint16) { le.PutUint16(s[offStructSize:], v) }
func (s Sig) SetHashAlg(v HashAlg) { s[offHashAlg] = byte(v) }
func (s Sig) SetSigAlg(v SigAlg) { s[offSigAlg] = byte(v) }
func (s Sig) SetSignedSize(v uint32) { le.PutUint32(s[offSigSigned:], v) }

// RawDescription returns the description window.
func (s Sig) RawDescription() []byte {
	return s[offSigDesc : offSigDesc+DescriptionSize : offSigDesc+DescriptionSize]
}

// SigData returns the signature material, or nil if struct_size is
// inconsistent with the view.
func (s Sig) SigData() []byte {
	return trailer(s, offSigMaterial, s.StructSize())
}

// Data is a view of the data record. Views returned by BDB.Data extend over
// OEM area 1 and the hash table when they fit.
type Data []byte

func (d Data) StructMagic() uint32 { return le.Uint32(d[offMagic:]) }
func (d Data) StructMajorVersion() uint8 { return d[offMajor] }
func (d Data) StructMinorVersion() uint8 { return d[offMinor] }
func (d Data) StructSize() uint16 { return le.Uint16(d[offStructSize:]) }
func (d Data) DataVersion() uint32 { return le.Uint32(d[offDataVersion:]) }
func (d Data) OEMArea1Size() uint32 { return le.Uint32(d[offDataOEMArea1:]) }
func (d Data) NumHashes() uint8 { return d[offDataNumHashes] }
func (d Data) HashEntrySize() uint8 { return d[offDataEntrySize] }
func (d Data) SignedSize() uint32 { return le.Uint32(d[offDataSigned:]) }
func (d Data) Description() string { return description(d.RawDescription()) }
func (d Data) SetStructMagic(v uint32) { le.PutUint32(d[offMagic:], v) }
func (d Data) SetStructMajorVersion(v uint8) { d[offMajor] = v }
func (d Data) SetStructMinorVersion(v uint8) { d[offMinor] = v }
func (d Data) SetStructSize(v uint16) { le.PutUint16(d[offStructSize:], v) }
func (d Data) SetDataVersion(v uint32) { le.PutUint32(d[offDataVersion:], v) }
func (d Data) SetOEMArea1Size(v uint32) { le.PutUint32(d[offDataOEMArea1:], v) }
func (d Data) SetNumHashes(v uint8) { d[offDataNumHashes] = v }
func (d Data) SetHashEntrySize(v uint8) { d[offDataEntrySize] = v }
func (d Data) SetSignedSize(v uint32) { le.PutUint32(d[offDataSigned:], v) }

// RawDescription returns the description window.
func (d Data) RawDescription() []byte {
	return d[offDataDesc : offDataDesc+DescriptionSize : offDataDesc+DescriptionSize]
}

// Hash is a view of one hash table entry, exactly HashEntrySize bytes long.
type Hash []byte

func (h Hash) Offset() uint64 { return le.Uint64(h[offHashOffset:]) }
func (h Hash) Size() uint32 { return le.Uint32(h[offHashSize:]) }
func (h Hash) Partition() uint8 { return h[offHashPartition] }
func (h Hash) Type() DataType { return DataType(h[offHashType]) }
func (h Hash) LoadAddress() uint64 { return le.Uint64(h[offHashLoadAddress:]) }
func (h Hash) SetOffset(v uint64) { le.PutUint64(h[offHashOffset:], v) }
func (h Hash) SetSize(v uint32) { le.PutUint32(h[offHashSize:], v) }
func (h Hash) SetPartition(v uint8) { h[offHashPartition] = v }
func (h Hash) SetType(v DataType) { h[offHashType] = byte(v) }
func (h Hash) SetLoadAddress(v uint64) { le.PutUint64(h[offHashLoadAddress:], v) }

// Digest returns the SHA-256 digest window of the entry.
func (h Hash) Digest() []byte {
	return h[offHashDigest : offHashDigest+SHA256DigestSize : offHashDigest+SHA256DigestSize]
}

// Entry copies the view into a HashEntry.
func (h Hash) Entry() HashEntry {
	e := HashEntry{
		Offset:      h.Offset(),
		Size:        h.Size(),
		Partition:   h.Partition(),
		Type:        h.Type(),
		LoadAddress: h.LoadAddress(),
	}
	copy(e.Digest[:], h.Digest())
	return e
}

// HashEntry describes one signed payload.
type HashEntry struct {
	Offset      uint64
	Size        uint32
	Partition   uint8
	Type        DataType
	LoadAddress uint64
	Digest      [SHA256DigestSize]byte
}

func (e HashEntry) put(h Hash) {
	h.SetOffset(e.Offset)
	h.SetSize(e.Size)
	h.SetPartition(e.Partition)
	h.SetType(e.Type)
	h.SetLoadAddress(e.LoadAddress)
	copy(h.Digest(), e.Digest[:])
}

// trailer returns b[fixed:size], or nil if size is smaller than the fixed part
// or larger than b.
func trailer(b []byte, fixed int, size uint16) []byte {
	end := int(size)
	if end < fixed || end > len(b) {
		return nil
	}
	return b[fixed:end:end]
}

// record returns b[:size], or nil if size is larger than b.
func record(b []byte, size uint16) []byte {
	end := int(size)
	if end > len(b) {
		return nil
	}
	return b[:end:end]
}
