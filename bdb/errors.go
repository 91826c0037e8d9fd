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

import "errors"

// Structural errors returned by the record checks.
var (
	ErrBufSize       = errors.New("buffer too small")
	ErrStructSize    = errors.New("struct_size mismatch")
	ErrStructMagic   = errors.New("bad struct magic")
	ErrStructVersion = errors.New("bad struct version")
	ErrHashAlg       = errors.New("unsupported hash algorithm")
	ErrSigAlg        = errors.New("unsupported signature algorithm")
	ErrDescription   = errors.New("description not null-terminated")
	ErrOEMAreaSize   = errors.New("bad OEM area size")
	ErrBDBSize       = errors.New("bdb_size smaller than header")
	ErrHashEntrySize = errors.New("bad hash entry size")
	ErrSignedSize    = errors.New("signed_size mismatch")
)

// Verification stage errors returned by Verify. Each wraps the underlying
// cause, so errors.Is matches both the stage and the cause.
var (
	ErrHeader        = errors.New("bad header")
	ErrBDBKey        = errors.New("bad BDB key")
	ErrOEMArea0      = errors.New("OEM area 0 out of bounds")
	ErrSubkey        = errors.New("bad subkey")
	ErrBDBSignedSize = errors.New("header signed_size does not cover header through subkey")
	ErrHeaderSig     = errors.New("bad header signature")
	ErrData          = errors.New("bad data block")
	ErrDataSig       = errors.New("bad data signature")
)

var (
	errKeyDigest   = errors.New("key digest does not match trust anchor")
	errAlgMismatch = errors.New("signature algorithms differ from signing key")
	errBadSig      = errors.New("signature verification failed")
)
