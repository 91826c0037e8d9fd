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

// modify_bdb is a hacker tool for tampering with BDBs.
//
// It can bump the root key version, flip bits in any section, point a hash
// entry at a replacement binary and re-sign the data section with a stolen
// subkey, then writes the result to the specified output file.
//
// Usage:
//
//	go run ./cmd/hacker/modify_bdb/ \
//	   --logtostderr \
//	   --input=/path/to/in.bdb \
//	   --output=/path/to/out.bdb \
//	   --binary=/path/to/evil/firmware --type=ap-rw \
//	   --sign
package main

import (
	"flag"
	"strings"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/cmd/hacker/modify_bdb/impl"
)

var (
	input          = flag.String("input", "", "File path to read the BDB from.")
	output         = flag.String("output", "", "File path to write the modified BDB to.")
	bumpKeyVersion = flag.Bool("bump_key_version", false, "Whether to increment the root key version.")
	flips          = flag.String("flip", "", "Comma separated section:offset pairs whose low bit should be flipped, e.g. oem0:4,hashes:30.")
	binaryPath     = flag.String("binary", "", "Replacement binary image for the --type hash entry.")
	dataType       = flag.String("type", "ap-rw", "Hash entry to point at --binary.")
	sign           = flag.Bool("sign", false, "Whether to use the stolen subkey to re-sign the data section.")
)

func main() {
	flag.Parse()

	var fs []string
	if len(*flips) > 0 {
		fs = strings.Split(*flips, ",")
	}
	if err := impl.Main(impl.ModifyBDBOpts{
		Input:          *input,
		Output:         *output,
		BumpKeyVersion: *bumpKeyVersion,
		Flips:          fs,
		BinaryPath:     *binaryPath,
		DataType:       *dataType,
		Sign:           *sign,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
