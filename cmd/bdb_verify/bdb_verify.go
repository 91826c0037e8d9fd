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

// bdb_verify checks BDB files against a trust anchor and prints their
// contents.
//
// Usage:
//
//	go run ./cmd/bdb_verify \
//	   --logtostderr \
//	   --anchor=/path/to/anchor.json \
//	   /path/to/a.bdb /path/to/b.bdb
//
// Instead of --anchor, the root key can be given as a PEM file together with
// the version and description its key record is expected to carry.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/cmd/bdb_verify/impl"
)

var (
	anchor             = flag.String("anchor", "", "File path of the JSON trust anchor.")
	rootKey            = flag.String("root_key", "", "File path of the PEM root key, used when --anchor is not given.")
	rootKeyVersion     = flag.Uint("root_key_version", 0, "Pinned version of --root_key.")
	rootKeyDescription = flag.String("root_key_description", "", "Description in the key record of --root_key.")
	allowKeyAdvance    = flag.Bool("allow_key_advance", true, "Whether a root key newer than the pinned version passes.")
)

func main() {
	flag.Parse()

	if err := impl.Main(impl.VerifyOpts{
		AnchorPath:         *anchor,
		RootKeyPath:        *rootKey,
		RootKeyVersion:     uint32(*rootKeyVersion),
		RootKeyDescription: *rootKeyDescription,
		AllowKeyAdvance:    *allowKeyAdvance,
		Files:              flag.Args(),
		Out:                os.Stdout,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
