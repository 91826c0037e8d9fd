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

// bdb_create builds and signs a BDB from a JSON manifest.
//
// Usage:
//
//	go run ./cmd/bdb_create \
//	   --logtostderr \
//	   --config=/path/to/manifest.json \
//	   --output=/path/to/out.bdb \
//	   --anchor_output=/path/to/anchor.json
package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/google/firmware-bdb/cmd/bdb_create/impl"
)

var (
	config       = flag.String("config", "", "File path of the JSON manifest describing the BDB.")
	output       = flag.String("output", "", "File path to write the BDB to.")
	anchorOutput = flag.String("anchor_output", "", "Optional file path to write the root key's trust anchor to.")
)

func main() {
	flag.Parse()

	if err := impl.Main(impl.CreateOpts{
		Config:       *config,
		Output:       *output,
		AnchorOutput: *anchorOutput,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
