package schema

import _ "embed"

// ProcessV1Schema contains the JSON schema for process manifests.
//
//go:embed process.v1.json
var ProcessV1Schema []byte
