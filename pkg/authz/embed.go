package authz

import _ "embed"

//go:embed defaults/model.conf
var defaultModel string

//go:embed defaults/policy.csv
var defaultPolicy string
