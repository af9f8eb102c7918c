// Package configs
// Config uses a default then override strategy:
// 1. Default returns a complete configuration, a node runs without any config file.
// 2. Load reads a YAML file on top of the defaults, keys missing from the file keep their default.
// 3. Validate is run on the merged result.
package configs
