// Package config loads, normalizes, and validates buildbench configuration.
//
// Configuration lives in TOML. Load resolves the file location (explicit path,
// ~/.config/buildbench/config.toml, then ./buildbench.toml), layers the file
// over repository defaults, expands paths, applies environment overrides, and
// validates the result. The workspace root is resolved against the current
// working directory so every other package can treat it as absolute.
//
// The build section describes how the external build tool is invoked: binary,
// sub-command, and the flag spellings used for the program name, the output
// directory and the feature list. Defaults target Anchor workspaces.
package config
