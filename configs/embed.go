// Package configs provides embedded configuration templates for collectord.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship with every build, whether installed from source or a binary
// release.
//
// Configuration hierarchy (see internal/config Load()):
//  1. Hardcoded defaults (internal/config NewConfig())
//  2. User config (~/.config/collector/config.yaml)
//  3. Project config (collector.yaml in the working directory)
//  4. Environment variables (COLLECTOR_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by `collectord config init --user` at ~/.config/collector/config.yaml.
// Holds machine-specific settings: the data directory, the embeddings
// provider, and API credentials.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by `collectord config init` as collector.yaml in the working
// directory. Holds settings worth version-controlling: store backend,
// search limits, and server transport.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
