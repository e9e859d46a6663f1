// Package entities defines core domain models and data structures.
package entities

// Artifact represents a release file produced for one platform
type Artifact struct {
	Name     string
	Version  string
	Platform string
	Path     string
	Type     string // "archive", "checksum", "sbom", "signature"
}

// BinaryInspection describes an executable found in a release tree
type BinaryInspection struct {
	Path    string
	Format  string // "elf", "pe", "macho"
	Arch    string // Meson CPU family
	Static  bool
	Matches bool
}
