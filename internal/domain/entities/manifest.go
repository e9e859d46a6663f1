package entities

// Origin describes where the build obtained a dependency from
type Origin string

// Dependency origins
const (
	OriginUnspecified Origin = ""
	OriginWrap        Origin = "wrap"
	OriginSubmodule   Origin = "submodule"
	OriginSystem      Origin = "system"
	OriginTooling     Origin = "tooling"
	OriginPrebuilt    Origin = "prebuilt"
	OriginRoot        Origin = "root"
)

// Manifest formats understood by the manifest reader
const (
	ManifestFormatFlat  = "flat"
	ManifestFormatDepmf = "depmf"
)

// ManifestEntry is one dependency record produced by the build system
type ManifestEntry struct {
	Name     string
	Version  string
	Origin   Origin
	Licenses []string
}

// Manifest is the parsed dependency manifest; entries keep document order
type Manifest struct {
	Format  string
	Entries []ManifestEntry
}

// Lookup returns the entry with the given name
func (m *Manifest) Lookup(name string) (ManifestEntry, bool) {
	for _, e := range m.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}
