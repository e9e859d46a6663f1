package entities

import "time"

// Lifecycle phases recorded in document metadata
const (
	LifecycleBuild  = "build"
	LifecycleDesign = "design"
)

// DocumentOptions controls the document metadata
type DocumentOptions struct {
	// Lifecycle defaults to LifecycleBuild
	Lifecycle string

	// Timestamp is omitted from the document when nil
	Timestamp *time.Time

	// ToolVersion, when set, records sbomgen in metadata.tools
	ToolVersion string
}
