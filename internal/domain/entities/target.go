package entities

// OSFamily is an operating system the port can be built for
type OSFamily string

// Supported operating systems
const (
	OSLinux   OSFamily = "linux"
	OSWindows OSFamily = "windows"
	OSMacOS   OSFamily = "macos"
)

// Target is the platform a build produces binaries for
type Target struct {
	OS    OSFamily
	Cross bool
	Arch  string
}

// ID returns the platform identifier, e.g. "linux-cross-aarch64"
func (t Target) ID() string {
	if t.Cross {
		return string(t.OS) + "-cross-" + t.Arch
	}
	return string(t.OS) + "-" + t.Arch
}

// EntryPoint returns the name of the entry point serving this target
func (t Target) EntryPoint() string {
	if t.Cross {
		return string(t.OS) + "-cross"
	}
	return string(t.OS)
}
