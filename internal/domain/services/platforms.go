package services

import (
	"fmt"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// Meson CPU families (https://mesonbuild.com/Reference-tables.html#cpu-families)
var cpuFamilies = map[string]bool{
	"aarch64": true, "alpha": true, "arc": true, "arm": true, "avr": true,
	"c2000": true, "c6000": true, "csky": true, "dspic": true, "e2k": true,
	"ft32": true, "ia64": true, "loongarch64": true, "m68k": true,
	"microblaze": true, "mips": true, "mips64": true, "msp430": true,
	"parisc": true, "pic24": true, "ppc": true, "ppc64": true, "riscv32": true,
	"riscv64": true, "rl78": true, "rx": true, "s390": true, "s390x": true,
	"sh4": true, "sparc": true, "sparc64": true, "sw_64": true, "wasm32": true,
	"wasm64": true, "x86": true, "x86_64": true, "tricore": true,
}

// AdbWinApi is only shipped prebuilt for these
var windowsArchitectures = map[string]bool{"aarch64": true, "x86": true, "x86_64": true}

// IsKnownCPUFamily reports whether arch is a Meson CPU family
func IsKnownCPUFamily(arch string) bool {
	return cpuFamilies[arch]
}

// ParseTarget parses a platform identifier of the form <os>[-cross]-<arch>
func ParseTarget(id string) (entities.Target, error) {
	parts := strings.Split(id, "-")

	var target entities.Target
	switch len(parts) {
	case 2:
		target = entities.Target{OS: entities.OSFamily(parts[0]), Arch: parts[1]}
	case 3:
		if parts[1] != "cross" {
			return entities.Target{}, fmt.Errorf("%w: %q is not of the form <os>[-cross]-<arch>", entities.ErrUnsupportedPlatform, id)
		}
		target = entities.Target{OS: entities.OSFamily(parts[0]), Cross: true, Arch: parts[2]}
	default:
		return entities.Target{}, fmt.Errorf("%w: %q is not of the form <os>[-cross]-<arch>", entities.ErrUnsupportedPlatform, id)
	}

	if target.Arch == "" {
		return entities.Target{}, fmt.Errorf("%w: %q has no architecture", entities.ErrUnsupportedPlatform, id)
	}

	switch target.OS {
	case entities.OSLinux:
	case entities.OSWindows, entities.OSMacOS:
		if target.Cross {
			return entities.Target{}, fmt.Errorf("%w: cross builds are only supported for linux, got %q", entities.ErrUnsupportedPlatform, id)
		}
	default:
		return entities.Target{}, fmt.Errorf("%w: unknown operating system %q", entities.ErrUnsupportedPlatform, target.OS)
	}

	if target.OS == entities.OSWindows && !windowsArchitectures[target.Arch] {
		return entities.Target{}, fmt.Errorf("%w: windows builds require aarch64, x86 or x86_64, got %q", entities.ErrUnsupportedPlatform, target.Arch)
	}

	return target, nil
}

// EntryPoint is the platform-specific part of SBOM generation
type EntryPoint struct {
	Name string
	OS   entities.OSFamily

	// Extras lists, in emission order, the platform dependencies the build
	// environment may name. Anything else is rejected.
	Extras []entities.Key
}

var toolingExtras = []entities.Key{
	entities.KeyActionGHRelease,
	entities.KeyPipMeson,
}

var alpineExtras = []entities.Key{
	entities.KeyAlpine,
	entities.KeyAlpineMeson,
	entities.KeyAlpineGCC,
	entities.KeyAlpineGPP,
	entities.KeyAlpineCMake,
	entities.KeyAlpineLinuxHeaders,
}

var entryPoints = map[string]*EntryPoint{
	"linux": {
		Name:   "linux",
		OS:     entities.OSLinux,
		Extras: concatKeys(toolingExtras, alpineExtras, []entities.Key{entities.KeySetupAlpine}),
	},
	"linux-cross": {
		Name: "linux-cross",
		OS:   entities.OSLinux,
		Extras: concatKeys(toolingExtras, alpineExtras, []entities.Key{
			entities.KeyMuslCrossMake,
			entities.KeyCrossBinutils,
			entities.KeyCrossGCC,
			entities.KeyCrossMusl,
			entities.KeyCrossGMP,
			entities.KeyCrossMPC,
			entities.KeyCrossMPFR,
			entities.KeyCrossLinux,
			entities.KeyCrossISL,
			entities.KeyDockerSetupBuildx,
			entities.KeyDockerLogin,
			entities.KeyDockerMetadata,
			entities.KeyDockerBake,
		}),
	},
	"windows": {
		Name: "windows",
		OS:   entities.OSWindows,
		Extras: concatKeys(toolingExtras, []entities.Key{
			entities.KeyWindows,
			entities.KeyMSYS2Meson,
			entities.KeyMSYS2GCC,
			entities.KeyMSYS2CMake,
			entities.KeyMSYS2NASM,
			entities.KeySetupMSYS2,
		}),
	},
	"macos": {
		Name: "macos",
		OS:   entities.OSMacOS,
		Extras: concatKeys(toolingExtras, []entities.Key{
			entities.KeyMacOS,
			entities.KeyBrewMeson,
			entities.KeyBrewCMake,
			entities.KeyAppleClang,
			entities.KeyAppleClangPP,
		}),
	},
}

// EntryPointNames lists the supported entry points
var EntryPointNames = []string{"linux", "linux-cross", "windows", "macos"}

// EntryPointFor returns the entry point serving target
func EntryPointFor(target entities.Target) (*EntryPoint, error) {
	ep, ok := entryPoints[target.EntryPoint()]
	if !ok {
		return nil, fmt.Errorf("%w: no entry point for %s", entities.ErrUnsupportedPlatform, target.ID())
	}
	return ep, nil
}

// AcceptsExtra reports whether key is one of the entry point's extras
func (ep *EntryPoint) AcceptsExtra(key entities.Key) bool {
	for _, k := range ep.Extras {
		if k == key {
			return true
		}
	}
	return false
}

// ExtraNames returns the names of the accepted extras in emission order
func (ep *EntryPoint) ExtraNames() []string {
	names := make([]string, 0, len(ep.Extras))
	for _, k := range ep.Extras {
		names = append(names, catalog[k].ExtraName)
	}
	return names
}

func concatKeys(groups ...[]entities.Key) []entities.Key {
	var out []entities.Key
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
