// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// Executable formats
const (
	FormatELF   = "elf"
	FormatPE    = "pe"
	FormatMachO = "macho"
)

var formatForOS = map[entities.OSFamily]string{
	entities.OSLinux:   FormatELF,
	entities.OSWindows: FormatPE,
	entities.OSMacOS:   FormatMachO,
}

// binaryInspector checks release executables against the build target
// using debug/elf, debug/pe and debug/macho
type binaryInspector struct{}

// NewBinaryInspector creates a new binary inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBinaryInspector() *binaryInspector {
	return &binaryInspector{}
}

// Inspect identifies the executable at path and compares it with target.
// Linux binaries must also be fully static.
func (g *binaryInspector) Inspect(path string, target entities.Target) (*entities.BinaryInspection, error) {
	inspection, err := g.identify(path)
	if err != nil {
		return nil, err
	}

	inspection.Matches = inspection.Format == formatForOS[target.OS] && inspection.Arch == target.Arch
	if target.OS == entities.OSLinux && !inspection.Static {
		inspection.Matches = false
	}
	return inspection, nil
}

// InspectTree inspects every regular file under prefix/bin and fails on the
// first one that does not match target.
func (g *binaryInspector) InspectTree(prefix string, target entities.Target) ([]*entities.BinaryInspection, error) {
	binDir := filepath.Join(prefix, "bin")
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", binDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var results []*entities.BinaryInspection
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(binDir, entry.Name())
		inspection, err := g.Inspect(path, target)
		if err != nil {
			return nil, err
		}
		if !inspection.Matches {
			return nil, fmt.Errorf("%w: %s is a %s/%s binary (static: %t), want %s/%s",
				entities.ErrEnvironment, entry.Name(), inspection.Format, inspection.Arch,
				inspection.Static, formatForOS[target.OS], target.Arch)
		}
		results = append(results, inspection)
	}
	return results, nil
}

func (g *binaryInspector) identify(path string) (*entities.BinaryInspection, error) {
	if f, err := elf.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.BinaryInspection{
			Path:   path,
			Format: FormatELF,
			Arch:   elfArch(f),
			Static: elfStatic(f),
		}, nil
	}

	if f, err := pe.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.BinaryInspection{Path: path, Format: FormatPE, Arch: peArch(f.Machine)}, nil
	}

	if f, err := macho.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.BinaryInspection{Path: path, Format: FormatMachO, Arch: machoArch(f.Cpu)}, nil
	}

	if f, err := macho.OpenFat(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.BinaryInspection{Path: path, Format: FormatMachO, Arch: "universal"}, nil
	}

	return nil, fmt.Errorf("%s is not an ELF, PE or Mach-O executable", path)
}

// elfStatic reports whether f needs neither an interpreter nor shared libraries
func elfStatic(f *elf.File) bool {
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_INTERP {
			return false
		}
	}
	libs, err := f.ImportedLibraries()
	return err == nil && len(libs) == 0
}

// Architectures are named after Meson CPU families
func elfArch(f *elf.File) string {
	is64 := f.Class == elf.ELFCLASS64
	switch f.Machine {
	case elf.EM_X86_64:
		return "x86_64"
	case elf.EM_386:
		return "x86"
	case elf.EM_AARCH64:
		return "aarch64"
	case elf.EM_ARM:
		return "arm"
	case elf.EM_RISCV:
		if is64 {
			return "riscv64"
		}
		return "riscv32"
	case elf.EM_PPC64:
		return "ppc64"
	case elf.EM_PPC:
		return "ppc"
	case elf.EM_MIPS:
		if is64 {
			return "mips64"
		}
		return "mips"
	case elf.EM_S390:
		return "s390x"
	case elf.EM_LOONGARCH:
		return "loongarch64"
	default:
		return f.Machine.String()
	}
}

func peArch(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x86_64"
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "aarch64"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "arm"
	default:
		return fmt.Sprintf("pe-machine-%#x", machine)
	}
}

func machoArch(cpu macho.Cpu) string {
	switch cpu {
	case macho.CpuAmd64:
		return "x86_64"
	case macho.Cpu386:
		return "x86"
	case macho.CpuArm64:
		return "aarch64"
	case macho.CpuArm:
		return "arm"
	default:
		return cpu.String()
	}
}
