// Package loader builds a simulator-ready memory image from an AArch64
// ELF executable, grounded on the ELF-walking shape of the reference
// loader examined for this simulator: open with stdlib debug/elf,
// validate class and machine, then copy each PT_LOAD segment's bytes
// into place.
package loader

import (
	"debug/elf"
	"fmt"
)

// Image is the memory layout a loaded ELF file produces once its
// segments are flattened into one contiguous buffer, per spec.md §6.
type Image struct {
	Bytes        []byte
	ProgramStart uint64
	Entry        uint64
	Sections     []SectionInfo
}

// SectionInfo records where a named ELF section landed in Image.Bytes.
type SectionInfo struct {
	Name  string
	Start uint64
	Size  uint64
}

// Open validates the ELF file at path for this simulator: 64-bit class,
// AArch64 machine. The caller owns the returned file and must Close it.
func Open(path string) (*elf.File, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	if f.Class != elf.ELFCLASS64 {
		f.Close()
		return nil, fmt.Errorf("loader: %s is not a 64-bit ELF (class %s)", path, f.Class)
	}
	if f.Machine != elf.EM_AARCH64 {
		f.Close()
		return nil, fmt.Errorf("loader: %s is not AArch64 (machine %s)", path, f.Machine)
	}
	return f, nil
}

// BuildImage walks f's PT_LOAD segments into a single buffer, per
// spec.md §6: program_start is the lowest segment virtual address, the
// buffer is sized to the highest segment end plus 1024 bytes of headroom,
// and the driver sets SP to the top of that buffer before starting.
func BuildImage(f *elf.File) (*Image, error) {
	type segment struct {
		vaddr uint64
		data  []byte
	}
	var segments []segment
	var lowest, highest uint64
	haveLoad := false

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, phdr.Filesz)
		if _, err := phdr.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("loader: read segment at 0x%X: %w", phdr.Vaddr, err)
		}
		segments = append(segments, segment{vaddr: phdr.Vaddr, data: data})

		end := phdr.Vaddr + phdr.Memsz
		if !haveLoad || phdr.Vaddr < lowest {
			lowest = phdr.Vaddr
		}
		if end > highest {
			highest = end
		}
		haveLoad = true
	}
	if !haveLoad {
		return nil, fmt.Errorf("loader: %s ELF file has no PT_LOAD segments", f.Machine)
	}

	size := int(highest-lowest) + 1024
	img := &Image{
		Bytes:        make([]byte, size),
		ProgramStart: lowest,
		Entry:        f.Entry,
	}
	for _, s := range segments {
		off := s.vaddr - lowest
		copy(img.Bytes[off:], s.data)
	}

	for _, sect := range f.Sections {
		if sect.Addr == 0 || sect.Size == 0 {
			continue
		}
		img.Sections = append(img.Sections, SectionInfo{
			Name:  sect.Name,
			Start: sect.Addr,
			Size:  sect.Size,
		})
	}
	return img, nil
}

// LoadFile is the convenience entry point combining Open and BuildImage.
func LoadFile(path string) (*Image, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return BuildImage(f)
}
