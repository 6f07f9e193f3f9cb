//go:build linux

package sysmap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseMaps reads /proc/<pid>/maps and returns one MemoryRegion per line,
// in the file's own (address-ascending) order.
//
// Line format: "start-end perms offset dev inode pathname", e.g.
//
//	55a1b2c00000-55a1b2c21000 r--p 00000000 08:01 1234  /usr/bin/cat
//
// pathname is optional and may be a bracketed pseudo-path such as
// "[heap]", "[stack]", or "[vdso]"; those are kept verbatim in Path.
func ParseMaps(pid int) ([]MemoryRegion, error) {
	path := fmt.Sprintf("/proc/%d/maps", pid)
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Pid: pid, Source: "maps", Cause: err}
	}
	defer f.Close()

	var regions []MemoryRegion
	scanner := bufio.NewScanner(f)
	// maps lines are short but a process with many mapped files can still
	// exceed bufio's 64 KiB default token size in pathological cases.
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		r, err := parseMapsLine(scanner.Text())
		if err != nil {
			return nil, &ParseError{Pid: pid, Source: "maps", Cause: err}
		}
		regions = append(regions, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Pid: pid, Source: "maps", Cause: err}
	}
	return regions, nil
}

func parseMapsLine(line string) (MemoryRegion, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %q", line)
	}

	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return MemoryRegion{}, fmt.Errorf("malformed address range %q", fields[0])
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("bad start address %q: %w", addrs[0], err)
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("bad end address %q: %w", addrs[1], err)
	}
	if end < start {
		return MemoryRegion{}, fmt.Errorf("end %x before start %x", end, start)
	}

	perms := fields[1]
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("bad offset %q: %w", fields[2], err)
	}

	r := MemoryRegion{
		Start:  start,
		Size:   end - start,
		Offset: offset,
		Read:   strings.Contains(perms, "r"),
		Write:  strings.Contains(perms, "w"),
		Exec:   strings.Contains(perms, "x"),
	}

	if len(fields) >= 6 {
		p := strings.Join(fields[5:], " ")
		const deletedSuffix = " (deleted)"
		if strings.HasSuffix(p, deletedSuffix) {
			r.IsDeleted = true
			p = strings.TrimSuffix(p, deletedSuffix)
		}
		r.Path = p
		r.IsVDSO = p == "[vdso]"
	}
	return r, nil
}

// FoldMappings collapses adjacent regions sharing a non-empty path into
// a single MappingInfo, per spec.md §4.D: the fold preserves the first
// region's start address as the nominal Start, biased forward to the
// first executable region if later regions in the run are the ones
// marked executable, while SystemStart/SystemEnd always record the
// fold's true, unbiased kernel-reported extent.
func FoldMappings(regions []MemoryRegion) []MappingInfo {
	var out []MappingInfo
	i := 0
	for i < len(regions) {
		if regions[i].Path == "" {
			i++
			continue
		}
		j := i + 1
		for j < len(regions) && regions[j].Path == regions[i].Path && regions[j].Start == regions[j-1].End() {
			j++
		}
		out = append(out, foldRun(regions[i:j]))
		i = j
	}
	return out
}

func foldRun(run []MemoryRegion) MappingInfo {
	m := MappingInfo{
		Start:       run[0].Start,
		Name:        run[0].Path,
		FileOffset:  run[0].Offset,
		SystemStart: run[0].Start,
		SystemEnd:   run[len(run)-1].End(),
	}
	biased := false
	for _, r := range run {
		if r.Exec {
			m.IsExecutable = true
			if !biased {
				m.Start = r.Start
				m.FileOffset = r.Offset
				biased = true
			}
		}
	}
	m.Size = m.SystemEnd - m.Start
	return m
}
