//go:build windows

package sysmap

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// EnumerateModulesWindows lists the loaded modules of pid via the
// psapi-equivalent exposed by golang.org/x/sys/windows: EnumProcessModules
// for the handle table, then GetModuleInformation for each module's base
// address and size and GetModuleBaseName for its short name, matching
// spec.md §4.D's Windows equivalent of the Linux maps parser.
func EnumerateModulesWindows(pid int) ([]MappingInfo, error) {
	h, err := windows.OpenProcess(
		windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ,
		false, uint32(pid))
	if err != nil {
		return nil, &ParseError{Pid: pid, Source: "OpenProcess", Cause: err}
	}
	defer windows.CloseHandle(h)

	const initialCap = 256
	mods := make([]windows.Handle, initialCap)
	var needed uint32
	for {
		size := uint32(len(mods)) * uint32(unsafeSizeofHandle)
		if err := windows.EnumProcessModules(h, &mods[0], size, &needed); err != nil {
			return nil, &ParseError{Pid: pid, Source: "EnumProcessModules", Cause: err}
		}
		count := int(needed) / unsafeSizeofHandle
		if count <= len(mods) {
			mods = mods[:count]
			break
		}
		mods = make([]windows.Handle, count)
	}

	out := make([]MappingInfo, 0, len(mods))
	for _, m := range mods {
		var mi windows.ModuleInfo
		if err := windows.GetModuleInformation(h, m, &mi, uint32(unsafeSizeofModuleInfo)); err != nil {
			continue
		}
		var nameBuf [windows.MAX_PATH]uint16
		n, err := windows.GetModuleBaseName(h, m, &nameBuf[0], uint32(len(nameBuf)))
		if err != nil || n == 0 {
			continue
		}
		out = append(out, MappingInfo{
			Start:        uint64(mi.BaseOfDll),
			Size:         uint64(mi.SizeOfImage),
			Name:         windows.UTF16ToString(nameBuf[:n]),
			IsExecutable: true,
			SystemStart:  uint64(mi.BaseOfDll),
			SystemEnd:    uint64(mi.BaseOfDll) + uint64(mi.SizeOfImage),
		})
	}
	if len(out) == 0 {
		return nil, &ParseError{Pid: pid, Source: "EnumProcessModules", Cause: fmt.Errorf("no modules reported")}
	}
	return out, nil
}

const (
	unsafeSizeofHandle     = 8
	unsafeSizeofModuleInfo = 24 // BaseOfDll, SizeOfImage, EntryPoint: uintptr+uint32+uintptr, padded
)
