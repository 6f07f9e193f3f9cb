//go:build darwin

package sysmap

/*
#include <mach/mach.h>

static kern_return_t minidump_task_for_pid(int pid, mach_port_t *task) {
	return task_for_pid(mach_task_self(), pid, task);
}

static kern_return_t minidump_task_dyld_info(mach_port_t task, task_dyld_info_data_t *info) {
	mach_msg_type_number_t count = TASK_DYLD_INFO_COUNT;
	return task_info(task, TASK_DYLD_INFO, (task_info_t)info, &count);
}
*/
import "C"

import "fmt"

// remoteReader mirrors reader.Reader's ReadToVec, kept local so this
// package has no compile-time dependency on package reader, matching the
// decoupling modmem.remoteReader already uses.
type remoteReader interface {
	ReadToVec(src uint64, n int) ([]byte, error)
}

// dyldImageInfoSize64 is the size of struct dyld_image_info from
// <mach-o/dyld_images.h>: a load address, a pointer to a nul-terminated
// path string inside the target, and a file-mod-time we don't need.
// Only the 64-bit layout is modeled; macOS has not shipped a 32-bit
// kernel since the switch documented in spec.md's target-OS list.
const dyldImageInfoSize64 = 8 + 8 + 8 // imageLoadAddress, imageFilePath, imageFileModDate

// EnumerateModulesDarwin walks the dyld "all images" array for pid via
// task_dyld_info -> AllImageInfos, reading the array and each image's
// path string out of the target through r (the values reported by the
// kernel are untrusted: count and addr are bounds-checked before use,
// per spec.md §5's "memory safety of unsafe reads" requirement).
func EnumerateModulesDarwin(pid int, r remoteReader) ([]MappingInfo, error) {
	var task C.mach_port_t
	if kr := C.minidump_task_for_pid(C.int(pid), &task); kr != C.KERN_SUCCESS {
		return nil, &ParseError{Pid: pid, Source: "task_for_pid", Cause: fmt.Errorf("kern_return_t %d", int(kr))}
	}

	var info C.task_dyld_info_data_t
	if kr := C.minidump_task_dyld_info(task, &info); kr != C.KERN_SUCCESS {
		return nil, &ParseError{Pid: pid, Source: "task_dyld_info", Cause: fmt.Errorf("kern_return_t %d", int(kr))}
	}

	allImagesAddr := uint64(info.all_image_info_addr)
	headerBuf, err := r.ReadToVec(allImagesAddr, 24)
	if err != nil {
		return nil, &ParseError{Pid: pid, Source: "dyld_all_image_infos header", Cause: err}
	}
	if len(headerBuf) < 24 {
		return nil, &ParseError{Pid: pid, Source: "dyld_all_image_infos header", Cause: fmt.Errorf("short read: %d bytes", len(headerBuf))}
	}
	infoArrayCount := leUint32(headerBuf[4:8])
	infoArrayAddr := leUint64(headerBuf[8:16])

	const maxSaneImageCount = 1 << 16
	if infoArrayCount > maxSaneImageCount {
		return nil, &ParseError{Pid: pid, Source: "dyld_all_image_infos header", Cause: fmt.Errorf("implausible image count %d", infoArrayCount)}
	}

	arrayBytes, err := r.ReadToVec(infoArrayAddr, int(infoArrayCount)*dyldImageInfoSize64)
	if err != nil {
		return nil, &ParseError{Pid: pid, Source: "dyld image array", Cause: err}
	}

	var out []MappingInfo
	for i := uint32(0); i*dyldImageInfoSize64 < uint32(len(arrayBytes)); i++ {
		entry := arrayBytes[i*dyldImageInfoSize64:]
		loadAddr := leUint64(entry[0:8])
		pathAddr := leUint64(entry[8:16])
		if loadAddr == 0 || pathAddr == 0 {
			continue
		}
		name, err := readCString(r, pathAddr)
		if err != nil {
			// A single unreadable path does not invalidate the rest of
			// the image list; skip it and keep walking.
			continue
		}
		out = append(out, MappingInfo{
			Start:        loadAddr,
			Name:         name,
			IsExecutable: true,
			SystemStart:  loadAddr,
			SystemEnd:    loadAddr,
		})
	}
	return out, nil
}

func readCString(r remoteReader, addr uint64) (string, error) {
	const chunk = 256
	const maxLen = 4096
	var out []byte
	for uint64(len(out)) < maxLen {
		buf, err := r.ReadToVec(addr+uint64(len(out)), chunk)
		if err != nil {
			return "", err
		}
		if len(buf) == 0 {
			return "", fmt.Errorf("zero-length read at %#x", addr)
		}
		for _, b := range buf {
			if b == 0 {
				return string(out), nil
			}
			out = append(out, b)
		}
		if len(buf) < chunk {
			break
		}
	}
	return string(out), nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
