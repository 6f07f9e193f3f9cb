//go:build linux

package sysmap

import (
	"encoding/binary"
	"fmt"
	"os"
)

// ParseAuxv reads /proc/<pid>/auxv and decodes it as a sequence of
// native-word-sized (key, value) pairs, terminated by an AT_NULL (key
// zero) entry, mirroring internal/core/process.go:findEntryPoint's own
// auxv tag/value walk (there specialized to just AT_ENTRY; here
// generalized to the whole vector, per spec.md §4.D).
func ParseAuxv(pid int) (AuxVector, error) {
	path := fmt.Sprintf("/proc/%d/auxv", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Pid: pid, Source: "auxv", Cause: err}
	}
	return decodeAuxv(data)
}

func decodeAuxv(data []byte) (AuxVector, error) {
	const pairSize = 16 // two uint64s: key, value
	aux := make(AuxVector)
	for len(data) >= pairSize {
		key := binary.LittleEndian.Uint64(data[0:8])
		val := binary.LittleEndian.Uint64(data[8:16])
		data = data[pairSize:]
		if key == AT_NULL {
			return aux, nil
		}
		aux[key] = val
	}
	return aux, nil
}
