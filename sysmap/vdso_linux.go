//go:build linux

package sysmap

// InjectVDSO adds a synthetic mapping for the kernel vdso if the auxv
// carries AT_SYSINFO_EHDR and no folded mapping already covers that
// address (the vdso usually already appears in /proc/<pid>/maps under
// the "[vdso]" path and is folded normally; this only covers the rare
// case where maps omits it but auxv still reports the address).
func InjectVDSO(mappings []MappingInfo, aux AuxVector) []MappingInfo {
	addr, ok := aux[AT_SYSINFO_EHDR]
	if !ok || addr == 0 {
		return mappings
	}
	for _, m := range mappings {
		if addr >= m.SystemStart && addr < m.SystemEnd {
			return mappings
		}
	}
	const vdsoPageSize = 4096
	return append(mappings, MappingInfo{
		Start:        addr,
		Size:         vdsoPageSize,
		Name:         VDSOPath,
		IsExecutable: true,
		SystemStart:  addr,
		SystemEnd:    addr + vdsoPageSize,
	})
}
