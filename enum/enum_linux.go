//go:build linux

package enum

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/coredump-project/minidump/sysmap"
)

// New performs spec.md §4.E's Init step: parse auxv, enumerate threads
// via /proc/<pid>/task, parse and fold mappings, inject the vdso entry
// if auxv reports one, and select the principal module.
func New(pid int) (*Enumerator, error) {
	aux, err := sysmap.ParseAuxv(pid)
	if err != nil {
		return nil, err
	}
	tids, err := enumerateThreadIDs(pid)
	if err != nil {
		return nil, err
	}
	regions, err := sysmap.ParseMaps(pid)
	if err != nil {
		return nil, err
	}
	mappings := sysmap.FoldMappings(regions)
	mappings = sysmap.InjectVDSO(mappings, aux)
	selectPrincipalMapping(mappings, aux)

	e := &Enumerator{pid: pid, aux: aux, mappings: mappings}
	e.threads = make([]Thread, len(tids))
	for i, tid := range tids {
		e.threads[i] = Thread{ID: tid}
	}
	e.buildTables()
	return e, nil
}

func enumerateThreadIDs(pid int) ([]ThreadID, error) {
	dir := filepath.Join("/proc", strconv.Itoa(pid), "task")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var tids []ThreadID
	for _, ent := range entries {
		tid, err := strconv.Atoi(ent.Name())
		if err != nil {
			continue
		}
		tids = append(tids, ThreadID(tid))
	}
	return tids, nil
}

// Suspend implements spec.md §4.E's Suspend step: attach to every
// enumerated thread, silently dropping any that vanished or refused
// attach, and on x86/x86_64 additionally dropping any thread whose
// stack pointer reads as zero (trusted seccomp-sandbox code, per
// linux_ptrace_dumper.rs::suspend_thread). Fails only if zero threads
// survive.
func (e *Enumerator) Suspend() error {
	kept := e.threads[:0]
	for _, t := range e.threads {
		sp, pc, err := suspendThread(int(t.ID))
		if err != nil {
			continue
		}
		if checkZeroStackPointer && sp == 0 {
			_ = syscall.PtraceDetach(int(t.ID))
			continue
		}
		t.SP = sp
		t.PC = pc
		kept = append(kept, t)
	}
	e.threads = kept
	if len(e.threads) == 0 {
		return &NoThreadsRemainingError{Pid: e.pid}
	}
	e.suspended = true
	return nil
}

func suspendThread(tid int) (sp, pc uint64, err error) {
	if err := syscall.PtraceAttach(tid); err != nil {
		return 0, 0, err
	}
	for {
		var ws syscall.WaitStatus
		_, werr := syscall.Wait4(tid, &ws, 0, nil)
		if werr == syscall.EINTR {
			continue
		}
		if werr != nil {
			syscall.PtraceDetach(tid)
			return 0, 0, werr
		}
		break
	}
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(tid, &regs); err != nil {
		syscall.PtraceDetach(tid)
		return 0, 0, err
	}
	return regSP(&regs), regPC(&regs), nil
}

// Resume implements spec.md §4.E's Teardown step: detach every retained
// thread regardless of individual error, so one stuck detach never
// leaves the remaining threads stopped. A no-op if Suspend never
// succeeded.
func (e *Enumerator) Resume() error {
	if !e.suspended {
		return nil
	}
	var firstErr error
	for _, t := range e.threads {
		if err := syscall.PtraceDetach(int(t.ID)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.suspended = false
	return firstErr
}

// Close resumes any still-suspended threads. It is always safe to call,
// including when Suspend was never invoked, and must be deferred by
// every caller of New per the Enumerator doc comment.
func (e *Enumerator) Close() error {
	return e.Resume()
}
