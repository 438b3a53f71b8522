// Package arena acquires the byte range that stands in for "physical
// memory" in spec.md §6 — the `end` symbol and the `PHYSTOP` bound the
// buddy core takes as given. Generalized from the teacher's
// btree/disk.go, which mmaps a file to back on-disk pages in multiples of
// BTREE_PAGE_SIZE; here there is no backing file, so the mapping is
// anonymous, but the page-multiple sizing discipline is the same.
package arena

import (
	"fmt"
	"syscall"
	"unsafe"

	"govetachun/kbuddy/pkg/kutil"
)

// Arena is a process-private byte range, page-aligned and sized in whole
// pages, obtained via an anonymous mmap. It never grows or moves once
// acquired: node identity and memory addresses in the buddy tree are fixed
// at Init time (spec.md §3.2), so the backing bytes must be equally fixed.
type Arena struct {
	bytes    []byte
	pageSize uintptr
}

// Acquire maps a fresh, zeroed, anonymous region of pages*pageSize bytes.
// It plays the role of boot-time arena discovery (spec.md §1's "boot-time
// discovery of the physical arena base and end", explicitly out of the
// core's own scope) for a userspace stand-in kernel.
func Acquire(pages int, pageSize uintptr) (*Arena, error) {
	kutil.Assert(pages > 0, "arena: pages must be positive")
	size := pages * int(pageSize)
	b, err := syscall.Mmap(-1, 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", size, err)
	}
	return &Arena{bytes: b, pageSize: pageSize}, nil
}

// Release unmaps the arena. Safe to call once; the Arena must not be used
// afterwards.
func (a *Arena) Release() error {
	if a.bytes == nil {
		return nil
	}
	err := syscall.Munmap(a.bytes)
	a.bytes = nil
	return err
}

// Base returns the arena's first byte address — the `end` input to
// buddy.Allocator.Init (already page-aligned, since the mapping itself is
// page-sized and page-allocated by the kernel).
func (a *Arena) Base() uintptr {
	return uintptr(unsafe.Pointer(&a.bytes[0]))
}

// PhysTop returns the arena's exclusive upper bound — the `PHYSTOP` input
// to buddy.Allocator.Init, used only for Free's address validation.
func (a *Arena) PhysTop() uintptr {
	return a.Base() + uintptr(len(a.bytes))
}
