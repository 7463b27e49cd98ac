// Copyright (C) 2026 ChronoDB, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

package binrec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapFactory allocates containers backed by anonymous mmap regions
// rather than the Go heap. Containers it hands out must be released
// with Container.Release (or Builder.OptimalContainerBytes(reset)
// followed by a manual unmap loop); the garbage collector does not
// know about this memory.
type MmapFactory struct {
	mu sync.Mutex
}

// Allocate implements MemoryFactory.
func (f *MmapFactory) Allocate(size int) (*Container, error) {
	if size < MinContainerSize {
		return nil, fmt.Errorf("binrec: container size %d below minimum of %d", size, MinContainerSize)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("binrec: mmap %d bytes: %w", size, err)
	}
	binary.LittleEndian.PutUint32(buf[4:8], uint32(containerVersion))
	c := &Container{buf: buf}
	c.release = func() {
		unix.Munmap(buf)
	}
	return c, nil
}

// OffHeap implements MemoryFactory.
func (f *MmapFactory) OffHeap() bool { return true }
