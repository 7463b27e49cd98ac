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

package binrec

import (
	"encoding/binary"
	"fmt"
)

// Container is a contiguous, arena-backed region holding an 8-byte
// header followed by a stream of 4-byte-aligned records. See §3.3 of
// the design for the exact layout.
type Container struct {
	buf []byte

	// release, if non-nil, returns buf to its owning factory. It is
	// set only for off-heap containers (see MmapFactory) and is a
	// no-op for on-heap ones, which rely on ordinary GC.
	release func()
}

func newOnHeapContainer(size int) *Container {
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(containerVersion))
	return &Container{buf: buf}
}

// length returns the container header's length field: the number of
// record-stream bytes written so far, excluding the header.
func (c *Container) length() int {
	return int(binary.LittleEndian.Uint32(c.buf[0:4]))
}

// setLength atomically (with respect to the byte ordering visible to
// a concurrent reader of Array()) updates the container header's
// length field. It is only ever called once a record has been fully
// written, per the container header coherence invariant.
func (c *Container) setLength(n int) {
	binary.LittleEndian.PutUint32(c.buf[0:4], uint32(n))
}

// Version returns the container format version word.
func (c *Container) Version() uint32 {
	return binary.LittleEndian.Uint32(c.buf[4:8])
}

// Size returns the total capacity of the container, including the
// 8-byte header.
func (c *Container) Size() int { return len(c.buf) }

// Array returns the entire underlying buffer, header included,
// whether or not every byte past the header's length field has been
// written. Safe for a concurrent reader as long as it only trusts
// bytes up to Array()[:8+length].
func (c *Container) Array() []byte { return c.buf }

// TrimmedArray returns only the header plus the bytes that have
// actually been written (per the header's length field), with no
// trailing garbage from a not-yet-written tail region.
func (c *Container) TrimmedArray() []byte {
	n := containerHeaderLen + c.length()
	if n > len(c.buf) {
		n = len(c.buf)
	}
	return c.buf[:n:n]
}

// Release returns the container's memory to its owning factory, if
// the factory requires explicit release (e.g. MmapFactory). It is a
// no-op for on-heap containers. Release must only be called once the
// builder has dropped all references to the container, e.g. via
// Builder.OptimalContainerBytes(reset=true).
func (c *Container) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

// MemoryFactory allocates the containers a Builder writes into. An
// on-heap factory (HeapFactory) has ordinary garbage-collected
// semantics; an off-heap factory (MmapFactory) requires the caller to
// call Container.Release once it is done with the memory.
type MemoryFactory interface {
	// Allocate returns a fresh, zeroed container of at least size
	// bytes, with the container header already initialized.
	Allocate(size int) (*Container, error)

	// OffHeap reports whether containers from this factory require
	// an explicit Release call. Builder.OptimalContainerBytes does
	// not consult it: it returns snapshots of off-heap containers
	// too, and releasing them is left to the caller.
	OffHeap() bool
}

// HeapFactory allocates ordinary Go-heap-backed containers. It is the
// default factory and is safe for concurrent use by multiple
// Builders (each Allocate call is independent).
type HeapFactory struct{}

// Allocate implements MemoryFactory.
func (HeapFactory) Allocate(size int) (*Container, error) {
	if size < MinContainerSize {
		return nil, fmt.Errorf("binrec: container size %d below minimum of %d", size, MinContainerSize)
	}
	return newOnHeapContainer(size), nil
}

// OffHeap implements MemoryFactory.
func (HeapFactory) OffHeap() bool { return false }
