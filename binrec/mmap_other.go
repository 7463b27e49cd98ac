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

//go:build !linux

package binrec

import "fmt"

// MmapFactory is only implemented on linux. On other platforms the
// default HeapFactory should be used instead.
type MmapFactory struct{}

// Allocate implements MemoryFactory.
func (f *MmapFactory) Allocate(size int) (*Container, error) {
	return nil, fmt.Errorf("binrec: MmapFactory is not supported on this platform")
}

// OffHeap implements MemoryFactory.
func (f *MmapFactory) OffHeap() bool { return true }
