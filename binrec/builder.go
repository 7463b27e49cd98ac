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
	"math"

	"github.com/chronodb/qplan/queryerr"
)

// Builder is an arena-backed, append-only encoder for records
// conforming to a single Schema. A Builder is not thread-safe: it is
// owned by exactly one producer goroutine for its entire lifetime.
// Running with the race detector will catch concurrent misuse because
// every exported method touches unsynchronized fields; production
// builds do not pay for a lock that single-producer code never needs.
type Builder struct {
	schema  *Schema
	factory MemoryFactory
	csize   int // container size used for new allocations

	containers []*Container
	cur        *Container

	inRecord        bool
	curRecordOffset int // absolute offset in cur.buf where the current record's length word starts
	curRecEndOffset int // absolute offset in cur.buf of the next unwritten byte
	fieldNo         int
	mapOffset       int // absolute offset of the open map's length prefix, or -1
	recHash         int32
}

// NewBuilder constructs a Builder that allocates containers of size
// bytes (at least MinContainerSize) from factory as needed.
func NewBuilder(schema *Schema, factory MemoryFactory, containerSize int) (*Builder, error) {
	if containerSize < MinContainerSize {
		containerSize = MinContainerSize
	}
	b := &Builder{
		schema:    schema,
		factory:   factory,
		csize:     containerSize,
		mapOffset: -1,
	}
	return b, nil
}

func (b *Builder) allocateContainer(size int) error {
	if size < b.csize {
		size = b.csize
	}
	c, err := b.factory.Allocate(size)
	if err != nil {
		return err
	}
	b.containers = append(b.containers, c)
	b.cur = c
	return nil
}

// AllContainers returns every container this builder has written to,
// oldest first, including the current (possibly partially filled)
// one.
func (b *Builder) AllContainers() []*Container {
	out := make([]*Container, len(b.containers))
	copy(out, b.containers)
	return out
}

// CurrentContainer returns the container the builder is currently
// writing into, or nil if no container has been allocated yet.
func (b *Builder) CurrentContainer() *Container {
	return b.cur
}

// OptimalContainerBytes returns the trimmed bytes of every full
// (non-current) container plus the trimmed bytes of the current one,
// in order. If reset is true, the builder drops its ownership of all
// containers (the caller becomes responsible for releasing any
// off-heap ones) and is left ready to allocate fresh containers on
// the next StartNewRecord.
func (b *Builder) OptimalContainerBytes(reset bool) [][]byte {
	out := make([][]byte, len(b.containers))
	for i, c := range b.containers {
		out[i] = c.TrimmedArray()
	}
	if reset {
		b.containers = nil
		b.cur = nil
		b.inRecord = false
		b.mapOffset = -1
	}
	return out
}

// StartNewRecord begins a new record. It fails with
// FieldOrderViolation if a previous record was started but not ended.
func (b *Builder) StartNewRecord() error {
	if b.inRecord {
		return queryerr.NewFieldOrderViolation("StartNewRecord called before previous record was ended")
	}
	fixedLen := b.schema.FixedAreaLen()
	need := 4 + fixedLen // length word + fixed area
	if b.cur == nil {
		if err := b.allocateContainer(b.csize); err != nil {
			return err
		}
	}
	start := containerHeaderLen + b.cur.length()
	if start+need > len(b.cur.buf) {
		if containerHeaderLen+need > b.csize {
			return &queryerr.RecordTooLarge{ContainerSize: b.csize, RecordBytes: need}
		}
		if err := b.allocateContainer(b.csize); err != nil {
			return err
		}
		start = containerHeaderLen + b.cur.length()
	}
	for i := start; i < start+need; i++ {
		b.cur.buf[i] = 0
	}
	b.curRecordOffset = start
	b.curRecEndOffset = start + need
	b.fieldNo = 0
	b.mapOffset = -1
	b.recHash = initialRecordHash
	b.inRecord = true
	return nil
}

// ensureField checks that a field of type t may be written at the
// current field cursor, advancing fieldNo on success.
func (b *Builder) ensureField(t FieldType) error {
	if !b.inRecord {
		return queryerr.NewFieldOrderViolation("add* called outside of a record")
	}
	if b.mapOffset != -1 {
		return queryerr.NewFieldOrderViolation("add* called while a map field is open")
	}
	if b.fieldNo < 0 || b.fieldNo >= len(b.schema.Fields) {
		return queryerr.NewFieldOrderViolation("field index out of range")
	}
	if b.schema.Fields[b.fieldNo].Type != t {
		return &queryerr.UnsupportedColumnType{Field: b.schema.Fields[b.fieldNo].Name, Value: t}
	}
	return nil
}

func (b *Builder) fixedSlot() int {
	return b.curRecordOffset + 4 + b.schema.fieldOffset[b.fieldNo]
}

// AddInt writes a 4-byte signed integer into the current field.
func (b *Builder) AddInt(i int32) error {
	if err := b.ensureField(Int); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.cur.buf[b.fixedSlot():], uint32(i))
	b.fieldNo++
	return nil
}

// AddLong writes an 8-byte signed integer into the current field.
func (b *Builder) AddLong(l int64) error {
	if err := b.ensureField(Long); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.cur.buf[b.fixedSlot():], uint64(l))
	b.fieldNo++
	return nil
}

// AddDouble writes an 8-byte IEEE-754 float into the current field.
func (b *Builder) AddDouble(d float64) error {
	if err := b.ensureField(Double); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.cur.buf[b.fixedSlot():], math.Float64bits(d))
	b.fieldNo++
	return nil
}

// maybeGrow ensures at least n more bytes are writable at
// curRecEndOffset, running the container overflow protocol if not:
// a fresh container is allocated, the partially written record is
// copied to the start of its record area, and every tracked offset is
// shifted by the same delta. The old container is retained; records
// already completed in it remain valid and addressable. If the record
// would not fit in an empty container of the builder's size, it
// returns RecordTooLarge without allocating.
func (b *Builder) maybeGrow(n int) error {
	if b.curRecEndOffset+n <= len(b.cur.buf) {
		return nil
	}
	recBytesSoFar := b.curRecEndOffset - b.curRecordOffset
	needed := recBytesSoFar + n
	if containerHeaderLen+needed > b.csize {
		return &queryerr.RecordTooLarge{ContainerSize: b.csize, RecordBytes: needed}
	}
	old := b.cur
	if err := b.allocateContainer(b.csize); err != nil {
		return err
	}
	newStart := containerHeaderLen
	copy(b.cur.buf[newStart:newStart+recBytesSoFar], old.buf[b.curRecordOffset:b.curRecEndOffset])
	delta := newStart - b.curRecordOffset
	if b.mapOffset != -1 {
		b.mapOffset += delta
	}
	b.curRecordOffset += delta
	b.curRecEndOffset += delta
	return nil
}

// AddString writes a length-prefixed UTF-8 string into the current
// field, storing a relative offset into the variable area at the
// field's fixed slot. If the field index is at or past the schema's
// FirstPartField, the string's hash folds into the record's rolling
// content hash.
func (b *Builder) AddString(s []byte) error {
	if err := b.ensureField(String); err != nil {
		return err
	}
	if len(s) >= maxStringLen {
		return &queryerr.FieldTooLarge{Kind: "string", Len: len(s), Max: maxStringLen - 1}
	}
	fieldNo := b.fieldNo
	if err := b.maybeGrow(2 + len(s)); err != nil {
		return err
	}
	varOff := b.curRecEndOffset
	binary.LittleEndian.PutUint16(b.cur.buf[varOff:], uint16(len(s)))
	copy(b.cur.buf[varOff+2:], s)
	b.curRecEndOffset = varOff + 2 + len(s)

	relOffset := varOff - b.curRecordOffset
	slot := b.curRecordOffset + 4 + b.schema.fieldOffset[fieldNo]
	binary.LittleEndian.PutUint32(b.cur.buf[slot:], uint32(relOffset))

	if fieldNo >= b.schema.FirstPartField {
		b.recHash = 31*b.recHash + hash32(s)
	}
	b.fieldNo++
	return nil
}

// StartMap begins a map field. Entries must be appended with
// AddMapKeyValue (or folded in bulk with AddSortedPairsAsMap) and the
// field closed with EndMap before the next field can be written.
func (b *Builder) StartMap() error {
	if err := b.ensureField(Map); err != nil {
		return err
	}
	if err := b.maybeGrow(4); err != nil {
		return err
	}
	varOff := b.curRecEndOffset
	binary.LittleEndian.PutUint32(b.cur.buf[varOff:], 0)
	b.curRecEndOffset = varOff + 4

	relOffset := varOff - b.curRecordOffset
	slot := b.curRecordOffset + 4 + b.schema.fieldOffset[b.fieldNo]
	binary.LittleEndian.PutUint32(b.cur.buf[slot:], uint32(relOffset))

	b.mapOffset = varOff
	return nil
}

// AddMapKeyValue appends one key/value pair to the currently open
// map, in the order given (no reordering is performed here; the
// caller is responsible for presenting keys in ascending order, as
// required by AddSortedPairsAsMap). Keys that match one of the
// schema's predefined keys encode as a 2-byte tag; others encode as a
// 2-byte-length-prefixed UTF-8 string.
func (b *Builder) AddMapKeyValue(key, value string) error {
	if !b.inRecord || b.mapOffset == -1 {
		return queryerr.NewFieldOrderViolation("AddMapKeyValue called with no open map")
	}
	if len(key) >= maxMapKeyLen {
		return &queryerr.FieldTooLarge{Kind: "map key", Len: len(key), Max: maxMapKeyLen - 1}
	}
	if len(value) >= maxMapValueLen {
		return &queryerr.FieldTooLarge{Kind: "map value", Len: len(value), Max: maxMapValueLen - 1}
	}
	keyBytes := []byte(key)
	valBytes := []byte(value)

	var keyEncodedLen int
	if idx, ok := b.schema.predefinedIndex(key); ok {
		keyEncodedLen = 2
		if err := b.maybeGrow(keyEncodedLen); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b.cur.buf[b.curRecEndOffset:], uint16(predefinedTagPrefix|idx))
		b.curRecEndOffset += 2
	} else {
		keyEncodedLen = 2 + len(keyBytes)
		if err := b.maybeGrow(keyEncodedLen); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b.cur.buf[b.curRecEndOffset:], uint16(len(keyBytes)))
		copy(b.cur.buf[b.curRecEndOffset+2:], keyBytes)
		b.curRecEndOffset += keyEncodedLen
	}

	if err := b.maybeGrow(2 + len(valBytes)); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.cur.buf[b.curRecEndOffset:], uint16(len(valBytes)))
	copy(b.cur.buf[b.curRecEndOffset+2:], valBytes)
	b.curRecEndOffset += 2 + len(valBytes)

	mapLen := b.curRecEndOffset - (b.mapOffset + 4)
	binary.LittleEndian.PutUint32(b.cur.buf[b.mapOffset:], uint32(mapLen))
	return nil
}

// EndMap closes the currently open map field.
func (b *Builder) EndMap() error {
	if !b.inRecord || b.mapOffset == -1 {
		return queryerr.NewFieldOrderViolation("EndMap called with no open map")
	}
	b.mapOffset = -1
	b.fieldNo++
	return nil
}

// AddSortedPairsAsMap is a convenience wrapper that opens the current
// map field, appends every pair in the given order, folds each
// corresponding hash into the record's rolling hash, and closes the
// field. pairs must already be sorted by key; passing unsorted pairs
// produces a record whose map field violates the ascending-key-order
// invariant readers rely on.
func (b *Builder) AddSortedPairsAsMap(pairs []KV, hashes []int32) error {
	if len(pairs) != len(hashes) {
		return queryerr.NewFieldOrderViolation("AddSortedPairsAsMap: %d pairs but %d hashes", len(pairs), len(hashes))
	}
	if err := b.StartMap(); err != nil {
		return err
	}
	for i := range pairs {
		if err := b.AddMapKeyValue(pairs[i].Key, pairs[i].Value); err != nil {
			return err
		}
		b.recHash = CombineHash(b.recHash, hashes[i])
	}
	return b.EndMap()
}

// EndRecord finalizes the current record: pads the variable area to a
// 4-byte boundary, writes the rolling hash (if writeHash is true) into
// the trailing aligned word so it always occupies the record's last
// 4 bytes, writes the record-length word, and atomically updates the
// container header's length field so a concurrent reader observes
// either this record or none of it. It returns the absolute offset
// (within the current container's TrimmedArray) at which the record
// starts.
func (b *Builder) EndRecord(writeHash bool) (int, error) {
	if !b.inRecord {
		return 0, queryerr.NewFieldOrderViolation("EndRecord called with no record in progress")
	}
	if b.mapOffset != -1 {
		return 0, queryerr.NewFieldOrderViolation("EndRecord called with an open map field")
	}
	for (b.curRecEndOffset-b.curRecordOffset)%4 != 0 {
		if err := b.maybeGrow(1); err != nil {
			return 0, err
		}
		b.cur.buf[b.curRecEndOffset] = 0
		b.curRecEndOffset++
	}
	if writeHash {
		if err := b.maybeGrow(4); err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint32(b.cur.buf[b.curRecEndOffset:], uint32(b.recHash))
		b.curRecEndOffset += 4
	}
	recLen := b.curRecEndOffset - b.curRecordOffset - 4
	binary.LittleEndian.PutUint32(b.cur.buf[b.curRecordOffset:], uint32(recLen))
	b.cur.setLength(b.curRecEndOffset - containerHeaderLen)

	start := b.curRecordOffset
	b.inRecord = false
	return start, nil
}

// Hash returns the rolling content hash accumulated so far for the
// record currently being built. It is only meaningful while a record
// is in progress; after EndRecord the finalized value has already
// been written into the record bytes.
func (b *Builder) Hash() int32 { return b.recHash }
