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
	"math"
)

// Reader decodes records written by a Builder sharing the same
// Schema. A Reader holds no mutable state of its own and is safe to
// use from multiple goroutines simultaneously (each Record it
// produces references the caller-provided backing slice, not a
// reader-owned buffer).
type Reader struct {
	schema *Schema
}

// NewReader constructs a Reader for the given schema.
func NewReader(schema *Schema) *Reader {
	return &Reader{schema: schema}
}

// Record is a decoded view over one record's bytes. It is valid only
// as long as the backing byte slice is not mutated or reused.
type Record struct {
	schema *Schema
	buf    []byte // the record's bytes, starting at its length word
	length int    // L, the record length field (bytes after the length word)
}

// ContainerVersion returns the container format version word found in
// the header of buf, without otherwise validating buf.
func ContainerVersion(buf []byte) (uint32, error) {
	if len(buf) < containerHeaderLen {
		return 0, fmt.Errorf("binrec: container too short for header")
	}
	return binary.LittleEndian.Uint32(buf[4:8]), nil
}

// Records walks every complete record in a container's bytes (as
// returned by Container.TrimmedArray or Container.Array), calling fn
// once per record in write order. Records stops and returns fn's
// error if fn returns one.
func (r *Reader) Records(container []byte, fn func(Record) error) error {
	if len(container) < containerHeaderLen {
		return fmt.Errorf("binrec: container too short for header")
	}
	version, err := ContainerVersion(container)
	if err != nil {
		return err
	}
	if version != containerVersion {
		return fmt.Errorf("binrec: unsupported container version %d", version)
	}
	length := int(binary.LittleEndian.Uint32(container[0:4]))
	end := containerHeaderLen + length
	if end > len(container) {
		end = len(container)
	}
	off := containerHeaderLen
	for off+4 <= end {
		recLen := int(binary.LittleEndian.Uint32(container[off:]))
		total := 4 + recLen
		if off+total > end {
			break // a partially written record at the tail; stop cleanly
		}
		rec := Record{schema: r.schema, buf: container[off : off+total], length: recLen}
		if err := fn(rec); err != nil {
			return err
		}
		off += total
	}
	return nil
}

// fieldSlot returns the fixed-area bytes for field i.
func (rec Record) fieldSlot(i int) []byte {
	off := 4 + rec.schema.fieldOffset[i]
	return rec.buf[off:]
}

// GetInt decodes field i as a 4-byte signed integer.
func (rec Record) GetInt(i int) (int32, error) {
	if err := rec.checkType(i, Int); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(rec.fieldSlot(i))), nil
}

// GetLong decodes field i as an 8-byte signed integer.
func (rec Record) GetLong(i int) (int64, error) {
	if err := rec.checkType(i, Long); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(rec.fieldSlot(i))), nil
}

// GetDouble decodes field i as an 8-byte IEEE-754 float.
func (rec Record) GetDouble(i int) (float64, error) {
	if err := rec.checkType(i, Double); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(rec.fieldSlot(i))), nil
}

// GetString decodes field i as a length-prefixed UTF-8 string.
func (rec Record) GetString(i int) ([]byte, error) {
	if err := rec.checkType(i, String); err != nil {
		return nil, err
	}
	relOff := int(binary.LittleEndian.Uint32(rec.fieldSlot(i)))
	strLen := int(binary.LittleEndian.Uint16(rec.buf[relOff:]))
	return rec.buf[relOff+2 : relOff+2+strLen], nil
}

// MapEntry is one decoded key/value pair from a map field.
type MapEntry struct {
	Key, Value string
}

// GetMap decodes field i as an ordered list of key/value pairs, in
// the ascending order the wire format guarantees.
func (rec Record) GetMap(i int) ([]MapEntry, error) {
	if err := rec.checkType(i, Map); err != nil {
		return nil, err
	}
	relOff := int(binary.LittleEndian.Uint32(rec.fieldSlot(i)))
	mapLen := int(binary.LittleEndian.Uint32(rec.buf[relOff:]))
	body := rec.buf[relOff+4 : relOff+4+mapLen]
	var out []MapEntry
	for len(body) > 0 {
		tag := binary.LittleEndian.Uint16(body)
		body = body[2:]
		var key string
		if tag&0xF000 == predefinedTagPrefix {
			idx := int(tag &^ predefinedTagPrefix)
			if idx >= len(rec.schema.PredefinedKeys) {
				return nil, fmt.Errorf("binrec: predefined key index %d out of range", idx)
			}
			key = rec.schema.PredefinedKeys[idx]
		} else {
			klen := int(tag)
			key = string(body[:klen])
			body = body[klen:]
		}
		vlen := int(binary.LittleEndian.Uint16(body))
		body = body[2:]
		value := string(body[:vlen])
		body = body[vlen:]
		out = append(out, MapEntry{Key: key, Value: value})
	}
	return out, nil
}

// Hash returns the record's finalized rolling content hash, stored in
// the final 4 bytes of the record.
func (rec Record) Hash() int32 {
	n := len(rec.buf)
	return int32(binary.LittleEndian.Uint32(rec.buf[n-4:]))
}

func (rec Record) checkType(i int, want FieldType) error {
	if i < 0 || i >= len(rec.schema.Fields) {
		return fmt.Errorf("binrec: field index %d out of range", i)
	}
	if rec.schema.Fields[i].Type != want {
		return fmt.Errorf("binrec: field %d is %s, not %s", i, rec.schema.Fields[i].Type, want)
	}
	return nil
}
