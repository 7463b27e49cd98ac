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
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FieldType is the type tag of one fixed-area slot in a record.
type FieldType int

const (
	// Int is a 4-byte signed integer stored in place.
	Int FieldType = iota
	// Long is an 8-byte signed integer stored in place.
	Long
	// Double is an 8-byte IEEE-754 float stored in place.
	Double
	// String is a length-prefixed UTF-8 string; its fixed slot
	// holds a 4-byte offset (relative to the record start) into
	// the variable area.
	String
	// Map is a sorted key/value map; its fixed slot holds a 4-byte
	// offset (relative to the record start) into the variable area.
	Map
)

func (t FieldType) String() string {
	switch t {
	case Int:
		return "int"
	case Long:
		return "long"
	case Double:
		return "double"
	case String:
		return "string"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// width returns the number of bytes this field type occupies in the
// fixed area: 4 for Int and for the String/Map offset indirection, 8
// for Long and Double (stored in place, not indirected).
func (t FieldType) width() int {
	switch t {
	case Long, Double:
		return 8
	default:
		return 4
	}
}

// Field describes one column of a record.
type Field struct {
	Name string
	Type FieldType
}

// MaxPredefinedKeys is the largest number of predefined map keys a
// schema can declare; an index must fit in the 12 low bits of the
// 0xF000|idx tag.
const MaxPredefinedKeys = 4096

// Schema describes the fixed/variable field layout of records built
// and read through this package. A Schema is immutable once
// constructed with NewSchema.
type Schema struct {
	Fields []Field

	// FirstPartField is the index (inclusive) of the first field
	// that contributes to the record's rolling content hash when
	// written with AddString. Fields before this index are plain
	// data and do not affect the hash; this mirrors the "partition
	// key fields" convention of a shard-addressable record where
	// only the columns that determine the shard participate in the
	// identity hash.
	FirstPartField int

	// PredefinedKeys is the ordered list of map keys that encode as
	// a 2-byte 0xF000|idx tag instead of a length-prefixed string.
	PredefinedKeys []string

	fieldOffset []int // byte offset of each field's fixed slot, relative to the start of the fixed area
	fixedLen    int
	predefined  map[string]int
}

// NewSchema validates and builds a Schema. firstPartField must be a
// valid field index (or len(fields) if no field participates in the
// rolling hash). predefinedKeys must not exceed MaxPredefinedKeys and
// must not contain duplicates.
func NewSchema(fields []Field, firstPartField int, predefinedKeys []string) (*Schema, error) {
	if firstPartField < 0 || firstPartField > len(fields) {
		return nil, fmt.Errorf("binrec: firstPartField %d out of range [0,%d]", firstPartField, len(fields))
	}
	if len(predefinedKeys) > MaxPredefinedKeys {
		return nil, fmt.Errorf("binrec: %d predefined keys exceeds maximum of %d", len(predefinedKeys), MaxPredefinedKeys)
	}
	predefined := make(map[string]int, len(predefinedKeys))
	for i, k := range predefinedKeys {
		if len(k) >= maxMapKeyLen {
			return nil, fmt.Errorf("binrec: predefined key %q exceeds max map key length", k)
		}
		if _, dup := predefined[k]; dup {
			return nil, fmt.Errorf("binrec: duplicate predefined key %q", k)
		}
		predefined[k] = i
	}
	offsets := make([]int, len(fields))
	off := 0
	for i, f := range fields {
		offsets[i] = off
		off += f.Type.width()
	}
	return &Schema{
		Fields:          slices.Clone(fields),
		FirstPartField:  firstPartField,
		PredefinedKeys:  slices.Clone(predefinedKeys),
		fieldOffset:     offsets,
		fixedLen:        off,
		predefined:      predefined,
	}, nil
}

// FixedAreaLen returns the number of bytes occupied by the record's
// fixed area (the concatenation of every field's slot), not counting
// the 4-byte record-length word that precedes it.
func (s *Schema) FixedAreaLen() int { return s.fixedLen }

// predefinedIndex returns the tag index for key, if it is one of the
// schema's predefined keys.
func (s *Schema) predefinedIndex(key string) (int, bool) {
	i, ok := s.predefined[key]
	return i, ok
}

// Describe renders a deterministic, human-readable summary of the
// schema: one line per field, then the predefined key table. This
// mirrors the indent-based textual dumps used elsewhere in this
// module for debugging (see exec.ExecPlan.PrintTree).
func (s *Schema) Describe() string {
	var b strings.Builder
	for i, f := range s.Fields {
		marker := ""
		if i >= s.FirstPartField {
			marker = " (partition key)"
		}
		fmt.Fprintf(&b, "field[%d] %s %s offset=%d%s\n", i, f.Name, f.Type, s.fieldOffset[i], marker)
	}
	if len(s.PredefinedKeys) > 0 {
		b.WriteString("predefined keys:\n")
		keys := maps.Keys(s.predefined)
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  0x%04x %q\n", 0xF000|s.predefined[k], k)
		}
	}
	return b.String()
}
