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

// Package queryerr defines the error taxonomy shared by the planner,
// shard resolver, dispatcher binder and record builder.
//
// Errors are small typed structs rather than sentinel values so that
// callers can recover structured context (the offending column, shard,
// etc.) with errors.As while still matching broad categories with
// errors.Is: each type's Is method matches any value of the same type,
// so a zero value such as &BadQuery{} serves as the target.
package queryerr

import "fmt"

// BadQuery is raised by the planner and shard resolver when a logical
// plan cannot be translated into a valid physical plan: a shard-key
// column is missing its equality filter, the shard map resolves no
// shards, the plan holds an unsupported node, or no shard-key columns
// and no override are present.
type BadQuery struct {
	Reason string
}

func (e *BadQuery) Error() string { return "bad query: " + e.Reason }

func (e *BadQuery) Is(target error) bool {
	_, ok := target.(*BadQuery)
	return ok
}

// NewBadQuery constructs a BadQuery with a formatted reason.
func NewBadQuery(format string, args ...interface{}) *BadQuery {
	return &BadQuery{Reason: fmt.Sprintf(format, args...)}
}

// ShardsUnavailable is raised by the dispatcher binder when a shard
// the planner needs to address has no assigned coordinator. The
// caller may retry after the shard map refreshes.
type ShardsUnavailable struct {
	Shards []int
}

func (e *ShardsUnavailable) Error() string {
	return fmt.Sprintf("shards unavailable: %v", e.Shards)
}

func (e *ShardsUnavailable) Is(target error) bool {
	_, ok := target.(*ShardsUnavailable)
	return ok
}

// RecordTooLarge is raised by the record builder when a single record
// cannot be made to fit inside one container, regardless of the
// overflow protocol. The caller must split the record across more
// than one logical row.
type RecordTooLarge struct {
	ContainerSize int
	RecordBytes   int
}

func (e *RecordTooLarge) Error() string {
	return fmt.Sprintf("record of %d bytes does not fit in a %d byte container",
		e.RecordBytes, e.ContainerSize)
}

func (e *RecordTooLarge) Is(target error) bool {
	_, ok := target.(*RecordTooLarge)
	return ok
}

// FieldTooLarge is raised by the record builder when a String field,
// map key, or map value is too long for the wire format: strings and
// map values must be shorter than 65536 bytes (16-bit length prefix),
// map keys shorter than 0xF000 bytes. Max is the longest length
// allowed.
type FieldTooLarge struct {
	Kind string // "string", "map key", or "map value"
	Len  int
	Max  int
}

func (e *FieldTooLarge) Error() string {
	return fmt.Sprintf("%s of %d bytes exceeds maximum of %d bytes", e.Kind, e.Len, e.Max)
}

func (e *FieldTooLarge) Is(target error) bool {
	_, ok := target.(*FieldTooLarge)
	return ok
}

// FieldOrderViolation is a programming error raised by the record
// builder when operations are called out of the sequence the state
// machine requires (e.g. addInt before startNewRecord, endMap without
// a matching startMap). It is a debug assertion, not a runtime
// condition callers are expected to recover from.
type FieldOrderViolation struct {
	Reason string
}

func (e *FieldOrderViolation) Error() string { return "field order violation: " + e.Reason }

func (e *FieldOrderViolation) Is(target error) bool {
	_, ok := target.(*FieldOrderViolation)
	return ok
}

// NewFieldOrderViolation constructs a FieldOrderViolation with a
// formatted reason.
func NewFieldOrderViolation(format string, args ...interface{}) *FieldOrderViolation {
	return &FieldOrderViolation{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedColumnType is a programming error raised by the record
// builder when an Add* or StartMap call writes a type other than the
// one the schema declares for the current field. Value holds the
// field type the call tried to write.
type UnsupportedColumnType struct {
	Field string
	Value interface{}
}

func (e *UnsupportedColumnType) Error() string {
	return fmt.Sprintf("unsupported column type for field %q: %T", e.Field, e.Value)
}

func (e *UnsupportedColumnType) Is(target error) bool {
	_, ok := target.(*UnsupportedColumnType)
	return ok
}
