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

// Package logical defines the immutable, tagged-variant tree that
// describes a query before it has been bound to any shard or
// dispatcher. The planner package is the sole consumer that walks
// this tree; nothing in this package performs I/O or mutation.
package logical

import "fmt"

// Filter constrains the values a column may take. The planner's shard
// resolver only understands Equals(string); any other filter applied
// to a shard-key column is a planning error.
type Filter interface {
	isFilter()
	String() string
}

// Equals matches a column against a single literal value. IsString is
// true when Value holds a string literal — the only case the shard
// resolver can use for routing.
type Equals struct {
	Value    interface{}
	IsString bool
}

func (Equals) isFilter() {}

func (e Equals) String() string {
	return fmt.Sprintf("= %v", e.Value)
}

// EqualsString constructs a string-literal equality filter, the only
// variant shard-key columns may use.
func EqualsString(s string) Equals {
	return Equals{Value: s, IsString: true}
}

// NotEquals matches every value except Value.
type NotEquals struct {
	Value interface{}
}

func (NotEquals) isFilter() {}

func (n NotEquals) String() string { return fmt.Sprintf("!= %v", n.Value) }

// In matches any of several values.
type In struct {
	Values []interface{}
}

func (In) isFilter() {}

func (in In) String() string { return fmt.Sprintf("in %v", in.Values) }

// ColumnFilter pairs a column name with the filter applied to it.
type ColumnFilter struct {
	Column string
	Filter Filter
}

func (c ColumnFilter) String() string {
	return fmt.Sprintf("%s %s", c.Column, c.Filter)
}

// EqualsStringValue reports whether c's filter is a string-literal
// equality filter, returning the literal value if so.
func (c ColumnFilter) EqualsStringValue() (string, bool) {
	eq, ok := c.Filter.(Equals)
	if !ok || !eq.IsString {
		return "", false
	}
	s, ok := eq.Value.(string)
	return s, ok
}
