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

package logical

import "fmt"

// RangeSelector picks which chunks of a partition a RawSeries scan
// should consider. The planner stores it directly as a
// SelectRawPartitionsExec's RowKeyRange without inspecting it; the
// unexported isRangeSelector method closes the variant set, so no
// package outside logical can add a variant.
type RangeSelector interface {
	isRangeSelector()
	String() string
}

// IntervalSelector restricts a scan to chunks overlapping [From, To].
type IntervalSelector struct {
	From, To int64
}

func (IntervalSelector) isRangeSelector() {}

func (s IntervalSelector) String() string {
	return fmt.Sprintf("IntervalSelector(%d, %d)", s.From, s.To)
}

// AllChunksSelector selects every persisted chunk of a partition.
type AllChunksSelector struct{}

func (AllChunksSelector) isRangeSelector() {}
func (AllChunksSelector) String() string   { return "AllChunks" }

// EncodedChunksSelector selects only already-encoded (cold) chunks.
type EncodedChunksSelector struct{}

func (EncodedChunksSelector) isRangeSelector() {}
func (EncodedChunksSelector) String() string   { return "EncodedChunks" }

// WriteBuffersSelector selects only the in-memory write buffer, not
// yet flushed to a persisted chunk.
type WriteBuffersSelector struct{}

func (WriteBuffersSelector) isRangeSelector() {}
func (WriteBuffersSelector) String() string   { return "WriteBuffers" }
