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

// Package planner turns a logical.Plan into an exec.ExecPlan bound to
// concrete shards and dispatchers.
package planner

import "github.com/chronodb/qplan/shard"

// QueryOptions carries the per-call knobs Materialize needs beyond the
// logical plan itself.
type QueryOptions struct {
	// Dataset names the dataset RawSeries leaves scan.
	Dataset string

	// ShardKeyColumns is the dataset's configured shard-key column
	// list; empty means the dataset is unsharded and ShardOverrides
	// must be supplied instead.
	ShardKeyColumns []string

	// ShardKeySpread is log2 of the number of shard buckets one
	// query may fan out to; 0 means exactly one bucket.
	ShardKeySpread int

	// ShardOverrides, if non-empty, replaces hash-based shard
	// resolution: the resolver returns these shards sorted ascending.
	// It is consulted only when ShardKeyColumns is empty.
	ShardOverrides []int

	// ItemLimit bounds how many range vector samples a leaf scan may
	// produce; zero means unbounded. Materialize does not enforce this
	// itself — it is consumed remote-side, by the coordinator that
	// executes a SelectRawPartitionsExec, not by any node built here.
	ItemLimit int

	// Shards is the shard map consulted for shard resolution and
	// dispatcher binding.
	Shards shard.ShardMap
}
