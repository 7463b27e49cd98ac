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

// Package shard binds a logical query's shard-key filters to the set
// of shards that can answer it and the coordinator that owns each
// shard, and implements exec.PlanDispatcher on top of that binding.
package shard

import (
	"fmt"
	"sort"

	"github.com/chronodb/qplan/binrec"
	"github.com/chronodb/qplan/logical"
	"github.com/chronodb/qplan/queryerr"
)

// CoordinatorEndpoint names a coordinator process that owns a subset
// of the dataset's shards.
type CoordinatorEndpoint struct {
	Addr string
}

func (c CoordinatorEndpoint) String() string { return c.Addr }

// ShardMap is the gossip-layer view the planner consults to bind a
// shard-key hash to physical shards and to find the coordinator that
// owns a shard. This is the external, consumed interface: the gossip
// protocol that keeps it current is out of scope here.
type ShardMap interface {
	// QueryShards returns the shards whose key bucket the hash falls
	// into, fanning out to 2^spread adjacent buckets.
	QueryShards(shardHash int32, spread int) ([]int, error)

	// CoordForShard returns the coordinator that owns shard, or
	// (_, false) if shard is unassigned.
	CoordForShard(shard int) (CoordinatorEndpoint, bool)
}

// StaticShardMap is an in-memory ShardMap that buckets a shard-key
// hash by its low bits, suitable for tests and small deployments that
// load their topology from a config file.
type StaticShardMap struct {
	// Shards is the total number of shard buckets; must be a power
	// of two so that a spread in bits maps onto a contiguous range.
	Shards int
	// Coordinators maps shard number to owning coordinator.
	Coordinators map[int]CoordinatorEndpoint
}

// NewStaticShardMap builds a StaticShardMap with shards buckets and
// the given shard->coordinator assignment.
func NewStaticShardMap(shards int, coordinators map[int]CoordinatorEndpoint) *StaticShardMap {
	return &StaticShardMap{Shards: shards, Coordinators: coordinators}
}

func (m *StaticShardMap) CoordForShard(shard int) (CoordinatorEndpoint, bool) {
	c, ok := m.Coordinators[shard]
	return c, ok
}

// QueryShards buckets shardHash into one of m.Shards buckets by its
// low bits, then returns that bucket plus the 2^spread-1 buckets
// following it (wrapping around), so a larger spread widens the fan
// out to a contiguous run of adjacent shards rather than a single
// one.
func (m *StaticShardMap) QueryShards(shardHash int32, spread int) ([]int, error) {
	if m.Shards <= 0 {
		return nil, queryerr.NewBadQuery("shard map has no shards configured")
	}
	base := int(uint32(shardHash)) % m.Shards
	count := 1 << spread
	if count > m.Shards {
		count = m.Shards
	}
	out := make([]int, count)
	for i := range out {
		out[i] = (base + i) % m.Shards
	}
	return out, nil
}

// Resolver turns a logical plan's filters into the concrete set of
// shards a RawSeries scan must run against, per §4.2: filters on the
// dataset's configured shard-key columns are hashed and handed to the
// shard map; if the dataset has no shard-key columns, a caller
// supplied override list is used verbatim instead.
type Resolver struct {
	// ShardKeyColumns is the dataset's configured shard-key column
	// list, in the order ShardKeyHash expects to see them paired
	// with their filter values. Empty means the dataset is unsharded
	// and every query must supply ShardOverrides.
	ShardKeyColumns []string
	Shards          ShardMap
}

// ShardsFromFilters resolves filters (plus the caller's requested
// spread and any override) to a sorted list of shard numbers.
func (r *Resolver) ShardsFromFilters(filters []logical.ColumnFilter, spread int, overrides []int) ([]int, error) {
	if len(r.ShardKeyColumns) == 0 {
		if len(overrides) == 0 {
			return nil, queryerr.NewBadQuery("dataset has no shard-key columns configured and no shard override supplied")
		}
		sorted := append([]int(nil), overrides...)
		sort.Ints(sorted)
		return sorted, nil
	}

	vals := make([]string, len(r.ShardKeyColumns))
	for i, col := range r.ShardKeyColumns {
		v, ok := equalsStringFor(filters, col)
		if !ok {
			return nil, queryerr.NewBadQuery("could not find filter for shard key column %s", col)
		}
		vals[i] = v
	}

	hash := binrec.ShardKeyHash(r.ShardKeyColumns, vals)
	shards, err := r.Shards.QueryShards(hash, spread)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, queryerr.NewBadQuery("shard map returned no shards for hash %d", hash)
	}
	sorted := append([]int(nil), shards...)
	sort.Ints(sorted)
	return sorted, nil
}

func equalsStringFor(filters []logical.ColumnFilter, column string) (string, bool) {
	for _, f := range filters {
		if f.Column != column {
			continue
		}
		return f.EqualsStringValue()
	}
	return "", false
}

// DispatcherForShard resolves the coordinator owning shard and
// returns it wrapped as an exec.PlanDispatcher; it raises
// ShardsUnavailable rather than returning a degraded or partial
// binding when the shard map has no coordinator on file.
func DispatcherForShard(shards ShardMap, shard int) (*ActorPlanDispatcher, error) {
	coord, ok := shards.CoordForShard(shard)
	if !ok {
		return nil, &queryerr.ShardsUnavailable{Shards: []int{shard}}
	}
	return NewActorPlanDispatcher(coord), nil
}

// DispatchersForShards resolves coordinators for every shard in ids,
// collecting every unassigned shard into a single ShardsUnavailable
// error instead of failing on the first miss.
func DispatchersForShards(shards ShardMap, ids []int) (map[int]*ActorPlanDispatcher, error) {
	out := make(map[int]*ActorPlanDispatcher, len(ids))
	var unavailable []int
	for _, id := range ids {
		coord, ok := shards.CoordForShard(id)
		if !ok {
			unavailable = append(unavailable, id)
			continue
		}
		out[id] = NewActorPlanDispatcher(coord)
	}
	if len(unavailable) > 0 {
		return nil, &queryerr.ShardsUnavailable{Shards: unavailable}
	}
	return out, nil
}

var _ fmt.Stringer = CoordinatorEndpoint{}
