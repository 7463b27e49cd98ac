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

package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/chronodb/qplan/exec"
	"github.com/chronodb/qplan/logical"
	"github.com/chronodb/qplan/queryerr"
	"github.com/chronodb/qplan/shard"
)

// fixedShardMap always resolves to Shards regardless of the hash,
// letting each scenario pin exactly the shard set the spec's example
// names without having to reverse-engineer a hash input that happens
// to land there.
type fixedShardMap struct {
	Shards       []int
	Coordinators map[int]shard.CoordinatorEndpoint
}

func (m *fixedShardMap) QueryShards(shardHash int32, spread int) ([]int, error) {
	return m.Shards, nil
}

func (m *fixedShardMap) CoordForShard(s int) (shard.CoordinatorEndpoint, bool) {
	c, ok := m.Coordinators[s]
	return c, ok
}

func coordSet(shards ...int) map[int]shard.CoordinatorEndpoint {
	out := make(map[int]shard.CoordinatorEndpoint, len(shards))
	for _, s := range shards {
		out[s] = shard.CoordinatorEndpoint{Addr: addrFor(s)}
	}
	return out
}

func addrFor(shard int) string {
	return "coord-" + string(rune('0'+shard)) + ":9000"
}

func rawSeries() logical.RawSeries {
	return logical.RawSeries{
		Filters: []logical.ColumnFilter{
			{Column: "job", Filter: logical.EqualsString("api")},
			{Column: "instance", Filter: logical.EqualsString("i-1")},
			{Column: "method", Filter: logical.EqualsString("GET")},
		},
		Columns:       []string{"value"},
		RangeSelector: logical.AllChunksSelector{},
	}
}

// TestS1SimplePeriodicSeriesTwoShards mirrors scenario S1: a
// PeriodicSeries over a two-shard RawSeries should materialize to a
// DistConcatExec over two SelectRawPartitionsExec leaves, each
// carrying the same PeriodicSamplesMapper.
func TestS1SimplePeriodicSeriesTwoShards(t *testing.T) {
	opts := QueryOptions{
		Dataset:         "metrics",
		ShardKeyColumns: []string{"job", "instance"},
		ShardKeySpread:  1,
		Shards:          &fixedShardMap{Shards: []int{3, 7}, Coordinators: coordSet(3, 7)},
	}
	plan := logical.PeriodicSeries{RawSeries: rawSeries(), Start: 1000, Step: 10, End: 1100}

	root, err := Materialize(plan, opts)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	concat, ok := root.(*exec.DistConcatExec)
	if !ok {
		t.Fatalf("root = %T, want *exec.DistConcatExec", root)
	}
	children := concat.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(children))
	}
	gotShards := map[int]bool{}
	for _, c := range children {
		leaf, ok := c.(*exec.SelectRawPartitionsExec)
		if !ok {
			t.Fatalf("child = %T, want *exec.SelectRawPartitionsExec", c)
		}
		gotShards[leaf.Shard] = true
		if len(leaf.Transformers()) != 1 {
			t.Fatalf("leaf shard %d has %d transformers, want 1", leaf.Shard, len(leaf.Transformers()))
		}
		mapper, ok := leaf.Transformers()[0].(*exec.PeriodicSamplesMapper)
		if !ok || mapper.Start != 1000 || mapper.Step != 10 || mapper.End != 1100 {
			t.Fatalf("leaf shard %d transformer = %v, want PeriodicSamplesMapper(1000,10,1100)", leaf.Shard, leaf.Transformers()[0])
		}
	}
	if !gotShards[3] || !gotShards[7] {
		t.Fatalf("expected leaves for shards {3,7}, got %v", gotShards)
	}
	if concat.Dispatcher() == nil {
		t.Fatalf("DistConcatExec should have a dispatcher chosen from its children")
	}
	for _, c := range children {
		if c.SubmitTime() != concat.SubmitTime() {
			t.Fatalf("child SubmitTime() = %d, want root's %d", c.SubmitTime(), concat.SubmitTime())
		}
	}
	if concat.SubmitTime() == 0 {
		t.Fatalf("SubmitTime() should be stamped to a nonzero epoch-ms value")
	}
}

// TestS2MissingShardKeyFilterIsBadQuery mirrors scenario S2.
func TestS2MissingShardKeyFilterIsBadQuery(t *testing.T) {
	opts := QueryOptions{
		Dataset:         "metrics",
		ShardKeyColumns: []string{"job", "instance"},
		Shards:          &fixedShardMap{Shards: []int{3, 7}, Coordinators: coordSet(3, 7)},
	}
	raw := logical.RawSeries{
		Filters: []logical.ColumnFilter{
			{Column: "job", Filter: logical.EqualsString("api")},
			{Column: "method", Filter: logical.EqualsString("GET")},
		},
	}
	_, err := Materialize(raw, opts)
	var bad *queryerr.BadQuery
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadQuery for missing instance filter, got %v", err)
	}
}

// TestS3AggregateOverThreeShards mirrors scenario S3.
func TestS3AggregateOverThreeShards(t *testing.T) {
	opts := QueryOptions{
		Dataset:         "metrics",
		ShardKeyColumns: []string{"job", "instance"},
		Shards:          &fixedShardMap{Shards: []int{1, 2, 5}, Coordinators: coordSet(1, 2, 5)},
	}
	agg := logical.Aggregate{
		Vectors:  logical.PeriodicSeries{RawSeries: rawSeries(), Start: 0, Step: 10, End: 100},
		Operator: logical.Sum,
		Without:  []string{"pod"},
	}
	root, err := Materialize(agg, opts)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	reducer, ok := root.(*exec.ReduceAggregateExec)
	if !ok {
		t.Fatalf("root = %T, want *exec.ReduceAggregateExec", root)
	}
	if reducer.Operator != logical.Sum {
		t.Fatalf("reducer.Operator = %v, want Sum", reducer.Operator)
	}
	if len(reducer.Children()) != 3 {
		t.Fatalf("expected 3 children, got %d", len(reducer.Children()))
	}
	for _, c := range reducer.Children() {
		ts := c.Transformers()
		if len(ts) != 2 {
			t.Fatalf("child has %d transformers, want 2 (periodic mapper + map-reduce)", len(ts))
		}
		if _, ok := ts[1].(*exec.AggregateMapReduce); !ok {
			t.Fatalf("child's second transformer = %T, want *exec.AggregateMapReduce", ts[1])
		}
	}
	reducerTs := reducer.Transformers()
	if len(reducerTs) != 1 {
		t.Fatalf("reducer has %d transformers, want 1 (presenter)", len(reducerTs))
	}
	if _, ok := reducerTs[0].(*exec.AggregatePresenter); !ok {
		t.Fatalf("reducer transformer = %T, want *exec.AggregatePresenter", reducerTs[0])
	}
}

// TestS4BinaryJoin mirrors scenario S4.
func TestS4BinaryJoin(t *testing.T) {
	lhsShards := &fixedShardMap{Shards: []int{1, 2}, Coordinators: coordSet(1, 2)}
	rhsShards := &fixedShardMap{Shards: []int{1}, Coordinators: coordSet(1)}

	lhsPlan := logical.PeriodicSeries{RawSeries: rawSeries(), Start: 0, Step: 10, End: 100}
	rhsPlan := logical.PeriodicSeries{RawSeries: rawSeries(), Start: 0, Step: 10, End: 100}

	lhsOpts := QueryOptions{Dataset: "a", ShardKeyColumns: []string{"job", "instance"}, Shards: lhsShards}
	lhsChildren, err := materialize("q", testSubmitTime, lhsPlan, lhsOpts)
	if err != nil {
		t.Fatalf("materialize lhs: %v", err)
	}
	rhsOpts := QueryOptions{Dataset: "b", ShardKeyColumns: []string{"job", "instance"}, Shards: rhsShards}
	rhsChildren, err := materialize("q", testSubmitTime, rhsPlan, rhsOpts)
	if err != nil {
		t.Fatalf("materialize rhs: %v", err)
	}
	if len(lhsChildren) != 2 || len(rhsChildren) != 1 {
		t.Fatalf("unexpected child counts: lhs=%d rhs=%d", len(lhsChildren), len(rhsChildren))
	}

	join := exec.NewBinaryJoinExec("q", testSubmitTime, pickDispatcher(append(append([]exec.ExecPlan{}, lhsChildren...), rhsChildren...)),
		lhsChildren, rhsChildren, logical.Mul, logical.OneToOne, []string{"service"}, nil)

	if len(join.Lhs) != 2 || len(join.Rhs) != 1 {
		t.Fatalf("join.Lhs=%d join.Rhs=%d, want 2 and 1", len(join.Lhs), len(join.Rhs))
	}
	if join.Dispatcher() == nil {
		t.Fatalf("join should have a dispatcher chosen from lhs ∪ rhs")
	}
}

const testSubmitTime = int64(1700000000000)

func TestPickDispatcherDedupesByIdentity(t *testing.T) {
	d := &stubDispatcher{name: "shard-0"}
	a := exec.NewSelectRawPartitionsExec("q", testSubmitTime, d, "m", 0, nil, nil, nil)
	b := exec.NewSelectRawPartitionsExec("q", testSubmitTime, d, "m", 1, nil, nil, nil)
	picked := pickDispatcher([]exec.ExecPlan{a, b})
	if picked == nil || picked.String() != "shard-0" {
		t.Fatalf("pickDispatcher should dedupe to the single distinct dispatcher, got %v", picked)
	}
}

type stubDispatcher struct{ name string }

func (s *stubDispatcher) Dispatch(ctx context.Context, plan exec.ExecPlan) (exec.QueryResponse, error) {
	return exec.QueryResponse{}, nil
}

func (s *stubDispatcher) String() string { return s.name }
