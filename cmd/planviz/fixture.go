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

package main

import (
	"fmt"

	"github.com/chronodb/qplan/logical"
	"github.com/chronodb/qplan/planner"
	"github.com/chronodb/qplan/shard"
)

// fixture is the YAML shape planviz loads: a logical plan tree plus
// the shard-map topology needed to materialize it. It exists purely
// as a debugging/demo input format, not a wire protocol.
type fixture struct {
	Dataset         string         `json:"dataset"`
	ShardKeyColumns []string       `json:"shardKeyColumns,omitempty"`
	ShardKeySpread  int            `json:"shardKeySpread,omitempty"`
	ShardOverrides  []int          `json:"shardOverrides,omitempty"`
	Shards          int            `json:"shards"`
	Coordinators    map[string]string `json:"coordinators"` // shard number (string key) -> addr
	Plan            planNode       `json:"plan"`
}

// planNode is a YAML-friendly, partially-populated union of every
// logical.Plan variant; exactly one "kind"-appropriate set of fields
// should be set per node.
type planNode struct {
	Kind string `json:"kind"`

	// RawSeries fields.
	Filters []filterSpec `json:"filters,omitempty"`
	Columns []string     `json:"columns,omitempty"`

	// PeriodicSeries / PeriodicSeriesWithWindowing fields.
	RawSeries    *planNode `json:"rawSeries,omitempty"`
	Start        int64     `json:"start,omitempty"`
	Step         int64     `json:"step,omitempty"`
	End          int64     `json:"end,omitempty"`
	Window       int64     `json:"window,omitempty"`
	Function     string    `json:"function,omitempty"`
	FunctionArgs []float64 `json:"functionArgs,omitempty"`

	// ApplyInstantFunction / ScalarVectorBinaryOperation / Aggregate
	// common "child" field.
	Vectors *planNode `json:"vectors,omitempty"`

	// ScalarVectorBinaryOperation fields.
	Operator    string  `json:"operator,omitempty"`
	Scalar      float64 `json:"scalar,omitempty"`
	ScalarIsLhs bool    `json:"scalarIsLhs,omitempty"`

	// Aggregate fields.
	AggregateOp string   `json:"aggregateOp,omitempty"`
	Without     []string `json:"without,omitempty"`
	By          []string `json:"by,omitempty"`

	// BinaryJoin fields.
	Lhs         *planNode `json:"lhs,omitempty"`
	Rhs         *planNode `json:"rhs,omitempty"`
	Cardinality string    `json:"cardinality,omitempty"`
	On          []string  `json:"on,omitempty"`
	Ignoring    []string  `json:"ignoring,omitempty"`
}

type filterSpec struct {
	Column string `json:"column"`
	Equals string `json:"equals"`
}

func (n *planNode) toLogical() (logical.Plan, error) {
	if n == nil {
		return nil, fmt.Errorf("planviz: missing plan node")
	}
	switch n.Kind {
	case "RawSeries":
		filters := make([]logical.ColumnFilter, len(n.Filters))
		for i, f := range n.Filters {
			filters[i] = logical.ColumnFilter{Column: f.Column, Filter: logical.EqualsString(f.Equals)}
		}
		return logical.RawSeries{Filters: filters, Columns: n.Columns, RangeSelector: logical.AllChunksSelector{}}, nil

	case "PeriodicSeries":
		raw, err := n.RawSeries.toLogical()
		if err != nil {
			return nil, err
		}
		rs, ok := raw.(logical.RawSeries)
		if !ok {
			return nil, fmt.Errorf("planviz: PeriodicSeries.rawSeries must be a RawSeries node")
		}
		return logical.PeriodicSeries{RawSeries: rs, Start: n.Start, Step: n.Step, End: n.End}, nil

	case "PeriodicSeriesWithWindowing":
		raw, err := n.RawSeries.toLogical()
		if err != nil {
			return nil, err
		}
		rs, ok := raw.(logical.RawSeries)
		if !ok {
			return nil, fmt.Errorf("planviz: PeriodicSeriesWithWindowing.rawSeries must be a RawSeries node")
		}
		return logical.PeriodicSeriesWithWindowing{
			RawSeries: rs, Start: n.Start, Step: n.Step, End: n.End,
			Window: n.Window, Function: n.Function, FunctionArgs: n.FunctionArgs,
		}, nil

	case "ApplyInstantFunction":
		vectors, err := n.Vectors.toLogical()
		if err != nil {
			return nil, err
		}
		return logical.ApplyInstantFunction{Vectors: vectors, Function: n.Function, FunctionArgs: n.FunctionArgs}, nil

	case "ScalarVectorBinaryOperation":
		vector, err := n.Vectors.toLogical()
		if err != nil {
			return nil, err
		}
		op, err := parseBinaryOperator(n.Operator)
		if err != nil {
			return nil, err
		}
		return logical.ScalarVectorBinaryOperation{Vector: vector, Operator: op, Scalar: n.Scalar, ScalarIsLhs: n.ScalarIsLhs}, nil

	case "Aggregate":
		vectors, err := n.Vectors.toLogical()
		if err != nil {
			return nil, err
		}
		op, err := parseAggregateOperator(n.AggregateOp)
		if err != nil {
			return nil, err
		}
		return logical.Aggregate{Vectors: vectors, Operator: op, Without: n.Without, By: n.By}, nil

	case "BinaryJoin":
		lhs, err := n.Lhs.toLogical()
		if err != nil {
			return nil, err
		}
		rhs, err := n.Rhs.toLogical()
		if err != nil {
			return nil, err
		}
		op, err := parseBinaryOperator(n.Operator)
		if err != nil {
			return nil, err
		}
		card, err := parseCardinality(n.Cardinality)
		if err != nil {
			return nil, err
		}
		return logical.BinaryJoin{Lhs: lhs, Rhs: rhs, Operator: op, Cardinality: card, On: n.On, Ignoring: n.Ignoring}, nil

	default:
		return nil, fmt.Errorf("planviz: unknown plan node kind %q", n.Kind)
	}
}

func parseBinaryOperator(s string) (logical.BinaryOperator, error) {
	switch s {
	case "Add":
		return logical.Add, nil
	case "Sub":
		return logical.Sub, nil
	case "Mul":
		return logical.Mul, nil
	case "Div":
		return logical.Div, nil
	case "Eq":
		return logical.Eq, nil
	case "Neq":
		return logical.Neq, nil
	default:
		return 0, fmt.Errorf("planviz: unknown binary operator %q", s)
	}
}

func parseAggregateOperator(s string) (logical.AggregateOperator, error) {
	switch s {
	case "Sum":
		return logical.Sum, nil
	case "Avg":
		return logical.Avg, nil
	case "Min":
		return logical.Min, nil
	case "Max":
		return logical.Max, nil
	case "Count":
		return logical.Count, nil
	case "Stddev":
		return logical.Stddev, nil
	default:
		return 0, fmt.Errorf("planviz: unknown aggregate operator %q", s)
	}
}

func parseCardinality(s string) (logical.Cardinality, error) {
	switch s {
	case "", "OneToOne":
		return logical.OneToOne, nil
	case "OneToMany":
		return logical.OneToMany, nil
	case "ManyToOne":
		return logical.ManyToOne, nil
	default:
		return 0, fmt.Errorf("planviz: unknown cardinality %q", s)
	}
}

func (f *fixture) toQueryOptions() (logical.Plan, planner.QueryOptions, error) {
	plan, err := f.Plan.toLogical()
	if err != nil {
		return nil, planner.QueryOptions{}, err
	}
	coords := make(map[int]shard.CoordinatorEndpoint, len(f.Coordinators))
	for k, addr := range f.Coordinators {
		var idx int
		if _, err := fmt.Sscanf(k, "%d", &idx); err != nil {
			return nil, planner.QueryOptions{}, fmt.Errorf("planviz: invalid shard number %q in coordinators: %w", k, err)
		}
		coords[idx] = shard.CoordinatorEndpoint{Addr: addr}
	}
	opts := planner.QueryOptions{
		Dataset:         f.Dataset,
		ShardKeyColumns: f.ShardKeyColumns,
		ShardKeySpread:  f.ShardKeySpread,
		ShardOverrides:  f.ShardOverrides,
		Shards:          shard.NewStaticShardMap(f.Shards, coords),
	}
	return plan, opts, nil
}
