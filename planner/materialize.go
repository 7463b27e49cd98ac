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
	"time"

	"github.com/google/uuid"

	"github.com/chronodb/qplan/exec"
	"github.com/chronodb/qplan/logical"
	"github.com/chronodb/qplan/queryerr"
	"github.com/chronodb/qplan/shard"
)

// Materialize walks root and produces the bound, dispatchable
// ExecPlan that answers it, per §4.1. It never returns a partial
// plan: any error aborts the whole call, leaving no exec nodes
// reachable from the caller. queryID and submitTime are each stamped
// once here and threaded unchanged onto every node in the result.
func Materialize(root logical.Plan, opts QueryOptions) (exec.ExecPlan, error) {
	queryID := uuid.NewString()
	submitTime := time.Now().UnixMilli()
	children, err := materialize(queryID, submitTime, root, opts)
	if err != nil {
		return nil, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return exec.NewDistConcatExec(queryID, submitTime, pickDispatcher(children), children), nil
}

func materialize(queryID string, submitTime int64, plan logical.Plan, opts QueryOptions) ([]exec.ExecPlan, error) {
	switch p := plan.(type) {
	case logical.RawSeries:
		return materializeRawSeries(queryID, submitTime, p, opts)

	case logical.PeriodicSeries:
		children, err := materialize(queryID, submitTime, p.RawSeries, opts)
		if err != nil {
			return nil, err
		}
		mapper := &exec.PeriodicSamplesMapper{Start: p.Start, Step: p.Step, End: p.End}
		for _, c := range children {
			c.AddRangeVectorTransformer(mapper)
		}
		return children, nil

	case logical.PeriodicSeriesWithWindowing:
		children, err := materialize(queryID, submitTime, p.RawSeries, opts)
		if err != nil {
			return nil, err
		}
		window := p.Window
		function := p.Function
		mapper := &exec.PeriodicSamplesMapper{
			Start: p.Start, Step: p.Step, End: p.End,
			Window: &window, Function: &function, FunctionArgs: p.FunctionArgs,
		}
		for _, c := range children {
			c.AddRangeVectorTransformer(mapper)
		}
		return children, nil

	case logical.ApplyInstantFunction:
		children, err := materialize(queryID, submitTime, p.Vectors, opts)
		if err != nil {
			return nil, err
		}
		mapper := &exec.InstantVectorFunctionMapper{Function: p.Function, FunctionArgs: p.FunctionArgs}
		for _, c := range children {
			c.AddRangeVectorTransformer(mapper)
		}
		return children, nil

	case logical.ScalarVectorBinaryOperation:
		children, err := materialize(queryID, submitTime, p.Vector, opts)
		if err != nil {
			return nil, err
		}
		mapper := &exec.ScalarOperationMapper{Operator: p.Operator, Scalar: p.Scalar, ScalarIsLhs: p.ScalarIsLhs}
		for _, c := range children {
			c.AddRangeVectorTransformer(mapper)
		}
		return children, nil

	case logical.Aggregate:
		children, err := materialize(queryID, submitTime, p.Vectors, opts)
		if err != nil {
			return nil, err
		}
		mapReduce := &exec.AggregateMapReduce{Operator: p.Operator, Params: p.Params, Without: p.Without, By: p.By}
		for _, c := range children {
			c.AddRangeVectorTransformer(mapReduce)
		}
		dispatcher := pickDispatcher(children)
		reducer := exec.NewReduceAggregateExec(queryID, submitTime, dispatcher, children, p.Operator, p.Params)
		reducer.AddRangeVectorTransformer(&exec.AggregatePresenter{Operator: p.Operator, Params: p.Params})
		return []exec.ExecPlan{reducer}, nil

	case logical.BinaryJoin:
		lhs, err := materialize(queryID, submitTime, p.Lhs, opts)
		if err != nil {
			return nil, err
		}
		rhs, err := materialize(queryID, submitTime, p.Rhs, opts)
		if err != nil {
			return nil, err
		}
		dispatcher := pickDispatcher(append(append([]exec.ExecPlan{}, lhs...), rhs...))
		join := exec.NewBinaryJoinExec(queryID, submitTime, dispatcher, lhs, rhs, p.Operator, p.Cardinality, p.On, p.Ignoring)
		return []exec.ExecPlan{join}, nil

	default:
		return nil, queryerr.NewBadQuery("planner: unsupported logical plan node %T", plan)
	}
}

func materializeRawSeries(queryID string, submitTime int64, raw logical.RawSeries, opts QueryOptions) ([]exec.ExecPlan, error) {
	resolver := &shard.Resolver{ShardKeyColumns: opts.ShardKeyColumns, Shards: opts.Shards}
	shards, err := resolver.ShardsFromFilters(raw.Filters, opts.ShardKeySpread, opts.ShardOverrides)
	if err != nil {
		return nil, err
	}
	dispatchers, err := shard.DispatchersForShards(opts.Shards, shards)
	if err != nil {
		return nil, err
	}
	out := make([]exec.ExecPlan, len(shards))
	for i, s := range shards {
		out[i] = exec.NewSelectRawPartitionsExec(queryID, submitTime, dispatchers[s], opts.Dataset, s, raw.Filters, raw.RangeSelector, raw.Columns)
	}
	return out, nil
}
