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

package exec

import (
	"fmt"
	"strings"

	"github.com/chronodb/qplan/logical"
)

// ExecPlan is the sealed interface implemented by every physical plan
// node the planner emits. Unlike the logical tree, a node here is
// already bound to a dispatcher and may carry a list of
// RangeVectorTransformers to run against the data it produces.
type ExecPlan interface {
	fmt.Stringer

	// QueryID identifies the query this node belongs to; every node
	// of one materialized plan shares the same ID.
	QueryID() string

	// SubmitTime is the epoch-millisecond timestamp stamped once at
	// the materialization root; every node of one materialized plan
	// shares the same value.
	SubmitTime() int64

	// Dispatcher is the endpoint Dispatch ships this subtree to. It is
	// nil only for a node constructed with a nil dispatcher; every node
	// Materialize builds, the root included, has one.
	Dispatcher() PlanDispatcher

	// Children returns this node's inputs, innermost-last order
	// matching how the node was constructed.
	Children() []ExecPlan

	// AddRangeVectorTransformer appends a transform to run against
	// this node's output once it resolves.
	AddRangeVectorTransformer(t RangeVectorTransformer)

	// Transformers returns the transforms appended so far, in
	// application order.
	Transformers() []RangeVectorTransformer

	// PrintTree renders the plan rooted at this node as an indented
	// tree, one node per line.
	PrintTree() string
}

// base is embedded in every ExecPlan node, mirroring the teacher's
// Nonterminal embedding: it carries the fields and default method
// implementations every node shares so each concrete type only
// declares what makes it different.
type base struct {
	queryID      string
	submitTime   int64
	dispatcher   PlanDispatcher
	transformers []RangeVectorTransformer
}

func (b *base) QueryID() string                        { return b.queryID }
func (b *base) SubmitTime() int64                      { return b.submitTime }
func (b *base) Dispatcher() PlanDispatcher              { return b.dispatcher }
func (b *base) Transformers() []RangeVectorTransformer { return b.transformers }

func (b *base) AddRangeVectorTransformer(t RangeVectorTransformer) {
	b.transformers = append(b.transformers, t)
}

func tabify(n int, dst *strings.Builder) {
	for ; n > 0; n-- {
		dst.WriteByte('\t')
	}
}

func tabline(dst *strings.Builder, indent int, line string) {
	tabify(indent, dst)
	dst.WriteString(line)
	dst.WriteByte('\n')
}

func printExecPlan(dst *strings.Builder, indent int, p ExecPlan) {
	for _, c := range p.Children() {
		printExecPlan(dst, indent+1, c)
	}
	line := p.String()
	if ts := p.Transformers(); len(ts) > 0 {
		names := make([]string, len(ts))
		for i, t := range ts {
			names[i] = t.String()
		}
		line = fmt.Sprintf("%s + [%s]", line, strings.Join(names, ", "))
	}
	if d := p.Dispatcher(); d != nil {
		line = fmt.Sprintf("%s @ %s", line, d.String())
	}
	tabline(dst, indent, line)
}

func printTree(p ExecPlan) string {
	var out strings.Builder
	printExecPlan(&out, 0, p)
	return out.String()
}

// SelectRawPartitionsExec is the leaf exec node: a single shard's raw
// scan, column-pruned and filter-pruned by the planner from a
// logical.RawSeries.
type SelectRawPartitionsExec struct {
	base
	Dataset      string
	Shard        int
	Filters      []logical.ColumnFilter
	RowKeyRange  logical.RangeSelector
	Columns      []string
}

// NewSelectRawPartitionsExec constructs a bound leaf scan node.
func NewSelectRawPartitionsExec(queryID string, submitTime int64, dispatcher PlanDispatcher, dataset string, shard int, filters []logical.ColumnFilter, rowKeyRange logical.RangeSelector, columns []string) *SelectRawPartitionsExec {
	return &SelectRawPartitionsExec{
		base:        base{queryID: queryID, submitTime: submitTime, dispatcher: dispatcher},
		Dataset:     dataset,
		Shard:       shard,
		Filters:     filters,
		RowKeyRange: rowKeyRange,
		Columns:     columns,
	}
}

func (s *SelectRawPartitionsExec) Children() []ExecPlan { return nil }

func (s *SelectRawPartitionsExec) String() string {
	filters := make([]string, len(s.Filters))
	for i, f := range s.Filters {
		filters[i] = f.String()
	}
	return fmt.Sprintf("SelectRawPartitions(dataset=%s, shard=%d, filters=[%s], columns=%v, range=%s)",
		s.Dataset, s.Shard, strings.Join(filters, ", "), s.Columns, s.RowKeyRange)
}

func (s *SelectRawPartitionsExec) PrintTree() string { return printTree(s) }

// DistConcatExec concatenates the outputs of several children that
// have already been narrowed to disjoint shard sets, without any
// further reduction.
type DistConcatExec struct {
	base
	children []ExecPlan
}

// NewDistConcatExec constructs a fan-in concat node over children.
func NewDistConcatExec(queryID string, submitTime int64, dispatcher PlanDispatcher, children []ExecPlan) *DistConcatExec {
	return &DistConcatExec{base: base{queryID: queryID, submitTime: submitTime, dispatcher: dispatcher}, children: children}
}

func (d *DistConcatExec) Children() []ExecPlan { return d.children }

func (d *DistConcatExec) String() string {
	return fmt.Sprintf("DistConcat(children=%d)", len(d.children))
}

func (d *DistConcatExec) PrintTree() string { return printTree(d) }

// ReduceAggregateExec finishes a cross-shard aggregation begun by an
// AggregateMapReduce transformer on each child, combining the
// per-shard partial results with Operator.
type ReduceAggregateExec struct {
	base
	children []ExecPlan
	Operator logical.AggregateOperator
	Params   []float64
}

// NewReduceAggregateExec constructs a cross-shard aggregation reducer.
func NewReduceAggregateExec(queryID string, submitTime int64, dispatcher PlanDispatcher, children []ExecPlan, operator logical.AggregateOperator, params []float64) *ReduceAggregateExec {
	return &ReduceAggregateExec{
		base:     base{queryID: queryID, submitTime: submitTime, dispatcher: dispatcher},
		children: children,
		Operator: operator,
		Params:   params,
	}
}

func (r *ReduceAggregateExec) Children() []ExecPlan { return r.children }

func (r *ReduceAggregateExec) String() string {
	return fmt.Sprintf("ReduceAggregate(children=%d, op=%s, params=%v)", len(r.children), r.Operator, r.Params)
}

func (r *ReduceAggregateExec) PrintTree() string { return printTree(r) }

// BinaryJoinExec combines the results of two children elementwise,
// matching series by the configured label sets. Lhs and Rhs are
// themselves lists because each side of a join may have resolved to
// several per-shard children before the join collapses them into one
// node.
type BinaryJoinExec struct {
	base
	Lhs, Rhs    []ExecPlan
	Operator    logical.BinaryOperator
	Cardinality logical.Cardinality
	On          []string
	Ignoring    []string
}

// NewBinaryJoinExec constructs a bound binary join node.
func NewBinaryJoinExec(queryID string, submitTime int64, dispatcher PlanDispatcher, lhs, rhs []ExecPlan, operator logical.BinaryOperator, cardinality logical.Cardinality, on, ignoring []string) *BinaryJoinExec {
	return &BinaryJoinExec{
		base:        base{queryID: queryID, submitTime: submitTime, dispatcher: dispatcher},
		Lhs:         lhs,
		Rhs:         rhs,
		Operator:    operator,
		Cardinality: cardinality,
		On:          on,
		Ignoring:    ignoring,
	}
}

func (b *BinaryJoinExec) Children() []ExecPlan {
	out := make([]ExecPlan, 0, len(b.Lhs)+len(b.Rhs))
	out = append(out, b.Lhs...)
	out = append(out, b.Rhs...)
	return out
}

func (b *BinaryJoinExec) String() string {
	return fmt.Sprintf("BinaryJoin(op=%s, card=%s, on=%v, ignoring=%v)", b.Operator, b.Cardinality, b.On, b.Ignoring)
}

func (b *BinaryJoinExec) PrintTree() string { return printTree(b) }
