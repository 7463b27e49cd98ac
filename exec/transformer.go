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
	"math"

	"github.com/chronodb/qplan/logical"
)

// Sample is one (timestamp, value) observation.
type Sample struct {
	Timestamp int64
	Value     float64
}

// RangeVector is a keyed series of samples: the unit of data flowing
// through a transformer. Labels identifies which series the samples
// belong to (e.g. {"job": "api", "instance": "i-1"}).
type RangeVector struct {
	Labels  map[string]string
	Samples []Sample
}

// RangeVectorTransformer is a pure per-node stream-of-range-vectors to
// stream-of-range-vectors function appended to an exec node during
// materialization. The stream is modeled as a plain slice rather than
// a channel: the engine's own streaming/backpressure machinery lives
// in the (out-of-scope) scan and transport layers, and a transformer
// only needs to see the vectors that have already been assembled for
// one node's output, so a synchronous slice-to-slice function keeps
// the contract testable without faking concurrency infrastructure.
type RangeVectorTransformer interface {
	Apply(in []RangeVector) ([]RangeVector, error)
	fmt.Stringer
}

// PeriodicSamplesMapper resamples its input onto a fixed [Start,
// Step, End] grid, optionally applying a windowed range function.
type PeriodicSamplesMapper struct {
	Start, Step, End int64
	Window           *int64
	Function         *string
	FunctionArgs     []float64
}

func (m *PeriodicSamplesMapper) String() string {
	return fmt.Sprintf("PeriodicSamplesMapper(start=%d, step=%d, end=%d, window=%v, fn=%v)",
		m.Start, m.Step, m.End, m.Window, m.Function)
}

// Apply resamples each input range vector onto the configured grid by
// carrying forward the most recent sample at or before each grid
// point (last-value-before semantics), which is the simplest
// behavior consistent with the spec's "periodic resampling" wording
// when no window function is configured. When Window is set, each
// grid point instead aggregates samples falling in
// (t-Window, t] using the configured range function.
func (m *PeriodicSamplesMapper) Apply(in []RangeVector) ([]RangeVector, error) {
	out := make([]RangeVector, len(in))
	for i, rv := range in {
		out[i] = RangeVector{Labels: rv.Labels, Samples: m.resample(rv.Samples)}
	}
	return out, nil
}

func (m *PeriodicSamplesMapper) resample(samples []Sample) []Sample {
	var out []Sample
	for t := m.Start; t <= m.End; t += m.Step {
		if m.Window != nil {
			out = append(out, Sample{Timestamp: t, Value: windowedValue(samples, t, *m.Window, m.function())})
			continue
		}
		if v, ok := lastValueBefore(samples, t); ok {
			out = append(out, Sample{Timestamp: t, Value: v})
		}
	}
	return out
}

func (m *PeriodicSamplesMapper) function() string {
	if m.Function == nil {
		return ""
	}
	return *m.Function
}

func lastValueBefore(samples []Sample, t int64) (float64, bool) {
	var best Sample
	found := false
	for _, s := range samples {
		if s.Timestamp <= t && (!found || s.Timestamp > best.Timestamp) {
			best = s
			found = true
		}
	}
	return best.Value, found
}

func windowedValue(samples []Sample, t, window int64, fn string) float64 {
	var sum float64
	var count int
	for _, s := range samples {
		if s.Timestamp > t-window && s.Timestamp <= t {
			sum += s.Value
			count++
		}
	}
	switch fn {
	case "rate", "avg_over_time":
		if count == 0 {
			return 0
		}
		return sum / float64(count)
	default: // "sum_over_time" and unknown functions default to sum
		return sum
	}
}

// InstantVectorFunctionMapper applies a pointwise function across
// every sample of every input range vector.
type InstantVectorFunctionMapper struct {
	Function     string
	FunctionArgs []float64
}

func (m *InstantVectorFunctionMapper) String() string {
	return fmt.Sprintf("InstantVectorFunctionMapper(fn=%s, args=%v)", m.Function, m.FunctionArgs)
}

func (m *InstantVectorFunctionMapper) Apply(in []RangeVector) ([]RangeVector, error) {
	out := make([]RangeVector, len(in))
	for i, rv := range in {
		samples := make([]Sample, len(rv.Samples))
		for j, s := range rv.Samples {
			samples[j] = Sample{Timestamp: s.Timestamp, Value: applyInstantFn(m.Function, s.Value)}
		}
		out[i] = RangeVector{Labels: rv.Labels, Samples: samples}
	}
	return out, nil
}

func applyInstantFn(fn string, v float64) float64 {
	switch fn {
	case "abs":
		if v < 0 {
			return -v
		}
		return v
	case "ln":
		return math.Log(v)
	default:
		return v
	}
}

// ScalarOperationMapper combines each sample of its input with a
// scalar constant.
type ScalarOperationMapper struct {
	Operator    logical.BinaryOperator
	Scalar      float64
	ScalarIsLhs bool
}

func (m *ScalarOperationMapper) String() string {
	return fmt.Sprintf("ScalarOperationMapper(op=%s, scalar=%v, scalarIsLhs=%v)", m.Operator, m.Scalar, m.ScalarIsLhs)
}

func (m *ScalarOperationMapper) Apply(in []RangeVector) ([]RangeVector, error) {
	out := make([]RangeVector, len(in))
	for i, rv := range in {
		samples := make([]Sample, len(rv.Samples))
		for j, s := range rv.Samples {
			lhs, rhs := s.Value, m.Scalar
			if m.ScalarIsLhs {
				lhs, rhs = m.Scalar, s.Value
			}
			v, err := applyBinaryOp(m.Operator, lhs, rhs)
			if err != nil {
				return nil, err
			}
			samples[j] = Sample{Timestamp: s.Timestamp, Value: v}
		}
		out[i] = RangeVector{Labels: rv.Labels, Samples: samples}
	}
	return out, nil
}

func applyBinaryOp(op logical.BinaryOperator, lhs, rhs float64) (float64, error) {
	switch op {
	case logical.Add:
		return lhs + rhs, nil
	case logical.Sub:
		return lhs - rhs, nil
	case logical.Mul:
		return lhs * rhs, nil
	case logical.Div:
		return lhs / rhs, nil
	case logical.Eq:
		return boolToFloat(lhs == rhs), nil
	case logical.Neq:
		return boolToFloat(lhs != rhs), nil
	default:
		return 0, fmt.Errorf("exec: unsupported binary operator %s", op)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// AggregateMapReduce performs the per-shard ("map") half of a
// cross-shard aggregation: grouping and partially reducing the local
// series before they are concatenated and finished off by a
// ReduceAggregateExec.
type AggregateMapReduce struct {
	Operator logical.AggregateOperator
	Params   []float64
	Without  []string
	By       []string
}

func (m *AggregateMapReduce) String() string {
	return fmt.Sprintf("AggregateMapReduce(op=%s, without=%v, by=%v)", m.Operator, m.Without, m.By)
}

func (m *AggregateMapReduce) Apply(in []RangeVector) ([]RangeVector, error) {
	return groupReduce(in, m.Operator, m.Without, m.By)
}

// AggregatePresenter finishes a cross-shard aggregation, applying the
// same reduction across the already-partially-reduced groups a
// ReduceAggregateExec concatenated.
type AggregatePresenter struct {
	Operator logical.AggregateOperator
	Params   []float64
}

func (p *AggregatePresenter) String() string {
	return fmt.Sprintf("AggregatePresenter(op=%s)", p.Operator)
}

func (p *AggregatePresenter) Apply(in []RangeVector) ([]RangeVector, error) {
	return groupReduce(in, p.Operator, nil, nil)
}

func groupKey(labels map[string]string, without, by []string) string {
	if len(by) > 0 {
		keep := make(map[string]bool, len(by))
		for _, k := range by {
			keep[k] = true
		}
		return labelKey(labels, keep, true)
	}
	excl := make(map[string]bool, len(without))
	for _, k := range without {
		excl[k] = true
	}
	return labelKey(labels, excl, false)
}

func labelKey(labels map[string]string, set map[string]bool, keepIfPresent bool) string {
	s := ""
	for k, v := range labels {
		present := set[k]
		if present == keepIfPresent {
			s += k + "=" + v + ";"
		}
	}
	return s
}

func groupReduce(in []RangeVector, op logical.AggregateOperator, without, by []string) ([]RangeVector, error) {
	groups := map[string]*RangeVector{}
	order := []string{}
	for _, rv := range in {
		key := groupKey(rv.Labels, without, by)
		g, ok := groups[key]
		if !ok {
			g = &RangeVector{Labels: rv.Labels, Samples: nil}
			groups[key] = g
			order = append(order, key)
		}
		g.Samples = reduceSamples(op, g.Samples, rv.Samples)
	}
	out := make([]RangeVector, len(order))
	for i, key := range order {
		out[i] = *groups[key]
	}
	return out, nil
}

func reduceSamples(op logical.AggregateOperator, acc, next []Sample) []Sample {
	byTime := map[int64]float64{}
	counts := map[int64]int{}
	for _, s := range acc {
		byTime[s.Timestamp] = s.Value
		counts[s.Timestamp] = 1
	}
	for _, s := range next {
		prev, ok := byTime[s.Timestamp]
		if !ok {
			byTime[s.Timestamp] = s.Value
			counts[s.Timestamp] = 1
			continue
		}
		counts[s.Timestamp]++
		switch op {
		case logical.Sum, logical.Avg:
			byTime[s.Timestamp] = prev + s.Value
		case logical.Min:
			if s.Value < prev {
				byTime[s.Timestamp] = s.Value
			}
		case logical.Max:
			if s.Value > prev {
				byTime[s.Timestamp] = s.Value
			}
		case logical.Count:
			byTime[s.Timestamp] = prev + 1
		}
	}
	out := make([]Sample, 0, len(byTime))
	for t, v := range byTime {
		if op == logical.Avg {
			v = v / float64(counts[t])
		}
		out = append(out, Sample{Timestamp: t, Value: v})
	}
	return out
}
