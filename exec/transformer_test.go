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
	"testing"

	"github.com/chronodb/qplan/logical"
)

func TestPeriodicSamplesMapperCarriesLastValueForward(t *testing.T) {
	m := &PeriodicSamplesMapper{Start: 0, Step: 10, End: 30}
	in := []RangeVector{{
		Labels:  map[string]string{"job": "api"},
		Samples: []Sample{{Timestamp: 2, Value: 1}, {Timestamp: 15, Value: 2}},
	}}
	out, err := m.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []Sample{{Timestamp: 10, Value: 1}, {Timestamp: 20, Value: 2}, {Timestamp: 30, Value: 2}}
	if len(out) != 1 || len(out[0].Samples) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i, s := range out[0].Samples {
		if s != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, s, want[i])
		}
	}
}

func TestPeriodicSamplesMapperWindowedSum(t *testing.T) {
	window := int64(10)
	fn := "sum_over_time"
	m := &PeriodicSamplesMapper{Start: 10, Step: 10, End: 10, Window: &window, Function: &fn}
	in := []RangeVector{{Samples: []Sample{{Timestamp: 3, Value: 1}, {Timestamp: 8, Value: 2}, {Timestamp: 11, Value: 100}}}}
	out, err := m.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out[0].Samples) != 1 || out[0].Samples[0].Value != 3 {
		t.Fatalf("windowed sum = %v, want 3 (excludes the sample past t=10)", out[0].Samples)
	}
}

func TestInstantVectorFunctionMapperAbs(t *testing.T) {
	m := &InstantVectorFunctionMapper{Function: "abs"}
	out, err := m.Apply([]RangeVector{{Samples: []Sample{{Value: -4}, {Value: 4}}}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out[0].Samples[0].Value != 4 || out[0].Samples[1].Value != 4 {
		t.Fatalf("abs mapping wrong: %v", out[0].Samples)
	}
}

func TestScalarOperationMapperRespectsOperandOrder(t *testing.T) {
	rhsMapper := &ScalarOperationMapper{Operator: logical.Sub, Scalar: 3, ScalarIsLhs: false}
	out, err := rhsMapper.Apply([]RangeVector{{Samples: []Sample{{Value: 10}}}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out[0].Samples[0].Value != 7 {
		t.Fatalf("10 - 3 = %v, want 7", out[0].Samples[0].Value)
	}

	lhsMapper := &ScalarOperationMapper{Operator: logical.Sub, Scalar: 3, ScalarIsLhs: true}
	out, err = lhsMapper.Apply([]RangeVector{{Samples: []Sample{{Value: 10}}}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out[0].Samples[0].Value != -7 {
		t.Fatalf("3 - 10 = %v, want -7", out[0].Samples[0].Value)
	}
}

func TestAggregateMapReduceGroupsByLabel(t *testing.T) {
	m := &AggregateMapReduce{Operator: logical.Sum, By: []string{"job"}}
	in := []RangeVector{
		{Labels: map[string]string{"job": "api", "instance": "i-1"}, Samples: []Sample{{Timestamp: 0, Value: 1}}},
		{Labels: map[string]string{"job": "api", "instance": "i-2"}, Samples: []Sample{{Timestamp: 0, Value: 2}}},
		{Labels: map[string]string{"job": "db", "instance": "i-3"}, Samples: []Sample{{Timestamp: 0, Value: 5}}},
	}
	out, err := m.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 groups (api, db), got %d: %v", len(out), out)
	}
	totals := map[string]float64{}
	for _, rv := range out {
		totals[rv.Labels["job"]] = rv.Samples[0].Value
	}
	if totals["api"] != 3 {
		t.Fatalf("api group sum = %v, want 3", totals["api"])
	}
	if totals["db"] != 5 {
		t.Fatalf("db group sum = %v, want 5", totals["db"])
	}
}

func TestAggregatePresenterFinishesAverage(t *testing.T) {
	p := &AggregatePresenter{Operator: logical.Avg}
	in := []RangeVector{
		{Labels: map[string]string{"job": "api"}, Samples: []Sample{{Timestamp: 0, Value: 4}}},
		{Labels: map[string]string{"job": "api"}, Samples: []Sample{{Timestamp: 0, Value: 8}}},
	}
	out, err := p.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 1 || out[0].Samples[0].Value != 6 {
		t.Fatalf("avg = %v, want 6", out)
	}
}
