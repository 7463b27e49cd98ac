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

package binrec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chronodb/qplan/queryerr"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]Field{
		{Name: "count", Type: Int},
		{Name: "total", Type: Long},
		{Name: "avg", Type: Double},
		{Name: "job", Type: String},
		{Name: "tags", Type: Map},
	}, 3, []string{"instance", "env"})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestRoundTripBasicFields(t *testing.T) {
	schema := testSchema(t)
	b, err := NewBuilder(schema, HeapFactory{}, MinContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.StartNewRecord(); err != nil {
		t.Fatal(err)
	}
	if err := b.AddInt(42); err != nil {
		t.Fatal(err)
	}
	if err := b.AddLong(1234567890123); err != nil {
		t.Fatal(err)
	}
	if err := b.AddDouble(3.5); err != nil {
		t.Fatal(err)
	}
	if err := b.AddString([]byte("api")); err != nil {
		t.Fatal(err)
	}
	pairs := []KV{{Key: "zz", Value: "1"}, {Key: "aa", Value: "2"}}
	hashes := SortAndComputeHashes(pairs)
	if err := b.AddSortedPairsAsMap(pairs, hashes); err != nil {
		t.Fatal(err)
	}
	if _, err := b.EndRecord(true); err != nil {
		t.Fatal(err)
	}

	r := NewReader(schema)
	var count int
	err = r.Records(b.CurrentContainer().TrimmedArray(), func(rec Record) error {
		count++
		i, err := rec.GetInt(0)
		if err != nil || i != 42 {
			t.Fatalf("GetInt: got %d, %v", i, err)
		}
		l, err := rec.GetLong(1)
		if err != nil || l != 1234567890123 {
			t.Fatalf("GetLong: got %d, %v", l, err)
		}
		d, err := rec.GetDouble(2)
		if err != nil || d != 3.5 {
			t.Fatalf("GetDouble: got %v, %v", d, err)
		}
		s, err := rec.GetString(3)
		if err != nil || string(s) != "api" {
			t.Fatalf("GetString: got %q, %v", s, err)
		}
		m, err := rec.GetMap(4)
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != 2 || m[0].Key != "aa" || m[1].Key != "zz" {
			t.Fatalf("GetMap: keys not sorted: %+v", m)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
}

// TestRecordHashSurvivesAlignmentPadding exercises a record whose
// variable area (a 3-byte string plus a 2-pair map) leaves the
// pre-hash length non-4-aligned, so EndRecord must pad before writing
// the hash rather than after. If the hash were written before padding,
// Record.Hash() would read trailing zero pad bytes instead of it.
func TestRecordHashSurvivesAlignmentPadding(t *testing.T) {
	schema := testSchema(t)
	b, err := NewBuilder(schema, HeapFactory{}, MinContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.StartNewRecord(); err != nil {
		t.Fatal(err)
	}
	if err := b.AddInt(1); err != nil {
		t.Fatal(err)
	}
	if err := b.AddLong(2); err != nil {
		t.Fatal(err)
	}
	if err := b.AddDouble(1.5); err != nil {
		t.Fatal(err)
	}
	if err := b.AddString([]byte("api")); err != nil {
		t.Fatal(err)
	}
	pairs := []KV{{Key: "zz", Value: "1"}, {Key: "aa", Value: "2"}}
	hashes := SortAndComputeHashes(pairs)
	if err := b.AddSortedPairsAsMap(pairs, hashes); err != nil {
		t.Fatal(err)
	}
	want := b.Hash()
	if _, err := b.EndRecord(true); err != nil {
		t.Fatal(err)
	}

	r := NewReader(schema)
	var got int32
	var count int
	err = r.Records(b.CurrentContainer().TrimmedArray(), func(rec Record) error {
		count++
		got = rec.Hash()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
	if got != want {
		t.Fatalf("Record.Hash() = %#x, want %#x (rolling hash at EndRecord time)", got, want)
	}
}

func TestRecordAlignmentAndHeaderCoherence(t *testing.T) {
	schema := testSchema(t)
	b, err := NewBuilder(schema, HeapFactory{}, MinContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := b.StartNewRecord(); err != nil {
			t.Fatal(err)
		}
		if err := b.AddInt(int32(i)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddLong(int64(i)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddDouble(float64(i)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddString([]byte(fmt.Sprintf("job-%d", i))); err != nil {
			t.Fatal(err)
		}
		if err := b.AddSortedPairsAsMap(nil, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := b.EndRecord(true); err != nil {
			t.Fatal(err)
		}
		if b.curRecEndOffset%4 != 0 {
			t.Fatalf("record %d: curRecEndOffset %d not 4-aligned", i, b.curRecEndOffset)
		}
		if b.cur.length() != b.curRecEndOffset-containerHeaderLen {
			t.Fatalf("record %d: container header length mismatch", i)
		}
	}
}

func TestContainerOverflowMigratesPartialRecord(t *testing.T) {
	schema := testSchema(t)
	b, err := NewBuilder(schema, HeapFactory{}, MinContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for i := 0; i < 200; i++ {
		if err := b.StartNewRecord(); err != nil {
			t.Fatal(err)
		}
		if err := b.AddInt(int32(i)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddLong(int64(i)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddDouble(float64(i)); err != nil {
			t.Fatal(err)
		}
		s := fmt.Sprintf("job-number-%d-padding-to-about-fifty-bytes-yes", i)
		if err := b.AddString([]byte(s)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddSortedPairsAsMap(nil, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := b.EndRecord(true); err != nil {
			t.Fatal(err)
		}
		total++
	}
	containers := b.AllContainers()
	if len(containers) < 2 {
		t.Fatalf("expected overflow into >= 2 containers, got %d", len(containers))
	}
	r := NewReader(schema)
	seen := 0
	for _, c := range containers {
		if err := r.Records(c.TrimmedArray(), func(rec Record) error {
			seen++
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if seen != total {
		t.Fatalf("expected %d records across containers, saw %d", total, seen)
	}
}

func TestStartNewRecordBeforeEndIsFieldOrderViolation(t *testing.T) {
	schema := testSchema(t)
	b, err := NewBuilder(schema, HeapFactory{}, MinContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.StartNewRecord(); err != nil {
		t.Fatal(err)
	}
	err = b.StartNewRecord()
	if err == nil {
		t.Fatal("expected FieldOrderViolation")
	}
	var fov *queryerr.FieldOrderViolation
	if !errors.As(err, &fov) {
		t.Fatalf("expected FieldOrderViolation, got %T: %v", err, err)
	}
}

func TestShardKeyHashCommutesUnderOrder(t *testing.T) {
	h1 := ShardKeyHash([]string{"ws", "ns"}, []string{"prod", "payments"})
	h2 := ShardKeyHash([]string{"ns", "ws"}, []string{"payments", "prod"})
	if h1 != h2 {
		t.Fatalf("ShardKeyHash order-dependent: %d != %d", h1, h2)
	}

	pairs := []KV{{Key: "ws", Value: "prod"}, {Key: "ns", Value: "payments"}}
	hashes := SortAndComputeHashes(pairs)
	want, ok := CombineHashIncluding(pairs, hashes, []string{"ws", "ns"})
	if !ok {
		t.Fatal("CombineHashIncluding: expected ok")
	}
	if h1 != want {
		t.Fatalf("ShardKeyHash cross-check failed: %d != %d", h1, want)
	}
}

func TestShardKeyHashDeterministic(t *testing.T) {
	a := ShardKeyHash([]string{"job", "instance"}, []string{"api", "i-1"})
	b := ShardKeyHash([]string{"job", "instance"}, []string{"api", "i-1"})
	if a != b {
		t.Fatalf("ShardKeyHash not deterministic: %d != %d", a, b)
	}
}
