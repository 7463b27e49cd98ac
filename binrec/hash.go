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
	"sort"

	"golang.org/x/exp/slices"
)

// KV is an unordered key/value pair prior to sorting; Pairs passed to
// SortAndComputeHashes are sorted in place and then hashed.
type KV struct {
	Key, Value string
}

// hash32 is the canonical byte-exact string hash used throughout this
// package (map keys, partition-key fields, shard-key hashing). It must
// produce the same result on every platform and every process: it is
// the FNV-1a 32-bit hash, chosen because it has no endianness or
// padding dependence and is trivial to reproduce in any language.
//
// This is the one piece of the record builder that stays on
// hand-rolled arithmetic instead of a third-party hash library.
func hash32(b []byte) int32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime32
	}
	return int32(h)
}

// Hash32 exposes hash32 for callers outside the package that need to
// fold an arbitrary byte string into the same space as partition-key
// field hashes (e.g. a caller hashing a column value before it is
// written with AddString).
func Hash32(b []byte) int32 { return hash32(b) }

func stringHash(s string) int32 { return hash32([]byte(s)) }

// combinedHash folds a single key/value pair into one hash value.
func combinedHash(k, v string) int32 {
	return 31*stringHash(k) + stringHash(v)
}

// CombineHash folds two previously computed hashes into one, per the
// rolling-hash contract: h = 31*h1 + h2.
func CombineHash(h1, h2 int32) int32 {
	return 31*h1 + h2
}

// SortAndComputeHashes sorts pairs in place by key UTF-8 byte order
// and returns, for each pair in the new order, combinedHash(k, v).
// The returned slice has the same length and order as the (now
// sorted) pairs slice.
func SortAndComputeHashes(pairs []KV) []int32 {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	hashes := make([]int32, len(pairs))
	for i := range pairs {
		hashes[i] = combinedHash(pairs[i].Key, pairs[i].Value)
	}
	return hashes
}

// CombineHashIncluding folds, starting from the rolling-hash initial
// value (7), the hashes of every pair whose key is present in
// includeKeys, visited in sortedPairs order. It returns (hash, true)
// only if every key in includeKeys was encountered exactly once;
// otherwise it returns (0, false), signaling to the caller that the
// input set did not match the requested key set.
func CombineHashIncluding(sortedPairs []KV, hashes []int32, includeKeys []string) (int32, bool) {
	include := make(map[string]bool, len(includeKeys))
	for _, k := range includeKeys {
		include[k] = true
	}
	seen := make(map[string]bool, len(include))
	h := int32(7)
	for i := range sortedPairs {
		k := sortedPairs[i].Key
		if !include[k] {
			continue
		}
		if seen[k] {
			return 0, false
		}
		seen[k] = true
		h = CombineHash(h, hashes[i])
	}
	if len(seen) != len(include) {
		return 0, false
	}
	return h, true
}

// CombineHashExcluding folds, starting from 7, every hash whose pair's
// key is NOT present in excludeKeys, visited in sortedPairs order.
func CombineHashExcluding(sortedPairs []KV, hashes []int32, excludeKeys []string) int32 {
	exclude := make(map[string]bool, len(excludeKeys))
	for _, k := range excludeKeys {
		exclude[k] = true
	}
	h := int32(7)
	for i := range sortedPairs {
		if !exclude[sortedPairs[i].Key] {
			h = CombineHash(h, hashes[i])
		}
	}
	return h
}

// ShardKeyHash computes the routing hash for a dataset's shard-key
// columns and their equality-filter values. This is the contract the
// planner's shard resolver and the ingest path must agree on
// byte-for-byte: same cols/vals (in any order) must always produce
// the same hash, on any platform, in any process.
//
// ShardKeyHash panics if cols and vals are not the same length, since
// that is a caller programming error, not a data-dependent condition.
func ShardKeyHash(cols, vals []string) int32 {
	if len(cols) != len(vals) {
		panic("binrec: ShardKeyHash: cols and vals have different lengths")
	}
	pairs := make([]KV, len(cols))
	for i := range cols {
		pairs[i] = KV{Key: cols[i], Value: vals[i]}
	}
	hashes := SortAndComputeHashes(pairs)
	h, ok := CombineHashIncluding(pairs, hashes, slices.Clone(cols))
	if !ok {
		// cols was built from the same pairs we just hashed, so
		// every key is necessarily present exactly once unless the
		// caller passed duplicate column names.
		panic("binrec: ShardKeyHash: duplicate shard-key column name")
	}
	return h
}
