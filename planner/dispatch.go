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
	"encoding/binary"
	"sync/atomic"

	"github.com/dchest/siphash"

	"github.com/chronodb/qplan/exec"
)

// prngKey0/prngKey1 are the fixed keys mixed into the splittable
// dispatcher-pick source below; arbitrary but fixed.
const (
	prngKey0 = uint64(0x5d1ec810)
	prngKey1 = uint64(0xfebed702)
)

var tickCounter uint64

// nextTick advances a process-wide splittable PRNG by mixing a
// monotonic counter through siphash. This intentionally reuses the
// teacher's siphash-for-load-spreading idiom rather than math/rand:
// the pick only needs to spread load across dispatchers, not resist
// prediction, and a keyed hash of an incrementing counter is cheap
// and requires no per-call locking beyond the atomic increment.
func nextTick() uint64 {
	n := atomic.AddUint64(&tickCounter, 1)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return siphash.Hash(prngKey0, prngKey1, buf[:])
}

// pickDispatcher collects the distinct dispatchers serving children
// and returns one chosen uniformly at random from that set via
// nextTick. Distinctness is by PlanDispatcher.String(), since that is
// the stable identity PlanDispatcher documents. Returns nil if
// children is empty or every child has a nil dispatcher.
func pickDispatcher(children []exec.ExecPlan) exec.PlanDispatcher {
	seen := map[string]exec.PlanDispatcher{}
	var order []string
	for _, c := range children {
		d := c.Dispatcher()
		if d == nil {
			continue
		}
		key := d.String()
		if _, ok := seen[key]; !ok {
			seen[key] = d
			order = append(order, key)
		}
	}
	if len(order) == 0 {
		return nil
	}
	idx := int(nextTick() % uint64(len(order)))
	return seen[order[idx]]
}
