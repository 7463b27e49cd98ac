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
	"fmt"
	"io"

	"github.com/chronodb/qplan/exec"
)

// WriteGraphviz dumps the exec plan rooted at root to dst as
// dot(1)-compatible text: one dot node per exec node, labeled with the
// node's String() and, when it has one, its dispatcher as an xlabel,
// plus an edge from each child to its parent. No subgraph clusters are
// emitted.
func WriteGraphviz(root exec.ExecPlan, dst io.Writer) error {
	if _, err := io.WriteString(dst, "digraph plan {\n"); err != nil {
		return err
	}
	if _, err := gv(root, dst, 0); err != nil {
		return err
	}
	_, err := io.WriteString(dst, "}\n")
	return err
}

func gv(n exec.ExecPlan, dst io.Writer, id int) (int, error) {
	self := id
	if _, err := fmt.Fprintf(dst, "n%d [label=%q];\n", self, n.String()); err != nil {
		return id, err
	}
	if d := n.Dispatcher(); d != nil {
		if _, err := fmt.Fprintf(dst, "n%d [xlabel=%q];\n", self, d.String()); err != nil {
			return id, err
		}
	}
	next := id + 1
	for _, c := range n.Children() {
		childID := next
		var err error
		next, err = gv(c, dst, next)
		if err != nil {
			return next, err
		}
		if _, err := fmt.Fprintf(dst, "n%d -> n%d;\n", childID, self); err != nil {
			return next, err
		}
	}
	return next, nil
}
