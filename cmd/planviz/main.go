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

// Command planviz loads a YAML logical-plan/shard-map fixture,
// materializes it, and prints the resulting exec plan as a tree or as
// Graphviz dot source.
package main

import (
	"flag"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/chronodb/qplan/planner"
)

func main() {
	graphviz := flag.Bool("graphviz", false, "print dot(1) source instead of an indented tree")
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: planviz [-graphviz] <fixture.yaml>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't read %q: %s\n", args[0], err)
		os.Exit(1)
	}

	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		fmt.Fprintf(os.Stderr, "can't parse %q: %s\n", args[0], err)
		os.Exit(1)
	}

	plan, opts, err := f.toQueryOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root, err := planner.Materialize(plan, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "materialize: %s\n", err)
		os.Exit(1)
	}

	if *graphviz {
		if err := planner.WriteGraphviz(root, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(root.PrintTree())
}
