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

// Package exec defines the physical plan tree the planner builds and
// that a PlanDispatcher ultimately executes. Everything below the
// "dispatch" boundary — the actor/RPC transport, the scan engine that
// produces row/column batches — is an external collaborator named
// only by its interface (PlanDispatcher below).
package exec

import "context"

// QueryResponse is the opaque result of dispatching an ExecPlan.
// Dispatch-layer failures (timeouts, connection errors) are embedded
// here rather than returned as a Go error from Dispatch, matching the
// spec's policy that the planner never inspects them.
type QueryResponse struct {
	Err  error
	Data interface{}
}

// PlanDispatcher is the transport endpoint capable of executing an
// ExecPlan subtree. Dispatch ships plan to the endpoint; delivery is
// at-most-once per call, and failures are surfaced inside the
// returned QueryResponse rather than as the error return, which is
// reserved for failures to even attempt dispatch (e.g. a canceled
// context).
//
// This is the one "dispatch(plan) -> response" contract this package
// consumes from the actor/RPC transport; everything else about that
// transport is out of scope.
type PlanDispatcher interface {
	Dispatch(ctx context.Context, plan ExecPlan) (QueryResponse, error)

	// String returns a stable, comparable identity for this
	// dispatcher (e.g. "coordinator-addr:port"), used by the
	// planner to deduplicate children that share a dispatcher.
	String() string
}
