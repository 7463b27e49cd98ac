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

package shard

import (
	"context"
	"net"
	"time"

	"github.com/chronodb/qplan/exec"
)

// DialTimeout bounds how long ActorPlanDispatcher.Dispatch waits to
// establish the connection to its coordinator before giving up.
const DialTimeout = 3 * time.Second

// ActorPlanDispatcher implements exec.PlanDispatcher by shipping an
// ExecPlan subtree to a single coordinator over a plain TCP
// connection. The actual wire encoding of the plan and its response
// is left to Codec so tests can swap in an in-memory stub; production
// wiring plugs in the real actor-protocol codec.
type ActorPlanDispatcher struct {
	Coord CoordinatorEndpoint
	Codec Codec
	Dial  func(network, address string, timeout time.Duration) (net.Conn, error)
}

// Codec encodes an exec.ExecPlan onto a connection and decodes the
// resulting exec.QueryResponse from it.
type Codec interface {
	Send(conn net.Conn, plan exec.ExecPlan) error
	Receive(conn net.Conn) (exec.QueryResponse, error)
}

// NewActorPlanDispatcher builds a dispatcher bound to coord, using
// net.DialTimeout for its connection and no codec configured; set
// Codec before the first Dispatch call.
func NewActorPlanDispatcher(coord CoordinatorEndpoint) *ActorPlanDispatcher {
	return &ActorPlanDispatcher{
		Coord: coord,
		Dial:  net.DialTimeout,
	}
}

func (d *ActorPlanDispatcher) String() string { return d.Coord.String() }

// Dispatch implements exec.PlanDispatcher. It is responsible only for
// getting plan to the coordinator and a response back; dispatch-layer
// failures (a refused connection, a coordinator-side error) are
// returned inside the QueryResponse, not as the error return, which
// is reserved for a context that is already canceled when Dispatch is
// called; ctx is not consulted after that check.
func (d *ActorPlanDispatcher) Dispatch(ctx context.Context, plan exec.ExecPlan) (exec.QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return exec.QueryResponse{}, err
	}
	conn, err := d.Dial("tcp", d.Coord.Addr, DialTimeout)
	if err != nil {
		return exec.QueryResponse{Err: err}, nil
	}
	defer conn.Close()

	if err := d.Codec.Send(conn, plan); err != nil {
		return exec.QueryResponse{Err: err}, nil
	}
	resp, err := d.Codec.Receive(conn)
	if err != nil {
		return exec.QueryResponse{Err: err}, nil
	}
	return resp, nil
}
