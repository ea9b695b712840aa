/*
Copyright 2026 The DB Router Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

import (
	"bytes"

	"github.com/gaodevops/dbrouter/go/vt/dbrouter/backend"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
	"github.com/gaodevops/dbrouter/go/vt/log"
	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// routeSessionWrite replays a session-affecting statement on every
// in-use backend so that a later slave selection sees consistent
// session state. Only the first backend's reply reaches the client;
// the rest are compared for divergence as they arrive.
func (r *Router) routeSessionWrite(buffer []byte, collectFullResponse bool) error {
	r.sescmdCount++
	cmd := &statement.SessionCommand{
		Buffer:              buffer,
		Position:            r.sescmdCount,
		CollectFullResponse: collectFullResponse,
	}

	if r.cfg.MaxSescmdHistory > 0 && !r.historyDisabled && r.sescmdCount >= uint64(r.cfg.MaxSescmdHistory) {
		r.historyDisabled = true
		r.sescmdLog = nil
		log.Warningf("session %s: session command history reached %d entries, history disabled for the remainder of the session", r.ID, r.sescmdCount)
	}
	if !r.historyDisabled && !r.cfg.DisableSescmdHistory {
		r.sescmdLog = append(r.sescmdLog, cmd)
	}

	// A backend that is still busy keeps the command queued and runs it
	// once its current reply completes; that still counts as accepted.
	accepted := false
	for i, b := range r.backends {
		if !b.InUse() {
			continue
		}
		b.AppendSessionCommand(cmd)
		ok, err := b.ExecuteSessionCommand()
		if err != nil {
			log.Warningf("session %s: session command dispatch to %s failed: %v", r.ID, b.Server.UniqueName, err)
			b.Close()
			continue
		}
		accepted = true
		if ok {
			r.bumpExpected(1)
			r.markAwaitingSescmd(topology.BackendRef(i))
		}
	}
	if !accepted {
		return vterrors.New(vterrors.NoSuitableBackend, "no backend accepted session command at position %d", cmd.Position)
	}
	return nil
}

// HandleReply delivers one packet of a backend's reply. final marks the
// packet that completes the reply (the point the reply state machine
// returns to done). Replies to a replayed session command are
// demultiplexed rather than forwarded as-is; every other reply goes
// straight to the client.
func (r *Router) HandleReply(backendIdx int, data []byte, final bool) error {
	idx := topology.BackendRef(backendIdx)
	if !idx.IsSet() || int(idx) >= len(r.backends) {
		return vterrors.New(vterrors.NoSuitableBackend, "reply from unknown backend %d", backendIdx)
	}
	b := r.backends[idx]
	b.Touch()

	if r.isAwaitingSescmd(idx) {
		if !final {
			return nil
		}
		return r.finishSescmdReply(idx, b, data)
	}

	if final {
		r.bumpExpected(-1)
	}
	return r.codec.ClientWrite(r.ID, data)
}

// finishSescmdReply resolves one backend's completed session-command
// reply: the first backend to answer at a given position sets the
// authoritative bytes and is forwarded to the client; every later
// backend at that position is compared against it.
func (r *Router) finishSescmdReply(idx topology.BackendRef, b *backend.Backend, data []byte) error {
	pos, ok := b.HeadPosition()
	if !ok {
		return vterrors.New(vterrors.SescmdDivergence, "reply with no queued session command on %s", b.Server.UniqueName)
	}
	b.PopSessionCommand()
	r.clearAwaitingSescmd(idx)
	r.bumpExpected(-1)

	if authoritative, seen := r.sescmdResponses[pos]; seen {
		if !bytes.Equal(authoritative, data) {
			if !r.inconsistent.MarkSeen(pos, b.Server.UniqueName) {
				b.MarkInconsistent()
				log.Warningf("session %s: backend %s diverged from the authoritative session command reply at position %d", r.ID, b.Server.UniqueName, pos)
			}
		}
	} else {
		r.sescmdResponses[pos] = data
		if err := r.codec.ClientWrite(r.ID, data); err != nil {
			return err
		}
	}
	r.pruneSescmdResponses()

	if dispatched, err := b.ExecuteSessionCommand(); err != nil {
		b.Close()
	} else if dispatched {
		r.bumpExpected(1)
		r.markAwaitingSescmd(idx)
	}
	return nil
}

// pruneSescmdResponses drops authoritative replies no in-use backend's
// queue can still be compared against.
func (r *Router) pruneSescmdResponses() {
	lowest := uint64(0)
	found := false
	for _, b := range r.backends {
		if !b.InUse() {
			continue
		}
		if pos, ok := b.HeadPosition(); ok {
			if !found || pos < lowest {
				lowest = pos
				found = true
			}
		}
	}
	for k := range r.sescmdResponses {
		if !found || k < lowest {
			delete(r.sescmdResponses, k)
		}
	}
}

// HandleConnectionClosed tells the router a backend's transport died.
// Any reply it owed is treated as never arriving; if it held the
// master or pin references, those clear too.
func (r *Router) HandleConnectionClosed(backendIdx int) error {
	idx := topology.BackendRef(backendIdx)
	if !idx.IsSet() || int(idx) >= len(r.backends) {
		return vterrors.New(vterrors.NoSuitableBackend, "connection closed for unknown backend %d", backendIdx)
	}
	b := r.backends[idx]
	wasWaiting := b.IsWaitingResult()
	b.Close()
	r.clearAwaitingSescmd(idx)
	if idx == r.currentMaster {
		r.currentMaster = topology.NoBackend
	}
	if idx == r.targetNode {
		r.clearPin()
	}
	if wasWaiting {
		r.bumpExpected(-1)
	}
	return nil
}
