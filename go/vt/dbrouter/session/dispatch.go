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
	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/backend"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/router"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/log"
	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// PacketMeta carries what HandlePacket needs beyond the raw bytes: the
// classifier's output, the client identity the hint filter gates on,
// and the SQL text the hint filter matches against.
type PacketMeta struct {
	Classification statement.Classification
	Hints          statement.Hints
	SQL            string
	User           string
	ClientIP       string
}

// HandlePacket runs the single-statement dispatch algorithm for one
// client packet: temp-table and multi-statement bookkeeping, the route
// decision, the dispatch itself, and keepalive housekeeping.
func (r *Router) HandlePacket(buffer []byte, meta PacketMeta) error {
	class := meta.Classification
	hints := r.resolveHints(meta)

	var err error

	if class.IsEmpty {
		// Step 1: an empty packet terminates LOAD DATA LOCAL INFILE. It
		// goes straight to master, bypassing the route decider, but
		// still runs the shared tail below (keepalive, load-data
		// bookkeeping) rather than returning early.
		if r.loadData == router.LoadDataActive {
			r.loadData = router.LoadDataEnd
		}
		err = r.dispatchTo(r.CurrentMaster(), buffer, class, router.Target{Bits: router.BitMaster}, false)
	} else {
		// Step 2: a LOAD DATA statement opens the streamed sub-state.
		if class.IsLoadDataStart {
			r.loadData = router.LoadDataStart
			r.loadDataBytes = 0
		}

		// Step 3: temp tables live only on the master.
		if class.ReadsTempTable != "" {
			if _, ok := r.haveTmpTables[class.ReadsTempTable]; ok {
				class.Flags |= statement.MasterRead
			}
		}
		if class.CreatesTempTable != "" {
			r.haveTmpTables[class.CreatesTempTable] = struct{}{}
		}

		// Step 4: multi-statement packets and stored-procedure calls
		// must reach a single backend atomically.
		pinnedHere := class.IsMultiStatement || class.Flags.Has(statement.ExecuteStatement)
		if pinnedHere {
			if master := r.CurrentMaster(); master != nil {
				r.pinTo(master)
			} else {
				class.Flags |= statement.Write
			}
		}

		// Step 5: ask the route decider.
		target := router.Decide(router.Input{
			Classification: class,
			Hints:          hints,
			TxState:        r.txState,
			LoadData:       r.loadData,
			Config:         r.cfg,
			Pinned:         r.targetNode.IsSet() && r.targetNode == r.currentMaster,
		})
		if target.Warning != "" {
			log.Warningf("session %s: %s", r.ID, target.Warning)
		}

		diverted := len(hints) > 0

		// Track read-only-transaction pinning: entering pins on the first
		// statement, ending clears it.
		r.trackTransactionState(class.Flags)

		switch {
		case target.Bits.Has(router.BitAll):
			err = r.routeSessionWrite(buffer, class.Flags.IsPrepare())
			r.recordDispatch(true, diverted)
		case target.Bits.Has(router.BitNamedServer) || target.Bits.Has(router.BitRlagMax):
			err = r.dispatchByHint(buffer, class, target, diverted)
		case target.Bits.Has(router.BitSlave):
			err = r.dispatchToSlave(buffer, class, target, diverted)
		default:
			err = r.dispatchToMaster(buffer, class, diverted)
		}

		// In the default relaxed mode, the pin set above for this one
		// multi-statement packet or stored-procedure call is released
		// as soon as its own dispatch completes, rather than held for
		// the rest of the session; strict_multi_stmt/strict_sp_calls
		// keep it until the read-only-trx pin logic or a connection
		// close clears it instead.
		if pinnedHere && r.targetNode.IsSet() && r.targetNode == r.currentMaster {
			releaseMultiStmt := class.IsMultiStatement && !r.cfg.StrictMultiStmt
			releaseSPCall := class.Flags.Has(statement.ExecuteStatement) && !r.cfg.StrictSPCalls
			if releaseMultiStmt || releaseSPCall {
				r.clearPin()
			}
		}

		// The COMMIT/ROLLBACK that ends a read-only transaction has now
		// been dispatched to the pinned slave: the transaction is over.
		if r.txState == router.TxEnding {
			r.SetTransactionState(router.TxInactive)
		}
	}

	// Step 7: keepalive runs after every dispatch decision, including
	// the empty-packet/LOAD-DATA-end case above.
	r.keepalive()

	if class.IsLoadDataStart || r.loadData == router.LoadDataActive {
		if r.loadData == router.LoadDataStart {
			r.loadData = router.LoadDataActive
		}
		r.loadDataBytes += int64(len(buffer))
	}
	if class.IsEmpty && r.loadData == router.LoadDataEnd {
		r.loadData = router.LoadDataInactive
	}

	return err
}

// resolveHints runs the hint filter, if one is configured and active
// for this session, over the statement's own hints.
func (r *Router) resolveHints(meta PacketMeta) statement.Hints {
	if r.hint == nil || !r.hint.IsActive(meta.User, meta.ClientIP) {
		return meta.Hints
	}
	return r.hint.Apply(meta.SQL, meta.Hints)
}

// trackTransactionState moves a read-only transaction to TxEnding on
// COMMIT/ROLLBACK. The pin itself is set by dispatchToSlave on the
// transaction's first statement and cleared by HandlePacket once the
// ending statement has been dispatched.
func (r *Router) trackTransactionState(f statement.Flags) {
	switch {
	case f.Has(statement.BeginTrx):
		// The actual read-only-ness is carried by the classifier; a
		// caller that knows this begins a read-only transaction sets
		// txState directly via SetTransactionState.
	case f.Has(statement.Commit), f.Has(statement.Rollback):
		if r.txState == router.TxActiveReadOnly {
			r.txState = router.TxEnding
		}
	}
}

// SetTransactionState lets the caller (which has visibility into
// `START TRANSACTION READ ONLY` vs a plain BEGIN) drive the
// transaction sub-state machine explicitly.
func (r *Router) SetTransactionState(s router.TxState) {
	if s == router.TxInactive && r.txState == router.TxActiveReadOnly {
		r.clearPin()
	}
	r.txState = s
	if s == router.TxInactive {
		r.clearPin()
	}
}

func (r *Router) dispatchToMaster(buffer []byte, class statement.Classification, diverted bool) error {
	master := r.CurrentMaster()
	if master == nil || !master.InUse() || !master.Server.IsMaster() {
		return r.handleNoMaster(class)
	}
	return r.dispatchTo(master, buffer, class, router.Target{Bits: router.BitMaster}, diverted)
}

func (r *Router) handleNoMaster(class statement.Classification) error {
	err := r.noMasterError()
	switch r.cfg.MasterFailureMode {
	case config.FailInstantly:
		return err
	case config.FailOnWrite:
		if class.Flags.Has(statement.Write) {
			return err
		}
		return nil
	case config.ErrorOnWrite:
		if class.Flags.Has(statement.Write) {
			if old := r.CurrentMaster(); old != nil {
				old.Close()
			}
			_ = r.codec.ClientError(r.ID, uint16(vterrors.CodeReadOnly), vterrors.ReadOnlyError().Error())
			return nil
		}
		return nil
	default:
		return err
	}
}

// noMasterError distinguishes a failover (a different backend has
// since taken over as master) from there being no master connection
// available at all, matching the two distinct descriptive messages
// this condition requires.
func (r *Router) noMasterError() error {
	if repl, ok := r.findMaster(); ok && repl.Server.UniqueName != r.masterName {
		log.Warningf("session %s: master server changed from %q to %q", r.ID, r.masterName, repl.Server.UniqueName)
		return vterrors.MasterChangedError(r.masterName, repl.Server.UniqueName)
	}
	return vterrors.NoValidMasterError()
}

func (r *Router) dispatchToSlave(buffer []byte, class statement.Classification, target router.Target, diverted bool) error {
	var b *backend.Backend
	if r.targetNode.IsSet() {
		if pinned := r.backends[r.targetNode]; pinned.InUse() {
			b = pinned
		} else {
			r.clearPin()
		}
	}
	if b == nil {
		selected, err := r.selectBackend(roleSlave, nil, nil)
		if err != nil {
			return err
		}
		b = selected
		if r.txState.IsReadOnly() {
			r.pinTo(b)
		}
	}
	if r.cfg.RetryFailedReads {
		r.retryStatement = buffer
	}
	return r.dispatchTo(b, buffer, class, target, diverted)
}

func (r *Router) dispatchByHint(buffer []byte, class statement.Classification, target router.Target, diverted bool) error {
	var name *string
	if target.Bits.Has(router.BitNamedServer) {
		name = &target.NamedServer
	}
	var ceiling *int
	if target.Bits.Has(router.BitRlagMax) {
		ceiling = &target.MaxLagSeconds
	}
	b, err := r.selectBackend(roleSlave, name, ceiling)
	if err != nil {
		return err
	}
	return r.dispatchTo(b, buffer, class, target, diverted)
}

func (r *Router) dispatchTo(b *backend.Backend, buffer []byte, class statement.Classification, target router.Target, diverted bool) error {
	if b == nil {
		return r.handleNoMaster(class)
	}
	collect := class.Flags.IsPrepare()
	ok, err := b.Write(buffer, backend.ExpectResponse, collect)
	if err != nil || !ok {
		if err == nil {
			err = vterrors.New(vterrors.BackendWriteFailure, "write rejected by %s", b.Server.UniqueName)
		}
		return r.handleBackendWriteFailure(b, buffer, class, err)
	}
	r.bumpExpected(1)
	r.recordDispatch(target.Bits.Has(router.BitMaster), diverted)
	r.noteBackendUsed(r.backendIndex(b))
	return nil
}

func (r *Router) handleBackendWriteFailure(b *backend.Backend, buffer []byte, class statement.Classification, cause error) error {
	log.Warningf("session %s: backend %s write failed: %v", r.ID, b.Server.UniqueName, cause)
	b.Close()
	if !class.Flags.Has(statement.Write) && r.cfg.RetryFailedReads && r.retryStatement != nil {
		retry, err := r.selectBackend(roleSlave, nil, nil)
		if err != nil {
			return err
		}
		return r.dispatchTo(retry, buffer, class, router.Target{Bits: router.BitSlave}, false)
	}
	return vterrors.New(vterrors.BackendWriteFailure, "%v", cause)
}
