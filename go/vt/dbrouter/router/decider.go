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

package router

import (
	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/log"
)

// TxState is the session's transaction state.
type TxState int

const (
	TxInactive TxState = iota
	TxActiveReadWrite
	TxActiveReadOnly
	TxEnding
)

func (t TxState) IsReadOnly() bool { return t == TxActiveReadOnly || t == TxEnding }
func (t TxState) IsActive() bool   { return t != TxInactive }

// LoadDataState is the LOAD DATA LOCAL INFILE sub-state machine.
type LoadDataState int

const (
	LoadDataInactive LoadDataState = iota
	LoadDataStart
	LoadDataActive
	LoadDataEnd
)

// Input bundles everything the decider reads. It never mutates any of
// its fields.
type Input struct {
	Classification statement.Classification
	Hints          statement.Hints
	TxState        TxState
	LoadData       LoadDataState
	Config         config.Service
	// Pinned is true when target_node == current_master, handled as the
	// first row of the decision table.
	Pinned bool
}

// Decide runs the routing decision table top-down, first match wins,
// then overlays the hint list on the result.
func Decide(in Input) Target {
	t := decideBase(in)
	return overlayHints(t, in.Hints)
}

func decideBase(in Input) Target {
	f := in.Classification.Flags

	// Row 1: target_node == current_master.
	if in.Pinned {
		return Target{Bits: BitMaster}
	}

	// Row 2: session-state-affecting statements must reach every backend.
	if in.LoadData == LoadDataInactive && sessionAffecting(f, in.Config.UseSQLVariablesIn) {
		target := Target{Bits: BitAll}
		if f.Any(statement.Read) && !f.IsPrepare() {
			target.Bits |= BitMaster
			target.Warning = "session-affecting statement also flagged read-type; replaying to all and routing to master"
		}
		return target
	}

	// Row 3: plain reads outside a transaction go to a slave.
	if !in.TxState.IsActive() && in.LoadData == LoadDataInactive &&
		!f.Has(statement.MasterRead) && !f.Has(statement.Write) && !f.IsPrepare() &&
		readEligible(f, in.Config.UseSQLVariablesIn) {
		return Target{Bits: BitSlave}
	}

	// Row 4: read-only transactions pin to a single slave.
	if in.TxState.IsReadOnly() {
		return Target{Bits: BitSlave}
	}

	// Row 5: otherwise, master.
	return Target{Bits: BitMaster}
}

// sessionAffecting matches row 2 of the decision table.
func sessionAffecting(f statement.Flags, varsIn config.UseSQLVariablesIn) bool {
	if f.Has(statement.SessionWrite) {
		return true
	}
	if f.Has(statement.UserVarWrite) && varsIn == config.VariablesInAll {
		return true
	}
	if f.Has(statement.GlobalSysvarWrite) {
		return true
	}
	if f.Any(statement.EnableAutocommit | statement.DisableAutocommit) {
		return true
	}
	return false
}

// readEligible matches row 3's read-type flag set.
func readEligible(f statement.Flags, varsIn config.UseSQLVariablesIn) bool {
	if f.Has(statement.Read) || f.Has(statement.ShowTables) || f.Has(statement.SessionSysvarRead) || f.Has(statement.GlobalSysvarRead) {
		return true
	}
	if f.Has(statement.UserVarRead) && varsIn == config.VariablesInAll {
		return true
	}
	return false
}

// overlayHints applies hint precedence on top of the base decision:
// route-to-master forces master and stops; route-to-slave forces
// slave; route-to-named-server adds the named-server flag;
// max_slave_replication_lag records a ceiling. route-to-all and
// route-to-uptodate-server are recognized, logged on each occurrence,
// and otherwise ignored rather than routed (fail closed).
func overlayHints(t Target, hints statement.Hints) Target {
	for _, h := range hints {
		switch h.Kind {
		case statement.HintRouteToMaster:
			return Target{Bits: BitMaster}
		case statement.HintRouteToSlave:
			t.Bits = (t.Bits &^ BitMaster) | BitSlave
		case statement.HintNamedServer:
			t.Bits |= BitNamedServer
			t.NamedServer = h.Target
		case statement.HintMaxSlaveReplicationLag:
			t.Bits |= BitRlagMax
			t.MaxLagSeconds = h.MaxLagSeconds
		case statement.HintRouteToAll, statement.HintRouteToUpToDateServer:
			log.Warningf("hint kind %v is not implemented; ignoring", h.Kind)
		}
	}
	return t
}
