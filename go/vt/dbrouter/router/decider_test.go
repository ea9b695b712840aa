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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
)

func baseConfig() config.Service {
	return config.Service{UseSQLVariablesIn: config.VariablesInAll}
}

func TestDecidePinnedAlwaysMaster(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Pinned:         true,
		Config:         baseConfig(),
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

func TestDecideSessionWriteGoesToAll(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.SessionWrite},
		Config:         baseConfig(),
	})
	assert.True(t, tgt.Bits.Has(BitAll))
}

func TestDecideAutocommitToggleGoesToAll(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.EnableAutocommit},
		Config:         baseConfig(),
	})
	assert.True(t, tgt.Bits.Has(BitAll))
}

func TestDecidePlainReadGoesToSlave(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Config:         baseConfig(),
	})
	assert.Equal(t, BitSlave, tgt.Bits)
}

func TestDecideReadOnlyTransactionPinsToSlave(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		TxState:        TxActiveReadOnly,
		Config:         baseConfig(),
	})
	assert.Equal(t, BitSlave, tgt.Bits)
}

func TestDecideWriteGoesToMaster(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Write},
		Config:         baseConfig(),
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

func TestDecideExplicitTransactionPinsToMaster(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		TxState:        TxActiveReadWrite,
		Config:         baseConfig(),
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

// A route-to-master hint overrides a read classification.
func TestHintRouteToMasterOverridesRead(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Hints:          statement.Hints{{Kind: statement.HintRouteToMaster}},
		Config:         baseConfig(),
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

func TestHintRouteToSlaveOverridesWrite(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Write},
		Hints:          statement.Hints{{Kind: statement.HintRouteToSlave}},
		Config:         baseConfig(),
	})
	assert.True(t, tgt.Bits.Has(BitSlave))
	assert.False(t, tgt.Bits.Has(BitMaster))
}

func TestHintNamedServerRecordsName(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Hints:          statement.Hints{{Kind: statement.HintNamedServer, Target: "server3"}},
		Config:         baseConfig(),
	})
	assert.True(t, tgt.Bits.Has(BitNamedServer))
	assert.Equal(t, "server3", tgt.NamedServer)
}

func TestHintMaxLagRecordsCeiling(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Hints:          statement.Hints{{Kind: statement.HintMaxSlaveReplicationLag, MaxLagSeconds: 5}},
		Config:         baseConfig(),
	})
	assert.True(t, tgt.Bits.Has(BitRlagMax))
	assert.Equal(t, 5, tgt.MaxLagSeconds)
}

func TestHintRouteToAllIsIgnoredNotImplemented(t *testing.T) {
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.Read},
		Hints:          statement.Hints{{Kind: statement.HintRouteToAll}},
		Config:         baseConfig(),
	})
	// Falls back to the base decision (slave for a plain read); the
	// hint itself has no effect.
	assert.Equal(t, BitSlave, tgt.Bits)
}

func TestUserVarReadRoutesToSlaveOnlyWhenVarsInAll(t *testing.T) {
	cfg := baseConfig()
	cfg.UseSQLVariablesIn = config.VariablesInMaster
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.UserVarRead},
		Config:         cfg,
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

func TestUserVarWriteGoesToAllOnlyWhenVarsInAll(t *testing.T) {
	cfg := baseConfig()
	cfg.UseSQLVariablesIn = config.VariablesInMaster
	tgt := Decide(Input{
		Classification: statement.Classification{Flags: statement.UserVarWrite},
		Config:         cfg,
	})
	assert.Equal(t, BitMaster, tgt.Bits)
}

// TestDecideFullTargetShapes cross-checks the whole Target value, not
// just Bits, for inputs where NamedServer/MaxLagSeconds matter. Warning
// is cleared before comparing.
func TestDecideFullTargetShapes(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Target
	}{
		{
			name: "named server hint on a read",
			in: Input{
				Classification: statement.Classification{Flags: statement.Read},
				Hints:          statement.Hints{{Kind: statement.HintNamedServer, Target: "server7"}},
				Config:         baseConfig(),
			},
			want: Target{Bits: BitSlave | BitNamedServer, NamedServer: "server7"},
		},
		{
			name: "max lag hint on a read",
			in: Input{
				Classification: statement.Classification{Flags: statement.Read},
				Hints:          statement.Hints{{Kind: statement.HintMaxSlaveReplicationLag, MaxLagSeconds: 10}},
				Config:         baseConfig(),
			},
			want: Target{Bits: BitSlave | BitRlagMax, MaxLagSeconds: 10},
		},
		{
			name: "plain write",
			in: Input{
				Classification: statement.Classification{Flags: statement.Write},
				Config:         baseConfig(),
			},
			want: Target{Bits: BitMaster},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Decide(c.in)
			got.Warning = "" // populated opportunistically, not part of the shape under test here
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
