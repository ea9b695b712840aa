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

// Package config binds the per-service-instance routing settings onto
// a pflag.FlagSet, layered with viper so they can also come from a
// config file or environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// SlaveSelectionCriteria selects the comparator used to pick among
// acceptable slave backends.
type SlaveSelectionCriteria string

const (
	LeastConnections       SlaveSelectionCriteria = "least-connections"
	LeastBehindMaster      SlaveSelectionCriteria = "least-behind-master"
	LeastRouterConnections SlaveSelectionCriteria = "least-router-connections"
	LeastGlobalConnections SlaveSelectionCriteria = "least-global-connections"
	AdaptiveRouting        SlaveSelectionCriteria = "adaptive-routing"
)

// UseSQLVariablesIn controls which backends see user-variable reads.
type UseSQLVariablesIn string

const (
	VariablesInAll    UseSQLVariablesIn = "all"
	VariablesInMaster UseSQLVariablesIn = "master"
)

// MasterFailureMode controls how writes behave with no valid master.
type MasterFailureMode string

const (
	FailInstantly MasterFailureMode = "fail-instantly"
	FailOnWrite   MasterFailureMode = "fail-on-write"
	ErrorOnWrite  MasterFailureMode = "error-on-write"
)

// Service holds the routing settings for one routed service instance.
type Service struct {
	SlaveSelectionCriteria SlaveSelectionCriteria
	UseSQLVariablesIn      UseSQLVariablesIn
	MasterFailureMode      MasterFailureMode
	MasterAcceptReads      bool
	StrictMultiStmt        bool
	StrictSPCalls          bool
	RetryFailedReads       bool
	DisableSescmdHistory   bool
	MaxSescmdHistory       int
	ConnectionKeepalive    time.Duration
}

// RegisterFlags installs the service's flags on fs and binds them
// through v so a config file or environment variable can also set them.
func RegisterFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("slave-selection-criteria", string(LeastConnections), "comparator used to pick among acceptable slave backends")
	fs.String("use-sql-variables-in", string(VariablesInAll), "which backends see user-variable reads: all or master")
	fs.String("master-failure-mode", string(FailInstantly), "behavior on write with no valid master: fail-instantly, fail-on-write, error-on-write")
	fs.Bool("master-accept-reads", false, "let the current master compete with the slaves as a candidate for reads")
	fs.Bool("strict-multi-stmt", false, "keep the session pinned to master after a multi-statement packet, instead of releasing the pin once that packet is dispatched")
	fs.Bool("strict-sp-calls", false, "keep the session pinned to master after a stored procedure call, instead of releasing the pin once that call is dispatched")
	fs.Bool("retry-failed-reads", true, "retry a failed read on another slave using the stored statement")
	fs.Bool("disable-sescmd-history", false, "never record session commands for slave rejoin")
	fs.Int("max-sescmd-history", 0, "number of session commands retained before history is forcibly disabled (0 disables the ceiling)")
	fs.Duration("connection-keepalive", 0, "ping idle backends after this long (0 disables)")

	_ = v.BindPFlags(fs)
}

// Load reads the bound settings out of v and validates them.
func Load(v *viper.Viper) (*Service, error) {
	s := &Service{
		SlaveSelectionCriteria: SlaveSelectionCriteria(v.GetString("slave-selection-criteria")),
		UseSQLVariablesIn:      UseSQLVariablesIn(v.GetString("use-sql-variables-in")),
		MasterFailureMode:      MasterFailureMode(v.GetString("master-failure-mode")),
		MasterAcceptReads:      v.GetBool("master-accept-reads"),
		StrictMultiStmt:        v.GetBool("strict-multi-stmt"),
		StrictSPCalls:          v.GetBool("strict-sp-calls"),
		RetryFailedReads:       v.GetBool("retry-failed-reads"),
		DisableSescmdHistory:   v.GetBool("disable-sescmd-history"),
		MaxSescmdHistory:       v.GetInt("max-sescmd-history"),
		ConnectionKeepalive:    v.GetDuration("connection-keepalive"),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) validate() error {
	switch s.SlaveSelectionCriteria {
	case LeastConnections, LeastBehindMaster, LeastRouterConnections, LeastGlobalConnections, AdaptiveRouting:
	default:
		return vterrors.New(vterrors.ConfigError, "unknown slave_selection_criteria %q", s.SlaveSelectionCriteria)
	}
	switch s.UseSQLVariablesIn {
	case VariablesInAll, VariablesInMaster:
	default:
		return vterrors.New(vterrors.ConfigError, "unknown use_sql_variables_in %q", s.UseSQLVariablesIn)
	}
	switch s.MasterFailureMode {
	case FailInstantly, FailOnWrite, ErrorOnWrite:
	default:
		return vterrors.New(vterrors.ConfigError, "unknown master_failure_mode %q", s.MasterFailureMode)
	}
	if s.MaxSescmdHistory < 0 {
		return vterrors.New(vterrors.ConfigError, "max_sescmd_history must be >= 0, got %d", s.MaxSescmdHistory)
	}
	if s.ConnectionKeepalive < 0 {
		return vterrors.New(vterrors.ConfigError, "connection_keepalive must be >= 0, got %s", s.ConnectionKeepalive)
	}
	return nil
}

func (s *Service) String() string {
	return fmt.Sprintf("slave_selection_criteria=%s use_sql_variables_in=%s master_failure_mode=%s", s.SlaveSelectionCriteria, s.UseSQLVariablesIn, s.MasterFailureMode)
}
