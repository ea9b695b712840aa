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

package config

import (
	"fmt"
	"strings"

	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// RuleOptions are the per-filter pattern-compilation options.
type RuleOptions struct {
	CaseSensitive     bool
	ExtendedWhitespace bool
}

// HintFilterRaw is the as-configured (uncompiled) form of one hint
// filter instance.
type HintFilterRaw struct {
	// Legacy form.
	Match  string
	Server string

	// Indexed form: parallel slices, index i is matchNN/targetNN for NN=i+1.
	Matches []string
	Targets []string

	Options RuleOptions
	User    string
	Source  string // IPv4 with up to three '%' octet wildcards.
}

// Validate rejects configurations that mix the legacy match/server
// form with the indexed matchNN/targetNN form.
func (r *HintFilterRaw) Validate() error {
	legacySet := r.Match != "" || r.Server != ""
	indexedSet := len(r.Matches) > 0 || len(r.Targets) > 0
	if legacySet && indexedSet {
		return vterrors.New(vterrors.ConfigError, "hint filter: legacy match/server and indexed matchNN/targetNN cannot both be set")
	}
	if !legacySet && !indexedSet {
		return vterrors.New(vterrors.ConfigError, "hint filter: no match/target rules configured")
	}
	if indexedSet && len(r.Matches) != len(r.Targets) {
		return vterrors.New(vterrors.ConfigError, "hint filter: matchNN/targetNN count mismatch (%d matches, %d targets)", len(r.Matches), len(r.Targets))
	}
	if len(r.Matches) > 99 {
		return vterrors.New(vterrors.ConfigError, "hint filter: at most 99 indexed match/target pairs are supported, got %d", len(r.Matches))
	}
	return nil
}

// RulePairs returns the configured (pattern, targets) pairs in
// configuration order, generating the indexed parameter names (match01
// etc.) on the fly rather than from a precomputed global array.
func (r *HintFilterRaw) RulePairs() []RulePair {
	if r.Match != "" || r.Server != "" {
		return []RulePair{{Name: "match", Pattern: r.Match, Targets: splitTargets(r.Server)}}
	}
	pairs := make([]RulePair, 0, len(r.Matches))
	for i := range r.Matches {
		pairs = append(pairs, RulePair{
			Name:    fmt.Sprintf("match%02d", i+1),
			Pattern: r.Matches[i],
			Targets: splitTargets(r.Targets[i]),
		})
	}
	return pairs
}

// splitTargets parses a rule's comma-separated target list into its
// individual tokens, each a configured server name or a reserved
// ->master/->slave/->all token.
func splitTargets(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RulePair is one compiled-pattern-to-targets configuration entry.
type RulePair struct {
	Name    string
	Pattern string
	Targets []string
}
