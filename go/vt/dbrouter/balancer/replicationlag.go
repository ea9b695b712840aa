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

package balancer

import "github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"

// AcceptableLag reports whether a slave candidate's replication lag
// satisfies the optional max_slave_replication_lag ceiling: a slave is
// accepted only if lag is known and <= ceiling, or the ceiling is
// undefined.
func AcceptableLag(lagSeconds int64, ceiling *int) bool {
	if ceiling == nil {
		return true
	}
	if lagSeconds == topology.UnknownLag {
		return false
	}
	return lagSeconds <= int64(*ceiling)
}

// FilterAcceptableLag narrows candidates to those passing
// AcceptableLag, preserving order.
func FilterAcceptableLag(candidates []Candidate, ceiling *int) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if AcceptableLag(c.ReplicationLagSeconds, ceiling) {
			out = append(out, c)
		}
	}
	return out
}
