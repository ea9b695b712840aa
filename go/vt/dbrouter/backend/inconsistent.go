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

package backend

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// InconsistentSet tracks, for one session, which (position, backend)
// pairs have already been logged as diverging, so a single session
// command replayed across many backends doesn't spam the log once per
// backend per position.
type InconsistentSet struct {
	seen map[uint64]struct{}
}

// NewInconsistentSet constructs an empty set.
func NewInconsistentSet() *InconsistentSet {
	return &InconsistentSet{seen: make(map[uint64]struct{})}
}

func key(position uint64, backendName string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.FormatUint(position, 10))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(backendName)
	return h.Sum64()
}

// MarkSeen records the pair and reports whether it was already
// present.
func (s *InconsistentSet) MarkSeen(position uint64, backendName string) (alreadySeen bool) {
	k := key(position, backendName)
	_, alreadySeen = s.seen[k]
	s.seen[k] = struct{}{}
	return alreadySeen
}
