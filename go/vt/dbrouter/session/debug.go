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
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
)

// DebugStatus renders a human-readable snapshot of every backend this
// session owns, for an admin console or a support bundle.
func (r *Router) DebugStatus() string {
	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"server", "role", "in use", "reply state", "pending sescmds", "lag (s)"})

	for i, b := range r.backends {
		role := "slave"
		switch {
		case b.Server.IsMaster():
			role = "master"
		case b.Server.IsRelayServer():
			role = "relay"
		}
		lag := b.Server.ReplicationLagSeconds()
		lagStr := "unknown"
		if lag >= 0 {
			lagStr = fmt.Sprintf("%d", lag)
		}
		marker := ""
		if topology.BackendRef(i) == r.currentMaster {
			marker = " (current master)"
		} else if topology.BackendRef(i) == r.targetNode {
			marker = " (pinned)"
		}
		table.Append([]string{
			b.Server.UniqueName + marker,
			role,
			fmt.Sprintf("%v", b.InUse()),
			b.ReplyState().String(),
			fmt.Sprintf("%d", b.QueueLen()),
			lagStr,
		})
	}
	table.Render()
	return buf.String()
}
