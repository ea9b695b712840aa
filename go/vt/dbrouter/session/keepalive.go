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
	"time"

	"github.com/gaodevops/dbrouter/go/vt/dbrouter/backend"
	"github.com/gaodevops/dbrouter/go/vt/log"
)

// pingPacket is the payload sent to keep an idle backend connection
// from being reclaimed by the server side; it expects no reply.
var pingPacket = []byte{0x0e}

// keepalive pings every in-use backend that is not currently waiting
// on a reply and has been idle longer than connection_keepalive. A
// backend just dispatched to is excluded automatically: it is waiting
// on a reply at this point in the call sequence.
func (r *Router) keepalive() {
	if r.cfg.ConnectionKeepalive <= 0 {
		return
	}
	for _, b := range r.backends {
		if !b.InUse() || b.IsWaitingResult() {
			continue
		}
		if time.Since(b.LastRead()) < r.cfg.ConnectionKeepalive {
			continue
		}
		if ok, err := b.Write(pingPacket, backend.NoResponse, false); err != nil || !ok {
			log.Warningf("session %s: keepalive ping to %s failed: %v", r.ID, b.Server.UniqueName, err)
			b.Close()
			continue
		}
		b.Touch()
	}
}
