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

package topology

// BackendRef is a non-owning reference into a session's backend
// sequence: a plain index, never an independently reference-counted
// handle. This avoids use-after-close when a backend is torn down
// mid-session.
type BackendRef int

// NoBackend is the sentinel for "no current reference" (e.g. no
// current master yet).
const NoBackend BackendRef = -1

func (r BackendRef) IsSet() bool { return r != NoBackend }
