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

package statement

// SessionCommand is an opaque statement buffer that must be replayed
// on every backend so later slave selections stay semantically valid.
// It is immutable once queued.
type SessionCommand struct {
	Buffer   []byte
	Position uint64
	// CollectFullResponse asks the codec to buffer the complete
	// response before handing it back, used for prepare replies.
	CollectFullResponse bool
}
