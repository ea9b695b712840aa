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

// ReplyState is the linear reply-state machine a backend's response
// moves through: done -> start -> (header -> rows ->)* end -> done. It
// is advanced by the (out of scope) wire-protocol codec; this core
// only consumes the transition into ReplyDone as the "reply complete"
// signal.
type ReplyState int

const (
	ReplyDone ReplyState = iota
	ReplyStart
	ReplyHeader
	ReplyRows
	ReplyEnd
)

func (s ReplyState) String() string {
	switch s {
	case ReplyDone:
		return "done"
	case ReplyStart:
		return "start"
	case ReplyHeader:
		return "header"
	case ReplyRows:
		return "rows"
	case ReplyEnd:
		return "end"
	default:
		return "unknown"
	}
}
