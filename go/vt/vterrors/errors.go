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

package vterrors

import "fmt"

// ClientErrorCode is the code surfaced to the client over client_error.
type ClientErrorCode uint16

// Codes reserved by this core for client_error. Real wire-level codes
// belong to the (out of scope) codec; these are the ones this core
// itself originates.
const (
	CodeReadOnly          ClientErrorCode = 1290 // ER_OPTION_PREVENTS_STATEMENT-style read-only error
	CodeNoValidMaster     ClientErrorCode = 1047
	CodeReplicationLag    ClientErrorCode = 1048
	CodeMasterChanged     ClientErrorCode = 1049
	CodeConfig            ClientErrorCode = 1050
)

// RouterError is the error type returned out of the routing core. It is
// always a value, never panicked, per the "not propagated as
// exceptions" requirement.
type RouterError struct {
	State   State
	Message string
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("%s: %s", e.State, e.Message)
}

// ErrorState implements ErrorWithState.
func (e *RouterError) ErrorState() State {
	return e.State
}

// New builds a RouterError.
func New(state State, format string, args ...interface{}) *RouterError {
	return &RouterError{State: state, Message: fmt.Sprintf(format, args...)}
}

// NoValidMasterError, ReplicationLagExceededError, and MasterChangedError
// are the three canonical no-suitable-backend messages.
func NoValidMasterError() *RouterError {
	return New(NoSuitableBackend, "could not find a valid master")
}

func ReplicationLagExceededError() *RouterError {
	return New(NoSuitableBackend, "replication lag exceeded")
}

func MasterChangedError(from, to string) *RouterError {
	return New(NoSuitableBackend, "master server changed from %s to %s", from, to)
}

// ReadOnlyError is returned to the client when master_failure_mode is
// error-on-write and a write is attempted with no valid master.
func ReadOnlyError() *RouterError {
	return New(NoSuitableBackend, "server is read-only: no master connection is available")
}
