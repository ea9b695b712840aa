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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
)

type fakeSink struct {
	writes   [][]byte
	failNext bool
}

func (f *fakeSink) Write(buffer []byte, collectFullResponse bool) error {
	if f.failNext {
		return errors.New("write failed")
	}
	f.writes = append(f.writes, buffer)
	return nil
}

func newTestBackend() (*Backend, *fakeSink) {
	sink := &fakeSink{}
	srv := topology.NewServer("server1", "10.0.0.1", 3306)
	return New(srv, sink), sink
}

func TestWriteTransitionsReplyState(t *testing.T) {
	b, sink := newTestBackend()
	require.Equal(t, ReplyDone, b.ReplyState())

	ok, err := b.Write([]byte("SELECT 1"), ExpectResponse, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ReplyStart, b.ReplyState())
	assert.True(t, b.IsWaitingResult())
	assert.Len(t, sink.writes, 1)
}

func TestWriteNoResponseDoesNotBlockBackend(t *testing.T) {
	b, _ := newTestBackend()
	ok, err := b.Write([]byte("COM_PING"), NoResponse, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, b.IsWaitingResult())
	assert.Equal(t, ReplyDone, b.ReplyState())
}

func TestWriteFailurePropagates(t *testing.T) {
	b, sink := newTestBackend()
	sink.failNext = true
	ok, err := b.Write([]byte("x"), ExpectResponse, false)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReplyDone, b.ReplyState())
}

func TestSessionCommandFIFOOrder(t *testing.T) {
	b, sink := newTestBackend()
	c1 := &statement.SessionCommand{Buffer: []byte("SET a=1"), Position: 1}
	c2 := &statement.SessionCommand{Buffer: []byte("SET b=2"), Position: 2}

	b.AppendSessionCommand(c1)
	b.AppendSessionCommand(c2)

	pos, ok := b.HeadPosition()
	require.True(t, ok)
	assert.Equal(t, uint64(1), pos)

	dispatched, err := b.ExecuteSessionCommand()
	require.NoError(t, err)
	assert.True(t, dispatched)
	assert.Equal(t, ReplyStart, b.ReplyState())
	require.Len(t, sink.writes, 1)
	assert.Equal(t, c1.Buffer, sink.writes[0])

	// Backend is busy: a second dispatch attempt is a no-op until the
	// reply completes.
	dispatched, err = b.ExecuteSessionCommand()
	require.NoError(t, err)
	assert.False(t, dispatched)

	b.SetReplyState(ReplyDone)
	b.PopSessionCommand()
	pos, ok = b.HeadPosition()
	require.True(t, ok)
	assert.Equal(t, uint64(2), pos)
}

func TestCloseDropsQueueAndMarksUnused(t *testing.T) {
	b, _ := newTestBackend()
	b.AppendSessionCommand(&statement.SessionCommand{Buffer: []byte("SET a=1"), Position: 1})
	b.Close()
	assert.False(t, b.InUse())
	_, ok := b.HeadPosition()
	assert.False(t, ok)
}

func TestIsWaitingResultInvariant(t *testing.T) {
	b, _ := newTestBackend()
	for _, s := range []ReplyState{ReplyStart, ReplyHeader, ReplyRows, ReplyEnd} {
		b.SetReplyState(s)
		assert.True(t, b.IsWaitingResult(), "state %v should be waiting", s)
	}
	b.SetReplyState(ReplyDone)
	assert.False(t, b.IsWaitingResult())
}

func TestInconsistentSetDedupesPerPositionAndBackend(t *testing.T) {
	set := NewInconsistentSet()
	assert.False(t, set.MarkSeen(1, "server2"))
	assert.True(t, set.MarkSeen(1, "server2"))
	assert.False(t, set.MarkSeen(1, "server3"))
	assert.False(t, set.MarkSeen(2, "server2"))
}
