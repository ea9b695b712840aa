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

// Package backend encapsulates one session's connection to a single
// server and correlates outbound writes with inbound replies. The
// transport itself (the TCP listener / wire codec) is out of scope;
// a Backend only ever sees a Sink to write bytes to.
package backend

import (
	"container/list"
	"time"

	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
	"github.com/gaodevops/dbrouter/go/vt/log"
	"github.com/gaodevops/dbrouter/go/vt/stats"
)

// ResponseExpectation says whether a write should expect a reply.
type ResponseExpectation int

const (
	NoResponse ResponseExpectation = iota
	ExpectResponse
)

// Sink is the writable transport this core hands bytes to. It is
// satisfied by whatever the wire codec constructs; this core never
// opens a socket itself. collectFullResponse asks the codec to buffer
// the complete response before handing it back, used for prepare
// replies.
type Sink interface {
	Write(buffer []byte, collectFullResponse bool) error
}

// Backend is a single logical connection to one database server,
// scoped to one client session.
type Backend struct {
	Server *topology.Server
	Sink   Sink

	inUse       bool
	lastRead    time.Time
	replyState  ReplyState
	sescmdQueue *list.List // of *statement.SessionCommand
	sescmdCount uint64

	// inconsistent is set when a session-command reply from this
	// backend diverged from the first backend's reply.
	inconsistent bool
}

// New constructs a Backend for the given server. Backends are
// constructed once per configured server when the session opens and
// are never reopened within that session.
func New(server *topology.Server, sink Sink) *Backend {
	b := &Backend{
		Server:      server,
		Sink:        sink,
		inUse:       true,
		replyState:  ReplyDone,
		sescmdQueue: list.New(),
		lastRead:    time.Now(),
	}
	stats.BackendUp.WithLabelValues(server.UniqueName).Set(1)
	return b
}

// Write hands bytes to the transport. On success with ExpectResponse,
// the reply state transitions done -> start. collectFullResponse asks
// the codec to buffer the complete reply before delivering it.
func (b *Backend) Write(buffer []byte, expect ResponseExpectation, collectFullResponse bool) (bool, error) {
	if err := b.Sink.Write(buffer, collectFullResponse); err != nil {
		return false, err
	}
	if expect == ExpectResponse {
		b.replyState = ReplyStart
	}
	return true, nil
}

// AppendSessionCommand pushes cmd to the FIFO.
func (b *Backend) AppendSessionCommand(cmd *statement.SessionCommand) {
	b.sescmdQueue.PushBack(cmd)
	b.sescmdCount++
}

// ExecuteSessionCommand writes the head of the FIFO, if the backend is
// idle. The head stays queued until PopSessionCommand removes it once
// its reply has arrived. Returns whether a command was dispatched.
func (b *Backend) ExecuteSessionCommand() (bool, error) {
	if b.replyState != ReplyDone {
		return false, nil
	}
	front := b.sescmdQueue.Front()
	if front == nil {
		return false, nil
	}
	cmd := front.Value.(*statement.SessionCommand)
	if _, err := b.Write(cmd.Buffer, ExpectResponse, cmd.CollectFullResponse); err != nil {
		return false, err
	}
	return true, nil
}

// HeadPosition returns the position of the FIFO head, used to compute
// lowest_pos across backends during session-write replay.
func (b *Backend) HeadPosition() (uint64, bool) {
	front := b.sescmdQueue.Front()
	if front == nil {
		return 0, false
	}
	return front.Value.(*statement.SessionCommand).Position, true
}

// QueueLen reports how many session commands are queued for replay.
func (b *Backend) QueueLen() int { return b.sescmdQueue.Len() }

// PopSessionCommand removes the FIFO head once its reply has arrived.
func (b *Backend) PopSessionCommand() {
	if front := b.sescmdQueue.Front(); front != nil {
		b.sescmdQueue.Remove(front)
	}
}

func (b *Backend) IsWaitingResult() bool   { return b.replyState != ReplyDone }
func (b *Backend) ReplyState() ReplyState  { return b.replyState }
func (b *Backend) SetReplyState(s ReplyState) {
	b.replyState = s
	if s == ReplyDone {
		b.lastRead = time.Now()
	}
}

func (b *Backend) InUse() bool   { return b.inUse }
func (b *Backend) LastRead() time.Time { return b.lastRead }
func (b *Backend) Touch()        { b.lastRead = time.Now() }

// MarkInconsistent records that this backend's session-command reply
// diverged from the authoritative (first) reply.
func (b *Backend) MarkInconsistent() {
	if !b.inconsistent {
		log.Warningf("backend %s marked inconsistent for the remainder of the session", b.Server.UniqueName)
	}
	b.inconsistent = true
}

func (b *Backend) IsInconsistent() bool { return b.inconsistent }

// Close marks the backend unusable, drops queued session commands, and
// delegates transport teardown to the caller. A Backend is never
// reopened after Close.
func (b *Backend) Close() {
	b.inUse = false
	b.sescmdQueue.Init()
	stats.BackendUp.WithLabelValues(b.Server.UniqueName).Set(0)
}
