/*
 * This file is part of Radiance.
 *
 * Radiance is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Radiance is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Radiance.  If not, see <http://www.gnu.org/licenses/>.
 */

package database

import (
	"bytes"
	"sync"
	"sync/atomic"

	"radiance/util"
)

// Queue is one of the six persistence queues: a growing record buffer
// that writers append pre-quoted VALUES tuples to,
// and a FIFO of fully-built SQL statements a drain worker executes one at
// a time. maxPending is 0 for every queue except peers, which caps at
// 1000 and drops the oldest pending statement on overflow.
type Queue struct {
	Name string

	bufMu      sync.Mutex
	buf        *bytes.Buffer
	tupleCount int

	pendingMu sync.Mutex
	pending   [][]byte

	active atomic.Bool

	maxPending int

	bufferPool *util.BufferPool
}

func NewQueue(name string, maxPending int, bufferPool *util.BufferPool) *Queue {
	return &Queue{
		Name:       name,
		buf:        bufferPool.Take(),
		maxPending: maxPending,
		bufferPool: bufferPool,
	}
}

// Append adds a pre-quoted "(...)" VALUES tuple to the record buffer.
// Callers build the tuple themselves (strconv.Append* into a buffer taken
// from the shared pool) so Queue stays agnostic of row shape.
func (q *Queue) Append(tuple []byte) {
	q.bufMu.Lock()
	defer q.bufMu.Unlock()

	if q.tupleCount > 0 {
		q.buf.WriteByte(',')
	}

	q.buf.Write(tuple)
	q.tupleCount++
}

// drainBuffer takes the current buffer contents and count, resetting the
// buffer, without building a statement — callers combine this with a
// query-specific header/footer to get the full SQL text.
func (q *Queue) drainBuffer() (body []byte, count int) {
	q.bufMu.Lock()
	defer q.bufMu.Unlock()

	if q.tupleCount == 0 {
		return nil, 0
	}

	body = append([]byte(nil), q.buf.Bytes()...)
	count = q.tupleCount

	q.buf.Reset()
	q.tupleCount = 0

	return body, count
}

// PushStatement enqueues a fully-built SQL statement, applying the
// peer-queue's drop-oldest backpressure when maxPending is set.
func (q *Queue) PushStatement(stmt []byte) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	q.pending = append(q.pending, stmt)

	if q.maxPending > 0 && len(q.pending) > q.maxPending {
		q.pending = q.pending[1:]
	}
}

func (q *Queue) peekStatement() ([]byte, bool) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}

	return q.pending[0], true
}

func (q *Queue) popStatement() {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if len(q.pending) > 0 {
		q.pending = q.pending[1:]
	}
}

func (q *Queue) PendingLen() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	return len(q.pending)
}

// TryActivate flips the active flag false->true, reporting whether this
// caller won the race to spawn a drain worker.
func (q *Queue) TryActivate() bool {
	return q.active.CompareAndSwap(false, true)
}

func (q *Queue) Deactivate() {
	q.active.Store(false)
}
