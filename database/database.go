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

// Package database is the tracker's write-behind persistence pipeline:
// per-entity record buffers, FIFO queues of built SQL statements, a fixed
// connection pool, and the bulk loaders that populate a swarm.Store at
// startup. It never blocks the announce/scrape path on a live query;
// every mutation is buffered and drained by a background worker.
package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"radiance/config"
	"radiance/log"
	"radiance/swarm"
	"radiance/util"

	"github.com/go-sql-driver/mysql"
)

// QueryResult is the tri-state outcome of a single SQL execution (spec
// §9's "result variant {Ok, TransientError, FatalError}"): Ok means the
// caller should pop the statement and move on, TransientError means
// retry the same statement after a pause, FatalError means give up on
// this statement (pop it) without retrying but without aborting the
// worker itself.
type QueryResult int

const (
	ResultOk QueryResult = iota
	ResultTransient
	ResultFatal
)

// classify maps a MySQL driver error to a QueryResult. Deadlock (1213)
// and lock-wait-timeout (1205) are the transient cases that the original
// tracker retries; anything else executing against a live connection is
// treated as fatal for that one statement.
func classify(err error) QueryResult {
	if err == nil {
		return ResultOk
	}

	var merr *mysql.MySQLError
	if errors.As(err, &merr) && (merr.Number == 1213 || merr.Number == 1205) {
		return ResultTransient
	}

	return ResultFatal
}

type Database struct {
	Store   *swarm.Store
	Options *swarm.Options

	pool *Pool

	bufferPool *util.BufferPool

	usersQueue       *Queue
	torrentsQueue    *Queue
	peersQueue       *Queue
	peerHistoryQueue *Queue
	snatchesQueue    *Queue
	tokensQueue      *Queue

	terminate atomic.Bool
	waitGroup sync.WaitGroup
}

func New(store *swarm.Store, options *swarm.Options) *Database {
	dbConfig := config.Section("database")
	poolSize := dbConfig.GetInt("mysql_connections", 8)

	channelsConfig := config.Section("channels")
	peerQueueCap := channelsConfig.GetInt("peer", 1000)

	bufferPool := util.NewBufferPool(128)

	db := &Database{
		Store:            store,
		Options:          options,
		pool:             NewPool(poolSize),
		bufferPool:       bufferPool,
		usersQueue:       NewQueue("users", 0, bufferPool),
		torrentsQueue:    NewQueue("torrents", 0, bufferPool),
		peersQueue:       NewQueue("peers", peerQueueCap, bufferPool),
		peerHistoryQueue: NewQueue("peer_history", 0, bufferPool),
		snatchesQueue:    NewQueue("snatches", 0, bufferPool),
		tokensQueue:      NewQueue("tokens", 0, bufferPool),
	}

	log.Info.Print("loading initial data from database...")
	db.LoadAll()

	return db
}

// Terminate drains every queue (blocking until each drain worker sees its
// queue empty) and closes the pool. Callers should stop the scheduler's
// flush ticks before calling this.
func (db *Database) Terminate() {
	db.terminate.Store(true)

	for {
		db.FlushAll()

		empty := true

		for _, q := range db.allQueues() {
			if q.PendingLen() > 0 || q.active.Load() {
				empty = false
			}
		}

		if empty {
			break
		}

		time.Sleep(grabPollInterval)
	}

	db.waitGroup.Wait()

	if err := db.pool.Close(); err != nil {
		log.Error.Printf("error closing database pool: %s", err)
	}
}

// QueueLengths reports each queue's pending statement count, keyed by
// queue name, for the report verb's "db" action.
func (db *Database) QueueLengths() map[string]int {
	lengths := make(map[string]int, 6)

	for _, q := range db.allQueues() {
		lengths[q.Name] = q.PendingLen()
	}

	return lengths
}

// UnPrune clears a torrent's pruned flag in the database. Called in its
// own goroutine from the announce path once the in-memory Status has
// already been reset, so a second concurrent call racing it is harmless -
// the column only ever moves from pruned to active here.
func (db *Database) UnPrune(torrentID uint32) {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	stmt := []byte("UPDATE torrents SET Status=0 WHERE ID=" + strconv.FormatUint(uint64(torrentID), 10))

	if _, err := db.execWithRetry(conn, stmt); err != nil {
		slog.Error("unprune failed", "torrent", torrentID, "err", err)
	}
}

// execWithRetry runs stmt on conn and classifies the result; it does not
// itself retry — callers (drain workers) own the retry loop so they can
// release the connection between attempts.
func (db *Database) execWithRetry(conn *sql.DB, stmt []byte) (sql.Result, error) {
	result, err := conn.Exec(string(stmt))

	switch classify(err) {
	case ResultOk:
		return result, nil
	case ResultTransient:
		return nil, err
	default: // ResultFatal
		slog.Error("fatal SQL error, dropping statement", "err", err)
		log.WriteStack()

		return nil, errFatal
	}
}

var errFatal = errors.New("fatal SQL error")
