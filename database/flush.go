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
	"errors"
	"log/slog"
	"time"

	"radiance/collectors"
)

// These templates are reproduced verbatim from the companion site's
// schema expectations; the ON DUPLICATE KEY UPDATE clauses are load-bearing
// and must not be simplified.
const (
	usersHeader = "INSERT INTO users_main (ID, Uploaded, Downloaded, UploadedDaily, DownloadedDaily) VALUES "
	usersFooter = " ON DUPLICATE KEY UPDATE Uploaded=Uploaded+VALUES(Uploaded), " +
		"Downloaded=Downloaded+VALUES(Downloaded), UploadedDaily=UploadedDaily+VALUES(UploadedDaily), " +
		"DownloadedDaily=DownloadedDaily+VALUES(DownloadedDaily)"

	torrentsHeader = "INSERT INTO torrents (ID,Seeders,Leechers,Snatched,Balance) VALUES "
	torrentsFooter = " ON DUPLICATE KEY UPDATE Seeders=VALUES(Seeders), Leechers=VALUES(Leechers), " +
		"Snatched=Snatched+VALUES(Snatched), Balance=VALUES(Balance), " +
		"last_action=IF(VALUES(Seeders)>0,NOW(),last_action)"

	peersHeavyHeader = "INSERT INTO xbt_files_users (uid,fid,active,uploaded,downloaded,upspeed,downspeed," +
		"remaining,corrupt,timespent,ctime,mtime,announced,ipv4,ipv6,port,peer_id,useragent) VALUES "
	peersHeavyFooter = " ON DUPLICATE KEY UPDATE active=VALUES(active), uploaded=VALUES(uploaded), " +
		"downloaded=VALUES(downloaded), upspeed=VALUES(upspeed), downspeed=VALUES(downspeed), " +
		"remaining=VALUES(remaining), corrupt=VALUES(corrupt), timespent=VALUES(timespent), " +
		"mtime=VALUES(mtime), announced=announced+VALUES(announced), ipv4=VALUES(ipv4), ipv6=VALUES(ipv6), " +
		"port=VALUES(port), useragent=VALUES(useragent)"

	peersLightHeader = "INSERT INTO xbt_files_users (uid,fid,timespent,mtime,announced,peer_id) VALUES "
	peersLightFooter = " ON DUPLICATE KEY UPDATE timespent=VALUES(timespent), mtime=VALUES(mtime), " +
		"announced=announced+VALUES(announced)"

	snatchesHeader = "INSERT INTO xbt_snatched (uid, fid, tstamp, ipv4, ipv6) VALUES "

	peerHistoryHeader = "INSERT IGNORE INTO xbt_peers_history (uid,downloaded,remaining,uploaded,upspeed," +
		"downspeed,timespent,peer_id,ipv4,ipv6,fid,mtime) VALUES "

	tokensHeader = "INSERT INTO users_freeleeches (UserID,TorrentID,Downloaded,Uploaded) VALUES "
	tokensFooter = " ON DUPLICATE KEY UPDATE Downloaded=Downloaded+VALUES(Downloaded), " +
		"Uploaded=Uploaded+VALUES(Uploaded)"

	// torrentsCleanupStmt drops the empty-info_hash row the torrents
	// upsert can leave behind; queued once per non-empty torrents flush.
	torrentsCleanupStmt = "DELETE FROM torrents WHERE info_hash=''"
)

// FlushAll wraps every non-empty queue's buffer into a statement and
// pushes it to that queue's pending FIFO, then ensures a drain worker is
// running for each queue that now has work. Flush order: users,
// torrents, snatches, peers, peer-history, tokens.
func (db *Database) FlushAll() {
	db.flushQueue(db.usersQueue, usersHeader, usersFooter)
	db.flushTorrentsQueue()
	db.flushQueue(db.snatchesQueue, snatchesHeader, "")
	db.flushPeersQueue()
	db.flushQueue(db.peerHistoryQueue, peerHistoryHeader, "")
	db.flushQueue(db.tokensQueue, tokensHeader, tokensFooter)

	for _, q := range db.allQueues() {
		db.ensureDrainWorker(q)
	}
}

func (db *Database) flushQueue(q *Queue, header, footer string) bool {
	start := time.Now()

	body, count := q.drainBuffer()
	if count == 0 {
		return false
	}

	stmt := make([]byte, 0, len(header)+len(body)+len(footer))
	stmt = append(stmt, header...)
	stmt = append(stmt, body...)
	stmt = append(stmt, footer...)

	q.PushStatement(stmt)

	collectors.ObserveFlushTime(q.Name, time.Since(start).Seconds())
	collectors.ObserveQueueLen(q.Name, q.PendingLen())

	return true
}

// flushTorrentsQueue is flushQueue for the torrents queue plus the
// companion cleanup statement every non-empty torrents upsert must be
// followed by.
func (db *Database) flushTorrentsQueue() {
	if !db.flushQueue(db.torrentsQueue, torrentsHeader, torrentsFooter) {
		return
	}

	db.torrentsQueue.PushStatement([]byte(torrentsCleanupStmt))
	collectors.ObserveQueueLen(db.torrentsQueue.Name, db.torrentsQueue.PendingLen())
}

// flushPeersQueue is like flushQueue but the peers queue mixes heavy and
// light tuples tagged by the writer; Append already wrote the full
// INSERT for each tuple rather than a bare VALUES tuple, so here we just
// drain whatever was written.
func (db *Database) flushPeersQueue() {
	body, count := db.peersQueue.drainBuffer()
	if count == 0 {
		return
	}

	db.peersQueue.PushStatement(body)

	collectors.ObserveQueueLen(db.peersQueue.Name, db.peersQueue.PendingLen())
}

func (db *Database) allQueues() []*Queue {
	return []*Queue{
		db.usersQueue,
		db.torrentsQueue,
		db.peersQueue,
		db.peerHistoryQueue,
		db.snatchesQueue,
		db.tokensQueue,
	}
}

// ensureDrainWorker spawns a drain goroutine for q if one is not already
// running and q has pending work.
func (db *Database) ensureDrainWorker(q *Queue) {
	if q.PendingLen() == 0 {
		return
	}

	if !q.TryActivate() {
		return
	}

	db.waitGroup.Add(1)

	go db.drain(q)
}

// retryInterval is the pause between transient-error retries; a package
// variable rather than a literal so tests can shrink it.
var retryInterval = 3 * time.Second

// drain borrows a connection, executes the statement at the front of the
// queue, and pops it on success or on a fatal (non-retryable) error; a
// transient error (deadlock, lock wait timeout) leaves it at the head
// and retries after retryInterval.
func (db *Database) drain(q *Queue) {
	defer db.waitGroup.Done()
	defer q.Deactivate()

	for {
		stmt, ok := q.peekStatement()
		if !ok {
			return
		}

		conn := db.pool.Grab()
		_, err := db.execWithRetry(conn, stmt)
		db.pool.Release(conn)

		if errors.Is(err, errFatal) {
			q.popStatement()
			continue
		}

		if err != nil {
			collectors.IncrementDeadlockCount()
			collectors.AddDeadlockTime(retryInterval.Seconds())

			slog.Error("flush failed, retrying", "err", err)
			time.Sleep(retryInterval)

			continue
		}

		q.popStatement()
	}
}
