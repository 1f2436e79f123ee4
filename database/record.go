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
	"net"
	"strconv"

	"radiance/swarm/types"
	"radiance/util"
)

// Callers build a VALUES tuple for one row and push it straight onto the
// matching queue's buffer; the next FlushAll wraps everything currently
// buffered into one INSERT statement per queue.

func writeInt64[T ~int64 | ~int | ~uint64 | ~uint32 | ~uint16 | ~uint8](buf *bytes.Buffer, v T) {
	var tmp [20]byte
	buf.Write(strconv.AppendInt(tmp[:0], int64(v), 10))
}

// writeQuoted writes a single-quoted, backslash-escaped SQL string literal
// for raw (possibly binary) bytes - ipv4/ipv6/peer_id columns hold raw
// binary, not hex, so this has to survive arbitrary byte values.
func writeQuoted(buf *bytes.Buffer, b []byte) {
	buf.WriteByte('\'')

	for _, c := range b {
		switch c {
		case '\'', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case 0:
			buf.WriteString(`\0`)
		default:
			buf.WriteByte(c)
		}
	}

	buf.WriteByte('\'')
}

func (db *Database) RecordUser(userID uint32, creditedUp, creditedDown, rawUp, rawDown int64) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, creditedUp)
	buf.WriteByte(',')
	writeInt64(buf, creditedDown)
	buf.WriteByte(',')
	writeInt64(buf, rawUp)
	buf.WriteByte(',')
	writeInt64(buf, rawDown)
	buf.WriteByte(')')

	db.usersQueue.Append(buf.Bytes())
}

func (db *Database) RecordTorrent(torrentID uint32, seeders, leechers int, snatched uint8, balance int64) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	writeInt64(buf, seeders)
	buf.WriteByte(',')
	writeInt64(buf, leechers)
	buf.WriteByte(',')
	writeInt64(buf, snatched)
	buf.WriteByte(',')
	writeInt64(buf, balance)
	buf.WriteByte(')')

	db.torrentsQueue.Append(buf.Bytes())
}

// RecordPeerHeavy writes the full peer row, used on the first record for
// a peer or whenever its ip/port/useragent changed. Column order matches
// peersHeavyHeader in flush.go.
func (db *Database) RecordPeerHeavy(userID, torrentID uint32, active bool, uploaded, downloaded uint64,
	upspeed, downspeed int64, left, corrupt uint64, timespent, firstAnnounced, lastAnnounced int64,
	announced uint64, ipv4, ipv6 net.IP, port uint16, peerID types.PeerID, useragent string) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	buf.WriteString(util.Btoa(active))
	buf.WriteByte(',')
	writeInt64(buf, uploaded)
	buf.WriteByte(',')
	writeInt64(buf, downloaded)
	buf.WriteByte(',')
	writeInt64(buf, upspeed)
	buf.WriteByte(',')
	writeInt64(buf, downspeed)
	buf.WriteByte(',')
	writeInt64(buf, left)
	buf.WriteByte(',')
	writeInt64(buf, corrupt)
	buf.WriteByte(',')
	writeInt64(buf, timespent)
	buf.WriteByte(',')
	writeInt64(buf, firstAnnounced)
	buf.WriteByte(',')
	writeInt64(buf, lastAnnounced)
	buf.WriteByte(',')
	writeInt64(buf, announced)
	buf.WriteByte(',')
	writeQuoted(buf, ipv4)
	buf.WriteByte(',')
	writeQuoted(buf, ipv6)
	buf.WriteByte(',')
	writeInt64(buf, port)
	buf.WriteByte(',')
	writeQuoted(buf, peerID[:])
	buf.WriteByte(',')
	writeQuoted(buf, []byte(useragent))
	buf.WriteByte(')')

	db.peersQueue.Append(buf.Bytes())
}

// RecordPeerLight writes the heartbeat form - same row without
// re-sending ip/port/useragent.
func (db *Database) RecordPeerLight(userID, torrentID uint32, timespent, lastAnnounced int64, announced uint64, peerID types.PeerID) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	writeInt64(buf, timespent)
	buf.WriteByte(',')
	writeInt64(buf, lastAnnounced)
	buf.WriteByte(',')
	writeInt64(buf, announced)
	buf.WriteByte(',')
	writeQuoted(buf, peerID[:])
	buf.WriteByte(')')

	db.peersQueue.Append(buf.Bytes())
}

// RecordPeerHistory writes one row whenever a peer's real upload or
// download delta is greater than zero.
func (db *Database) RecordPeerHistory(userID, torrentID uint32, downloaded, remaining, uploaded uint64,
	upspeed, downspeed, timespent, now int64, peerID types.PeerID, ipv4, ipv6 net.IP) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, downloaded)
	buf.WriteByte(',')
	writeInt64(buf, remaining)
	buf.WriteByte(',')
	writeInt64(buf, uploaded)
	buf.WriteByte(',')
	writeInt64(buf, upspeed)
	buf.WriteByte(',')
	writeInt64(buf, downspeed)
	buf.WriteByte(',')
	writeInt64(buf, timespent)
	buf.WriteByte(',')
	writeQuoted(buf, peerID[:])
	buf.WriteByte(',')
	writeQuoted(buf, ipv4)
	buf.WriteByte(',')
	writeQuoted(buf, ipv6)
	buf.WriteByte(',')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	writeInt64(buf, now)
	buf.WriteByte(')')

	db.peerHistoryQueue.Append(buf.Bytes())
}

func (db *Database) RecordSnatch(userID, torrentID uint32, now int64, ipv4, ipv6 net.IP) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	writeInt64(buf, now)
	buf.WriteByte(',')
	writeQuoted(buf, ipv4)
	buf.WriteByte(',')
	writeQuoted(buf, ipv6)
	buf.WriteByte(')')

	db.snatchesQueue.Append(buf.Bytes())
}

func (db *Database) RecordToken(userID, torrentID uint32, downloaded, uploaded uint64) {
	buf := db.bufferPool.Take()
	defer db.bufferPool.Give(buf)

	buf.WriteByte('(')
	writeInt64(buf, userID)
	buf.WriteByte(',')
	writeInt64(buf, torrentID)
	buf.WriteByte(',')
	writeInt64(buf, downloaded)
	buf.WriteByte(',')
	writeInt64(buf, uploaded)
	buf.WriteByte(')')

	db.tokensQueue.Append(buf.Bytes())
}
