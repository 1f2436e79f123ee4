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

package types

import (
	"sync"
	"sync/atomic"
)

// TokenSlot is a per-user per-torrent promotional grant, valid until the
// given unix timestamps (spec: "Token").
type TokenSlot struct {
	FreeLeechUntil  int64
	DoubleSeedUntil int64
}

// Expired reports whether both grants in the slot have passed.
func (s TokenSlot) Expired(now int64) bool {
	return s.FreeLeechUntil < now && s.DoubleSeedUntil < now
}

// Torrent is identified by its 20-byte info-hash, the in-memory primary key.
// Peers field access (Seeders/Leechers/cursors/TokenedUsers/Paused) is
// guarded by the torrent's own PeerMu, distinct from the store-level
// Torrents map mutex that merely protects map membership.
type Torrent struct {
	InfoHash InfoHash
	ID       uint32

	Status atomic.Int32 // TorrentStatus

	Completed atomic.Uint32 // snatch count
	Balance   atomic.Int64  // up - down - corrupt, accumulated

	FreeTorrent   atomic.Int32 // FreeType
	DoubleTorrent atomic.Int32 // DoubleType

	LastFlushed atomic.Int64
	LastAction  atomic.Int64

	PeerMu sync.RWMutex

	Seeders  map[PeerKey]*Peer
	Leechers map[PeerKey]*Peer

	LastSelectedSeeder  PeerKey
	LastSelectedLeecher PeerKey

	TokenedUsers map[uint32]TokenSlot

	Paused int
}

func NewTorrent(infoHash InfoHash, id uint32) *Torrent {
	t := &Torrent{
		InfoHash:     infoHash,
		ID:           id,
		Seeders:      make(map[PeerKey]*Peer),
		Leechers:     make(map[PeerKey]*Peer),
		TokenedUsers: make(map[uint32]TokenSlot),
	}
	t.FreeTorrent.Store(int32(FreeNormal))
	t.DoubleTorrent.Store(int32(DoubleNormal))

	return t
}

func (t *Torrent) SeederCount() int {
	t.PeerMu.RLock()
	defer t.PeerMu.RUnlock()

	return len(t.Seeders)
}

func (t *Torrent) LeecherCount() int {
	t.PeerMu.RLock()
	defer t.PeerMu.RUnlock()

	return len(t.Leechers)
}
