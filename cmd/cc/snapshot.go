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

package main

import (
	"encoding/hex"

	"radiance/swarm"
	"radiance/swarm/types"
)

// PeerSnapshot is a plain-field copy of types.Peer, safe to marshal; the
// live struct carries net.IP and recomputed compact-address byte slices
// that are redundant on disk.
type PeerSnapshot struct {
	UserID uint32 `json:"user_id"`
	PeerID string `json:"peer_id"`

	IPv4 string `json:"ipv4,omitempty"`
	IPv6 string `json:"ipv6,omitempty"`
	Port uint16 `json:"port"`

	Uploaded   uint64 `json:"uploaded"`
	Downloaded uint64 `json:"downloaded"`
	Corrupt    uint64 `json:"corrupt"`
	Left       uint64 `json:"left"`
	Announces  uint64 `json:"announces"`

	FirstAnnounced int64 `json:"first_announced"`
	LastAnnounced  int64 `json:"last_announced"`
}

// TorrentSnapshot is a plain-field copy of types.Torrent. The live struct
// guards its peer maps with PeerMu and stores several fields as atomics,
// neither of which encoding/json or encoding/gob can round-trip, so this
// tool always reads through the swarm/types accessors instead of
// marshaling the live struct directly.
type TorrentSnapshot struct {
	InfoHash string `json:"info_hash"`
	ID       uint32 `json:"id"`

	Status        int32 `json:"status"`
	Completed     uint32 `json:"completed"`
	Balance       int64  `json:"balance"`
	FreeTorrent   int32  `json:"free_torrent"`
	DoubleTorrent int32  `json:"double_torrent"`

	Seeders  []PeerSnapshot `json:"seeders"`
	Leechers []PeerSnapshot `json:"leechers"`
}

type UserSnapshot struct {
	Passkey string `json:"passkey"`
	ID      uint32 `json:"id"`

	CanLeech  bool `json:"can_leech"`
	Protected bool `json:"protected"`
	TrackIPv6 bool `json:"track_ipv6"`

	PersonalFreeleechUntil  int64 `json:"personal_freeleech_until"`
	PersonalDoubleseedUntil int64 `json:"personal_doubleseed_until"`

	Leeching int32 `json:"leeching"`
	Seeding  int32 `json:"seeding"`
}

func snapshotPeer(key types.PeerKey, p *types.Peer) PeerSnapshot {
	peerID := key.PeerID()
	s := PeerSnapshot{
		UserID:         p.User.ID,
		PeerID:         hex.EncodeToString(peerID[:]),
		Port:           p.Port,
		Uploaded:       p.Uploaded,
		Downloaded:     p.Downloaded,
		Corrupt:        p.Corrupt,
		Left:           p.Left,
		Announces:      p.Announces,
		FirstAnnounced: p.FirstAnnounced,
		LastAnnounced:  p.LastAnnounced,
	}

	if p.IPv4 != nil {
		s.IPv4 = p.IPv4.String()
	}

	if p.IPv6 != nil {
		s.IPv6 = p.IPv6.String()
	}

	return s
}

func snapshotTorrents(store *swarm.Store) []TorrentSnapshot {
	var out []TorrentSnapshot

	store.RangeTorrents(func(hash types.InfoHash, t *types.Torrent) {
		t.PeerMu.RLock()
		defer t.PeerMu.RUnlock()

		snap := TorrentSnapshot{
			InfoHash:      hex.EncodeToString(hash[:]),
			ID:            t.ID,
			Status:        t.Status.Load(),
			Completed:     t.Completed.Load(),
			Balance:       t.Balance.Load(),
			FreeTorrent:   t.FreeTorrent.Load(),
			DoubleTorrent: t.DoubleTorrent.Load(),
		}

		for key, p := range t.Seeders {
			snap.Seeders = append(snap.Seeders, snapshotPeer(key, p))
		}

		for key, p := range t.Leechers {
			snap.Leechers = append(snap.Leechers, snapshotPeer(key, p))
		}

		out = append(out, snap)
	})

	return out
}

func snapshotUsers(store *swarm.Store) []UserSnapshot {
	var out []UserSnapshot

	store.RangeUsers(func(_ string, u *types.User) {
		out = append(out, UserSnapshot{
			Passkey:                 u.Passkey,
			ID:                      u.ID,
			CanLeech:                u.CanLeech.Load(),
			Protected:               u.Protected.Load(),
			TrackIPv6:               u.TrackIPv6.Load(),
			PersonalFreeleechUntil:  u.PersonalFreeleechUntil.Load(),
			PersonalDoubleseedUntil: u.PersonalDoubleseedUntil.Load(),
			Leeching:                u.LeechingCount.Load(),
			Seeding:                 u.SeedingCount.Load(),
		})
	})

	return out
}
