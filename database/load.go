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
	"database/sql"
	"net"
	"time"

	"radiance/log"
	"radiance/swarm"
	"radiance/swarm/types"
)

// LoadAll runs every bulk loader in the order the original tracker's
// startup/SIGUSR1 reload does (original_source/src/radiance.cpp):
// site options, users, torrents, tokens, peers, blacklist.
func (db *Database) LoadAll() {
	db.LoadSiteOptions()
	db.LoadUsers()
	db.LoadTorrents()
	db.LoadTokens()
	db.LoadPeers()
	db.LoadBlacklist()
}

var siteOptionNames = []string{
	"SitewideFreeleechMode", "SitewideFreeleechStartTime", "SitewideFreeleechEndTime",
	"SitewideDoubleseedMode", "SitewideDoubleseedStartTime", "SitewideDoubleseedEndTime",
	"EnableIPv6Tracker", "AnnounceInterval", "NumwantLimit",
}

// LoadSiteOptions mirrors the original's load_site_options: one row per
// named setting in the `options` table (Name, Value columns).
func (db *Database) LoadSiteOptions() {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	for _, name := range siteOptionNames {
		var value string

		row := conn.QueryRow("SELECT Value FROM options WHERE Name = ?", name)
		if err := row.Scan(&value); err != nil {
			if err != sql.ErrNoRows {
				log.Error.Printf("error loading site option %s: %s", name, err)
			}

			continue
		}

		applySiteOption(db.Options, name, value)
	}

	log.Info.Printf("site options load complete (%s)", time.Since(start))
}

func applySiteOption(opts *swarm.Options, name, value string) {
	switch name {
	case "SitewideFreeleechMode":
		opts.SitewideFreeleech.Mode.Store(int32(swarm.ParsePromoMode(value)))
	case "SitewideFreeleechStartTime":
		opts.SitewideFreeleech.Start.Store(parseUnix(value))
	case "SitewideFreeleechEndTime":
		opts.SitewideFreeleech.End.Store(parseUnix(value))
	case "SitewideDoubleseedMode":
		opts.SitewideDoubleseed.Mode.Store(int32(swarm.ParsePromoMode(value)))
	case "SitewideDoubleseedStartTime":
		opts.SitewideDoubleseed.Start.Store(parseUnix(value))
	case "SitewideDoubleseedEndTime":
		opts.SitewideDoubleseed.End.Store(parseUnix(value))
	case "EnableIPv6Tracker":
		opts.EnableIPv6Tracker.Store(value == "1" || value == "true")
	case "AnnounceInterval":
		opts.AnnounceInterval.Store(parseUnix(value))
	case "NumwantLimit":
		opts.NumwantLimit.Store(parseUnix(value))
	}
}

func parseUnix(s string) int64 {
	var v int64

	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0
		}

		v = v*10 + int64(c-'0')
	}

	return v
}

// LoadUsers mirrors load_users: SELECT ... FROM users_main WHERE
// Enabled='1'. Users already in the store whose rows are no longer
// returned are flagged deleted and kept in the store.
func (db *Database) LoadUsers() {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	rows, err := conn.Query("SELECT ID, torrent_pass, can_leech, " +
		"(Visible='0' OR IP='127.0.0.1') AS Protected, track_ipv6, " +
		"personal_freeleech, personal_doubleseed FROM users_main WHERE Enabled='1'")
	if err != nil {
		log.Error.Printf("error loading users: %s", err)
		return
	}

	defer rows.Close()

	seen := make(map[string]struct{})
	count := 0

	for rows.Next() {
		var (
			id                             uint32
			passkey                        string
			canLeech, protected, trackIPv6 bool
			personalFreeleech              sql.NullTime
			personalDoubleseed             sql.NullTime
		)

		if err := rows.Scan(&id, &passkey, &canLeech, &protected, &trackIPv6,
			&personalFreeleech, &personalDoubleseed); err != nil {
			log.Error.Printf("error scanning user row: %s", err)
			continue
		}

		u := db.Store.FindUser(passkey)
		if u == nil {
			u = &types.User{Passkey: passkey, ID: id}
			db.Store.PutUser(u)
		}

		u.ID = id
		u.CanLeech.Store(canLeech)
		u.Protected.Store(protected)
		u.TrackIPv6.Store(trackIPv6)
		u.PersonalFreeleechUntil.Store(nullTimeUnix(personalFreeleech))
		u.PersonalDoubleseedUntil.Store(nullTimeUnix(personalDoubleseed))
		u.Deleted.Store(false)

		seen[passkey] = struct{}{}
		count++
	}

	// Users enabled a moment ago but absent from this pass have been
	// disabled or removed; mark them deleted rather than dropping them
	// outright so in-flight announces can still see Deleted and reject.
	db.Store.RangeUsers(func(passkey string, u *types.User) {
		if _, ok := seen[passkey]; !ok {
			u.Deleted.Store(true)
		}
	})

	log.Info.Printf("user load complete (%d rows, %s)", count, time.Since(start))
}

func nullTimeUnix(t sql.NullTime) int64 {
	if !t.Valid {
		return 0
	}

	return t.Time.Unix()
}

// LoadTorrents mirrors load_torrents: SELECT ID, info_hash, freetorrent,
// doubletorrent, Snatched FROM torrents ORDER BY ID.
func (db *Database) LoadTorrents() {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	rows, err := conn.Query("SELECT ID, info_hash, freetorrent, doubletorrent, Snatched FROM torrents ORDER BY ID")
	if err != nil {
		log.Error.Printf("error loading torrents: %s", err)
		return
	}

	defer rows.Close()

	count := 0

	for rows.Next() {
		var (
			id                         uint32
			infoHashBytes              []byte
			freeTorrent, doubleTorrent int
			snatched                   uint32
		)

		if err := rows.Scan(&id, &infoHashBytes, &freeTorrent, &doubleTorrent, &snatched); err != nil {
			log.Error.Printf("error scanning torrent row: %s", err)
			continue
		}

		hash, err := types.InfoHashFromBytes(infoHashBytes)
		if err != nil {
			log.Error.Printf("error parsing info_hash for torrent %d: %s", id, err)
			continue
		}

		t := db.Store.FindTorrent(hash)
		if t == nil {
			t = types.NewTorrent(hash, id)
			db.Store.PutTorrent(t)
		}

		t.ID = id
		t.FreeTorrent.Store(int32(freeTorrent))
		t.DoubleTorrent.Store(int32(doubleTorrent))
		t.Completed.Store(snatched)

		count++
	}

	log.Info.Printf("torrent load complete (%d rows, %s)", count, time.Since(start))
}

// LoadTokens mirrors load_tokens: per-user-per-torrent freeleech/doubleseed
// grants still in the future.
func (db *Database) LoadTokens() {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	rows, err := conn.Query("SELECT us.UserID, us.FreeLeech, us.DoubleSeed, t.info_hash " +
		"FROM users_slots AS us JOIN torrents AS t ON t.ID = us.TorrentID " +
		"WHERE FreeLeech >= NOW() OR DoubleSeed >= NOW()")
	if err != nil {
		log.Error.Printf("error loading tokens: %s", err)
		return
	}

	defer rows.Close()

	count := 0

	for rows.Next() {
		var (
			userID                uint32
			freeLeech, doubleSeed sql.NullTime
			infoHashBytes         []byte
		)

		if err := rows.Scan(&userID, &freeLeech, &doubleSeed, &infoHashBytes); err != nil {
			log.Error.Printf("error scanning token row: %s", err)
			continue
		}

		hash, err := types.InfoHashFromBytes(infoHashBytes)
		if err != nil {
			continue
		}

		t := db.Store.FindTorrent(hash)
		if t == nil {
			continue
		}

		t.PeerMu.Lock()
		t.TokenedUsers[userID] = types.TokenSlot{
			FreeLeechUntil:  nullTimeUnix(freeLeech),
			DoubleSeedUntil: nullTimeUnix(doubleSeed),
		}
		t.PeerMu.Unlock()

		count++
	}

	log.Info.Printf("token load complete (%d rows, %s)", count, time.Since(start))
}

// LoadPeers mirrors load_seeders + load_leechers, each scanning
// xbt_files_users joined to users_main for the torrent_pass -> user
// mapping the in-memory store needs.
func (db *Database) LoadPeers() {
	db.loadPeerSide("SELECT um.torrent_pass, xfu.peer_id, xfu.port, xfu.ipv4, xfu.ipv6, xfu.uploaded, "+
		"xfu.downloaded, xfu.remaining, t.ID FROM xbt_files_users AS xfu "+
		"JOIN users_main AS um ON um.ID = xfu.uid JOIN torrents AS t ON t.ID = xfu.fid "+
		"WHERE xfu.remaining = 0 AND xfu.active = 1", true)
	db.loadPeerSide("SELECT um.torrent_pass, xfu.peer_id, xfu.port, xfu.ipv4, xfu.ipv6, xfu.uploaded, "+
		"xfu.downloaded, xfu.remaining, t.ID FROM xbt_files_users AS xfu "+
		"JOIN users_main AS um ON um.ID = xfu.uid JOIN torrents AS t ON t.ID = xfu.fid "+
		"WHERE xfu.remaining > 0 AND xfu.active = 1", false)
}

func (db *Database) loadPeerSide(query string, seeding bool) {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	rows, err := conn.Query(query)
	if err != nil {
		log.Error.Printf("error loading peers: %s", err)
		return
	}

	defer rows.Close()

	count := 0

	for rows.Next() {
		var (
			passkey                      string
			peerIDBytes                  []byte
			port                         uint16
			ipv4Bytes, ipv6Bytes         []byte
			uploaded, downloaded, remain uint64
			torrentID                    uint32
		)

		if err := rows.Scan(&passkey, &peerIDBytes, &port, &ipv4Bytes, &ipv6Bytes,
			&uploaded, &downloaded, &remain, &torrentID); err != nil {
			log.Error.Printf("error scanning peer row: %s", err)
			continue
		}

		peerID, err := types.PeerIDFromBytes(peerIDBytes)
		if err != nil {
			continue
		}

		user := db.Store.FindUser(passkey)
		if user == nil {
			continue
		}

		t := findTorrentByID(db.Store, torrentID)
		if t == nil {
			continue
		}

		p := &types.Peer{
			User:       user,
			ID:         peerID,
			Port:       port,
			Uploaded:   uploaded,
			Downloaded: downloaded,
			Left:       remain,
		}

		if len(ipv4Bytes) == 4 {
			p.IPv4 = net.IP(ipv4Bytes)
		}

		if len(ipv6Bytes) == 16 {
			p.IPv6 = net.IP(ipv6Bytes)
		}

		p.RefreshCompactAddresses()

		key := types.NewPeerKey(t.ID, user.ID, peerID)

		t.PeerMu.Lock()

		if seeding {
			t.Seeders[key] = p
		} else {
			t.Leechers[key] = p
		}

		t.PeerMu.Unlock()

		count++
	}

	log.Info.Printf("peer load complete (%d rows, %s, seeding=%v)", count, time.Since(start), seeding)
}

// findTorrentByID is a linear fallback for the rare reload path that only
// has a numeric torrent id on hand; the hot path always keys by InfoHash.
func findTorrentByID(store *swarm.Store, id uint32) *types.Torrent {
	for _, t := range store.Torrents {
		if t.ID == id {
			return t
		}
	}

	return nil
}

// LoadBlacklist mirrors load_blacklist: SELECT id, peer_id FROM
// xbt_client_blacklist, each peer_id treated as a prefix.
func (db *Database) LoadBlacklist() {
	conn := db.pool.Grab()
	defer db.pool.Release(conn)

	start := time.Now()

	rows, err := conn.Query("SELECT id, peer_id FROM xbt_client_blacklist")
	if err != nil {
		log.Error.Printf("error loading blacklist: %s", err)
		return
	}

	defer rows.Close()

	var entries []types.BlacklistEntry

	for rows.Next() {
		var entry types.BlacklistEntry

		if err := rows.Scan(&entry.ID, &entry.Prefix); err != nil {
			log.Error.Printf("error scanning blacklist row: %s", err)
			continue
		}

		entries = append(entries, entry)
	}

	db.Store.SetBlacklist(entries)

	log.Info.Printf("blacklist load complete (%d rows, %s)", len(entries), time.Since(start))
}
