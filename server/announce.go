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

package server

import (
	"bytes"
	"slices"
	"time"

	"radiance/server/params"
	"radiance/swarm/types"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

// maxTransferDelta is the per-field ceiling applied to uploaded/downloaded/
// corrupt and to any delta computed from them.
const maxTransferDelta = 999999999999999

func clampDelta(v uint64) uint64 {
	if v > maxTransferDelta {
		return maxTransferDelta
	}

	return v
}

// resolveSide finds or inserts the peer for this announce in the correct
// map, returning the flags the caller needs for stats maintenance and the
// eventual completion snatch.
func resolveSide(tor *types.Torrent, key types.PeerKey, left uint64, event string) (p *types.Peer, inserted, completedSnatch, incLeecher, incSeeder, decLeecher bool) {
	switch {
	case left > 0:
		if existing, ok := tor.Leechers[key]; ok {
			return existing, false, false, false, false, false
		}

		p = &types.Peer{ID: key.PeerID()}
		tor.Leechers[key] = p

		return p, true, false, true, false, false

	case event == "completed":
		if existing, ok := tor.Leechers[key]; ok {
			delete(tor.Leechers, key)
			tor.Seeders[key] = existing

			return existing, false, true, false, true, true
		}

		if existing, ok := tor.Seeders[key]; ok {
			return existing, false, false, false, false, false
		}

		p = &types.Peer{ID: key.PeerID()}
		tor.Seeders[key] = p

		return p, true, true, false, true, false

	default:
		if existing, ok := tor.Seeders[key]; ok {
			return existing, false, false, false, false, false
		}

		if existing, ok := tor.Leechers[key]; ok {
			delete(tor.Leechers, key)
			tor.Seeders[key] = existing

			return existing, false, false, false, true, true
		}

		p = &types.Peer{ID: key.PeerID()}
		tor.Seeders[key] = p

		return p, true, false, false, true, false
	}
}

func sortedPeerKeys(m map[types.PeerKey]*types.Peer) []types.PeerKey {
	keys := make([]types.PeerKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// selectionStart implements the corrected round-robin cursor semantics:
// resume right after the stored cursor when one is set, otherwise start
// at the beginning of the sorted key set.
func selectionStart(keys []types.PeerKey, cursor types.PeerKey) int {
	if cursor == "" {
		return 0
	}

	idx, found := slices.BinarySearch(keys, cursor)
	if !found {
		return 0
	}

	return (idx + 1) % len(keys)
}

// selectFrom scans m starting from *cursor, appending eligible candidates
// to peersV4/peersV6 until numwant total peers have been found across both
// calls for this announce, then leaves *cursor on the last peer considered.
func selectFrom(m map[types.PeerKey]*types.Peer, cursor *types.PeerKey, requester *types.Peer, requesterUserID uint32,
	requesterWantsIPv6 bool, numwant int, peersV4, peersV6 *[]*types.Peer, found *int) {
	if len(m) == 0 || *found >= numwant {
		return
	}

	keys := sortedPeerKeys(m)
	n := len(keys)
	start := selectionStart(keys, *cursor)

	for i := 0; i < n && *found < numwant; i++ {
		key := keys[(start+i)%n]
		peer := m[key]

		if peer.User.ID == requesterUserID || peer.User.Deleted.Load() || !peer.Visible {
			continue
		}

		if len(requester.IPv4Port) > 0 && bytes.Equal(peer.IPv4Port, requester.IPv4Port) {
			continue
		}

		if len(requester.IPv6Port) > 0 && bytes.Equal(peer.IPv6Port, requester.IPv6Port) {
			continue
		}

		switch {
		case requesterWantsIPv6 && len(peer.IPv6Port) > 0 && peer.User.TrackIPv6.Load():
			*peersV6 = append(*peersV6, peer)
			*found++
		case len(peer.IPv4Port) > 0:
			*peersV4 = append(*peersV4, peer)
			*found++
		}

		*cursor = key
	}
}

// Announce runs the full announce state machine for one request (spec
// §4.3). user is the passkey owner already resolved by the caller; buf is
// an empty buffer the caller will flush to the response body whatever the
// outcome.
func (h *Handler) Announce(ctx *fasthttp.RequestCtx, user *types.User, buf *bytes.Buffer) {
	qp, err := params.ParseQuery(ctx.Request.URI().QueryArgs())
	if err != nil {
		failure("Malformed request", buf, time.Hour)
		return
	}

	if len(qp.Params.InfoHashes) != 1 {
		failure("Malformed request - need exactly one info_hash", buf, time.Hour)
		return
	}

	if qp.Params.Compact != "1" {
		failure("Your client does not support compact announces", buf, time.Hour)
		return
	}

	peerID, err := types.PeerIDFromBytes([]byte(qp.Params.PeerID))
	if err != nil {
		failure("Invalid peer ID", buf, time.Hour)
		return
	}

	if h.Store.IsBlacklisted(string(peerID[:])) {
		failure("Your client is blacklisted", buf, time.Hour)
		return
	}

	infoHash := qp.Params.InfoHashes[0]

	tor := h.Store.FindTorrent(infoHash)
	if tor == nil {
		if reason, ok := h.Store.DelReason(infoHash); ok {
			if text, known := types.ReasonText(reason.Reason); known {
				failure("Unregistered torrent: "+text, buf, time.Hour)
				return
			}
		}

		failure("Unregistered torrent", buf, time.Hour)

		return
	}

	left := qp.Params.Left
	uploaded := qp.Params.Uploaded
	downloaded := qp.Params.Downloaded
	corrupt := qp.Params.Corrupt

	resolvedAddr, ok := getPeerIPAddress(ctx, qp.Params.IP, qp.Params.IPv4, qp.Params.IPv6)
	if !ok {
		failure("Invalid IP detected", buf, time.Hour)
		return
	}

	host := string(ctx.Host())
	domain := h.Store.FindOrCreateDomain(host)

	now := time.Now().Unix()
	key := types.NewPeerKey(tor.ID, user.ID, peerID)

	event := qp.Params.Event
	started := event == "started"
	stopped := event == "stopped"
	paused := event == "paused"

	sitewideFreeleech := h.Options.SitewideFreeleech.Active(now)
	sitewideDoubleseed := h.Options.SitewideDoubleseed.Active(now)

	tor.PeerMu.Lock()
	defer tor.PeerMu.Unlock()

	if status := types.TorrentStatus(tor.Status.Load()); status == types.TorrentPruned && left == 0 {
		tor.Status.Store(int32(types.TorrentActive))

		go h.DB.UnPrune(tor.ID)
	} else if status == types.TorrentPruned {
		failure("Unregistered torrent", buf, 15*time.Minute)
		return
	}

	peer, inserted, completedSnatch, incLeecher, incSeeder, decLeecher := resolveSide(tor, key, left, event)

	if paused != peer.Paused {
		peer.Paused = paused
		if paused {
			tor.Paused++
		} else {
			tor.Paused--
		}
	}

	var peerChanged, updateTorrent, domainTaken bool

	var realUpChange, realDownChange uint64

	var upspeed, downspeed int64

	switch {
	case inserted || started:
		oldUser := peer.User
		oldDomain := peer.Domain
		peer.User = user
		peer.Domain = domain
		domainTaken = true

		if oldDomain != nil && oldDomain != domain {
			h.Store.ReleaseDomain(oldDomain)
		}

		peer.FirstAnnounced = now
		peer.LastAnnounced = 0
		peer.Uploaded = clampDelta(uploaded)
		peer.Downloaded = clampDelta(downloaded)
		peer.Corrupt = corrupt
		peer.Announces = 1
		peerChanged = true
		updateTorrent = true

		if oldUser != nil && oldUser != user {
			transferOwnership(tor, peer, oldUser, user, left, stopped)
		}
	case uploaded < peer.Uploaded || downloaded < peer.Downloaded:
		// Client restarted: accept the new baseline, credit nothing.
		peer.Announces++
		peer.Uploaded = uploaded
		peer.Downloaded = downloaded
		peerChanged = true
	default:
		peer.Announces++

		var upChange, downChange uint64

		if uploaded != peer.Uploaded {
			upChange = clampDelta(uploaded - peer.Uploaded)
			realUpChange = upChange
			peer.Uploaded = uploaded
		}

		if downloaded != peer.Downloaded {
			downChange = clampDelta(downloaded - peer.Downloaded)
			realDownChange = downChange
			peer.Downloaded = downloaded
		}

		corruptChanged := corrupt != peer.Corrupt

		if corruptChanged {
			corruptChange := int64(corrupt) - int64(peer.Corrupt)
			peer.Corrupt = corrupt
			tor.Balance.Add(-corruptChange)
			updateTorrent = true
		}

		peerChanged = peerChanged || upChange > 0 || downChange > 0 || corruptChanged

		if upChange > 0 || downChange > 0 {
			updateTorrent = true

			if now > peer.LastAnnounced {
				elapsed := now - peer.LastAnnounced
				upspeed = int64(upChange) / elapsed
				downspeed = int64(downChange) / elapsed
			}

			tor.Balance.Add(int64(upChange) - int64(downChange) - int64(corrupt))

			slot, hasToken := tor.TokenedUsers[user.ID]
			if hasToken {
				h.DB.RecordToken(user.ID, tor.ID, downChange, upChange)
			}

			creditedUp, creditedDown := upChange, downChange

			switch {
			case types.FreeType(tor.FreeTorrent.Load()) == types.FreeNeutral:
				creditedUp, creditedDown = 0, 0
			case types.FreeType(tor.FreeTorrent.Load()) == types.FreeFree || sitewideFreeleech ||
				(hasToken && slot.FreeLeechUntil >= now) || user.PersonalFreeleechActive(now):
				creditedDown = 0
			}

			if types.DoubleType(tor.DoubleTorrent.Load()) == types.DoubleDouble || sitewideDoubleseed ||
				(hasToken && slot.DoubleSeedUntil >= now) || user.PersonalDoubleseedActive(now) {
				creditedUp = clampDelta(creditedUp) * 2
			}

			if creditedUp > 0 || creditedDown > 0 || upChange > 0 || downChange > 0 {
				h.DB.RecordUser(user.ID, int64(creditedUp), int64(creditedDown), int64(upChange), int64(downChange))
			}
		}
	}

	peer.Left = left

	if !user.CanLeech.Load() && left > 0 {
		failure("Access denied, leeching forbidden", buf, time.Hour)
		return
	}

	port := qp.Params.Port

	addressChanged := inserted || peer.Port != port

	if resolvedAddr.Is4() {
		v4 := resolvedAddr.AsSlice()
		if !peer.IPv4.Equal(v4) {
			addressChanged = true
			peer.IPv4 = v4
		}
	} else {
		v6 := resolvedAddr.AsSlice()
		if !peer.IPv6.Equal(v6) {
			addressChanged = true
			peer.IPv6 = v6
		}
	}

	peer.Port = port

	if addressChanged {
		peer.RefreshCompactAddresses()
	}

	peer.LastAnnounced = now
	peer.Visible = !user.Deleted.Load()

	useragent := string(ctx.Request.Header.Peek("User-Agent"))
	timespent := now - peer.FirstAnnounced
	active := !stopped

	recordIPv4, recordIPv6 := peer.IPv4, peer.IPv6
	if user.Protected.Load() {
		recordIPv4, recordIPv6 = nil, nil
	}

	if peerChanged {
		h.DB.RecordPeerHeavy(user.ID, tor.ID, active, peer.Uploaded, peer.Downloaded, upspeed, downspeed, peer.Left, peer.Corrupt,
			timespent, peer.FirstAnnounced, peer.LastAnnounced, peer.Announces, recordIPv4, recordIPv6, port, peerID, useragent)
	} else {
		h.DB.RecordPeerLight(user.ID, tor.ID, timespent, peer.LastAnnounced, peer.Announces, peerID)
	}

	if realUpChange > 0 || realDownChange > 0 {
		h.DB.RecordPeerHistory(user.ID, tor.ID, realDownChange, peer.Left, realUpChange, upspeed, downspeed, timespent, now, peerID, peer.IPv4, peer.IPv6)
	}

	recordIP := recordIPv4
	if recordIP == nil {
		recordIP = recordIPv6
	}

	recordEvent(tor.ID, user.ID, recordIP, port, event, left == 0, int64(realUpChange), int64(realDownChange), peer.Uploaded, peer.Downloaded, left)

	numwant := int(h.Options.NumwantLimit.Load())
	if qp.Exists.NumWant && qp.Params.NumWant < uint64(numwant) {
		numwant = int(qp.Params.NumWant)
	}

	decSeeder := false

	if stopped {
		numwant = 0

		if left > 0 {
			decLeecher = true
		} else {
			decSeeder = true
		}
	} else if completedSnatch {
		updateTorrent = true
		tor.Completed.Add(1)

		h.DB.RecordSnatch(user.ID, tor.ID, now, recordIPv4, recordIPv6)
		delete(tor.TokenedUsers, user.ID)
	}

	var peersV4, peersV6 []*types.Peer

	if numwant > 0 {
		found := 0
		requesterWantsIPv6 := len(peer.IPv6) > 0 && h.Options.EnableIPv6Tracker.Load()

		if left > 0 {
			selectFrom(tor.Seeders, &tor.LastSelectedSeeder, peer, user.ID, requesterWantsIPv6, numwant, &peersV4, &peersV6, &found)
		}

		if found < numwant {
			selectFrom(tor.Leechers, &tor.LastSelectedLeecher, peer, user.ID, requesterWantsIPv6, numwant, &peersV4, &peersV6, &found)
		}
	}

	if incLeecher || incSeeder || decLeecher || decSeeder {
		if incLeecher {
			user.LeechingCount.Add(1)
			h.Stats.Leechers.Add(1)
		}

		if incSeeder {
			user.SeedingCount.Add(1)
			h.Stats.Seeders.Add(1)
		}

		if decLeecher {
			user.LeechingCount.Add(-1)
			h.Stats.Leechers.Add(-1)
		}

		if decSeeder {
			user.SeedingCount.Add(-1)
			h.Stats.Seeders.Add(-1)
		}

		if incLeecher || incSeeder {
			if len(peer.IPv6) > 0 {
				h.Stats.IPv6Peers.Add(1)
			}

			if len(peer.IPv4) > 0 {
				h.Stats.IPv4Peers.Add(1)
			}
		}

		if decLeecher || decSeeder {
			if len(peer.IPv6) > 0 {
				h.Stats.IPv6Peers.Add(-1)
			}

			if len(peer.IPv4) > 0 {
				h.Stats.IPv4Peers.Add(-1)
			}
		}
	}

	if stopped {
		if left > 0 {
			delete(tor.Leechers, key)
		} else {
			delete(tor.Seeders, key)
		}
	}

	if !domainTaken {
		h.Store.ReleaseDomain(domain)
	}

	if updateTorrent || tor.LastFlushed.Load()+3600 < now {
		tor.LastFlushed.Store(now)

		snatched := uint8(0)
		if completedSnatch {
			snatched = 1
		}

		h.DB.RecordTorrent(tor.ID, len(tor.Seeders), len(tor.Leechers), snatched, tor.Balance.Load())
	}

	h.Stats.SuccessfulAnnounces.Add(1)

	interval := int(h.Options.AnnounceInterval.Load())
	externalIP := resolvedAddr.String()

	util.BencodeAnnounceHeader(buf, int64(len(tor.Seeders)), int64(len(tor.Leechers)), int64(tor.Completed.Load()),
		externalIP, interval+util.Min(600, len(tor.Seeders)), interval)
	util.BencodeAnnouncePeers(buf, peersV4, true, false)

	if len(peersV6) > 0 {
		util.BencodeAnnouncePeers6(buf, peersV6, true, false)
	}

	util.BencodeAnnounceFooter(buf)
}

// transferOwnership moves a freshly re-inserted peer's side counters from
// its previous owner to its new one, used when a passkey rotation makes a
// stored peer's user handle stale before the peer is even re-announced.
func transferOwnership(tor *types.Torrent, peer *types.Peer, oldUser, newUser *types.User, left uint64, stopped bool) {
	if stopped {
		return
	}

	if left > 0 {
		newUser.LeechingCount.Add(1)
		oldUser.LeechingCount.Add(-1)
	} else {
		newUser.SeedingCount.Add(1)
		oldUser.SeedingCount.Add(-1)
	}

	_ = tor
	_ = peer
}
