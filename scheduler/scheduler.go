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

// Package scheduler drives every periodic background task the tracker
// needs outside the request path: flushing the write-behind database,
// flushing buffered site-webhook tokens, and reaping peers nobody has
// announced in a while. Grounded on original_source/src/schedule.cpp's
// schedule::handle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"radiance/config"
	"radiance/database"
	"radiance/log"
	"radiance/sitecomm"
	"radiance/swarm"
	"radiance/swarm/types"
	"radiance/util"
)

// Scheduler owns the tick that keeps the database and site webhook
// drained and stale peers swept out of the swarm.
type Scheduler struct {
	store *swarm.Store
	db    *database.Database
	sc    *sitecomm.SiteComm
	stats *swarm.Stats

	tickInterval      time.Duration
	reapInterval      time.Duration
	peerInactivity    int64
	delReasonLifetime int64

	mu              sync.Mutex
	ticks           uint64
	lastConnections int64
	lastRequests    int64
	untilNextReap   time.Duration

	reapSem util.Semaphore
}

func New(store *swarm.Store, db *database.Database, sc *sitecomm.SiteComm, stats *swarm.Stats) *Scheduler {
	intervals := config.Section("intervals")

	return &Scheduler{
		store:          store,
		db:             db,
		sc:             sc,
		stats:          stats,
		tickInterval:      time.Duration(intervals.GetInt("schedule", 3)) * time.Second,
		reapInterval:      time.Duration(intervals.GetInt("reap_peers", 1800)) * time.Second,
		peerInactivity:    int64(intervals.GetInt("peer_inactivity", 3900)),
		delReasonLifetime: int64(intervals.GetInt("del_reason_lifetime", 86400)),
		reapSem:           util.NewSemaphore(),
	}
}

// Run blocks, ticking until ctx is cancelled. Intended to be started in its
// own goroutine from main.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.untilNextReap = s.reapInterval
	s.mu.Unlock()

	util.ContextTick(ctx, s.tickInterval, s.tick)
}

// tick mirrors schedule::handle's body: rate accounting, a periodic debug
// summary, the unconditional flush pair, and a countdown-gated reap pass.
func (s *Scheduler) tick() {
	s.mu.Lock()
	s.ticks++

	connections := s.stats.OpenedConnections.Load()
	requests := s.stats.Requests.Load()

	connRate := connections - s.lastConnections
	reqRate := requests - s.lastRequests

	s.lastConnections = connections
	s.lastRequests = requests

	logSummary := s.ticks%20 == 0

	s.untilNextReap -= s.tickInterval
	reapDue := s.untilNextReap <= 0

	if reapDue {
		s.untilNextReap = s.reapInterval
	}

	s.mu.Unlock()

	if logSummary {
		log.Info.Printf("tracker stats: %d conns/tick, %d reqs/tick, %d open torrents",
			connRate, reqRate, s.store.TorrentCount())
	}

	s.db.FlushAll()
	s.sc.FlushTokens()

	if reapDue {
		go s.runReap()
	}
}

// runReap takes reapSem before sweeping so an overrunning reap pass never
// overlaps with the next one; a reap that's still running when its own
// interval elapses again is simply skipped rather than queued.
func (s *Scheduler) runReap() {
	select {
	case <-s.reapSem:
	default:
		log.Warning.Print("skipping peer reap, previous pass still running")
		return
	}

	defer util.ReturnSemaphore(s.reapSem)

	s.reapPeers()
	s.reapDelReasons()
}

// reapPeers drops every peer that hasn't announced within peer_inactivity
// seconds, operating directly on swarm.Store rather than queuing a
// DELETE, since reaping is swarm-state maintenance and the persisted
// row already expires independently. It also expires stale freeleech/
// double-seed token grants, and queues a zeroed torrent record for any
// torrent the sweep leaves with no seeders and no leechers.
func (s *Scheduler) reapPeers() {
	now := time.Now().Unix()
	cutoff := now - s.peerInactivity

	var reapedLeechers, reapedSeeders, reapedTokens, clearedTorrents int64
	var reapedIPv4, reapedIPv6 int64

	s.store.RangeTorrents(func(_ types.InfoHash, t *types.Torrent) {
		t.PeerMu.Lock()
		defer t.PeerMu.Unlock()

		reapedThis := false

		for key, p := range t.Leechers {
			if p.LastAnnounced < cutoff {
				delete(t.Leechers, key)
				p.User.LeechingCount.Add(-1)

				if len(p.IPv6) > 0 {
					reapedIPv6++
				}

				if len(p.IPv4) > 0 {
					reapedIPv4++
				}

				reapedLeechers++
				reapedThis = true
			}
		}

		for key, p := range t.Seeders {
			if p.LastAnnounced < cutoff {
				delete(t.Seeders, key)
				p.User.SeedingCount.Add(-1)

				if len(p.IPv6) > 0 {
					reapedIPv6++
				}

				if len(p.IPv4) > 0 {
					reapedIPv4++
				}

				reapedSeeders++
				reapedThis = true
			}
		}

		for key, slot := range t.TokenedUsers {
			if slot.Expired(now) {
				delete(t.TokenedUsers, key)
				reapedTokens++
				reapedThis = true
			}
		}

		if reapedThis && len(t.Seeders) == 0 && len(t.Leechers) == 0 {
			s.db.RecordTorrent(t.ID, 0, 0, 0, t.Balance.Load())
			clearedTorrents++
		}
	})

	if reapedLeechers > 0 || reapedSeeders > 0 {
		s.stats.Leechers.Add(-reapedLeechers)
		s.stats.Seeders.Add(-reapedSeeders)
		s.stats.IPv4Peers.Add(-reapedIPv4)
		s.stats.IPv6Peers.Add(-reapedIPv6)
	}

	log.Info.Printf("reaped %d leechers, %d seeders and %d tokens, reset %d torrents",
		reapedLeechers, reapedSeeders, reapedTokens, clearedTorrents)
}

// reapDelReasons drops retained deletion reasons older than
// del_reason_lifetime, matching worker::reap_del_reasons.
func (s *Scheduler) reapDelReasons() {
	maxTime := time.Now().Unix() - s.delReasonLifetime

	var reaped int64

	var stale []types.InfoHash

	s.store.RangeDelReasons(func(hash types.InfoHash, r types.DelReason) {
		if r.Removed <= maxTime {
			stale = append(stale, hash)
		}
	})

	for _, hash := range stale {
		s.store.RemoveDelReason(hash)
		reaped++
	}

	log.Info.Printf("reaped %d del reasons", reaped)
}

// AllClear reports whether it is safe to shut down: both the database's
// write-behind queues and the site webhook's send queue have drained,
// matching schedule::handle's db->all_clear() && sc->all_clear() gate.
func (s *Scheduler) AllClear() bool {
	for _, q := range s.db.QueueLengths() {
		if q > 0 {
			return false
		}
	}

	return s.sc.AllClear()
}
