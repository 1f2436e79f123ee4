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

// Package sitecomm is the tracker's one outbound dependency: a webhook
// telling the companion site a user's promotional token has expired.
// Grounded on original_source/src/site_comm.cpp's flush_tokens/
// do_flush_tokens pair.
package sitecomm

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"radiance/config"
	"radiance/log"
)

// maxBufferedTokens mirrors site_comm.cpp's hardcoded 350-byte threshold
// on the comma-joined "user:torrent" buffer; tokens average well under
// 10 bytes each, so a count-based cap is an equivalent approximation
// without needing to track the exact encoded length.
const maxBufferedTokens = 40

// SiteComm batches token-expiry notifications and flushes them to the
// companion site on a schedule, rather than firing one request per token.
type SiteComm struct {
	client *http.Client

	host     string
	path     string
	password string
	readonly bool

	mu      sync.Mutex
	pending []string
	queue   [][]string
	active  bool
}

func New() *SiteComm {
	siteConfig := config.Section("site")

	return &SiteComm{
		client:   &http.Client{Timeout: 10 * time.Second},
		host:     siteConfig.Get("host", ""),
		path:     siteConfig.Get("path", ""),
		password: siteConfig.Get("password", ""),
		readonly: siteConfig.GetBool("readonly", false),
	}
}

// ExpireToken buffers a (userID, torrentID) pair for the next flush. In
// readonly mode the buffer is accepted but silently dropped, matching
// site_comm.cpp's "readonly" guard that suppresses every outbound write.
func (sc *SiteComm) ExpireToken(userID, torrentID uint32) {
	pair := strconv.FormatUint(uint64(userID), 10) + ":" + strconv.FormatUint(uint64(torrentID), 10)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.readonly {
		return
	}

	sc.pending = append(sc.pending, pair)

	if len(sc.pending) > maxBufferedTokens {
		log.Warning.Print("flushing overloaded token buffer")
		sc.queue = append(sc.queue, sc.pending)
		sc.pending = nil
	}
}

// AllClear reports whether every batch has drained, used by the scheduler
// to gate a clean shutdown alongside database.Database's own queues.
func (sc *SiteComm) AllClear() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return len(sc.queue) == 0
}

// FlushTokens moves the current pending batch onto the send queue and, if
// nothing is already draining it, starts a goroutine to do so.
func (sc *SiteComm) FlushTokens() {
	sc.mu.Lock()

	if sc.readonly {
		sc.pending = nil
		sc.mu.Unlock()

		return
	}

	if len(sc.pending) == 0 {
		sc.mu.Unlock()
		return
	}

	sc.queue = append(sc.queue, sc.pending)
	sc.pending = nil

	alreadyActive := sc.active
	sc.active = true

	sc.mu.Unlock()

	if !alreadyActive {
		go sc.drain()
	}
}

// drain sends each queued batch as its own GET request, stopping at the
// first failure so a batch is retried rather than lost (site_comm.cpp
// leaves the queue's front entry in place on anything but a 200).
func (sc *SiteComm) drain() {
	defer func() {
		sc.mu.Lock()
		sc.active = false
		sc.mu.Unlock()
	}()

	for {
		sc.mu.Lock()
		if len(sc.queue) == 0 {
			sc.mu.Unlock()
			return
		}

		batch := sc.queue[0]
		sc.mu.Unlock()

		if err := sc.send(batch); err != nil {
			log.Error.Printf("site webhook failed, will retry: %s", err)
			return
		}

		sc.mu.Lock()
		sc.queue = sc.queue[1:]
		sc.mu.Unlock()
	}
}

func (sc *SiteComm) send(tokens []string) error {
	url := fmt.Sprintf("http://%s%s/tools.php?key=%s&type=expiretoken&action=radiance&tokens=%s",
		sc.host, sc.path, sc.password, strings.Join(tokens, ","))

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Close = true

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("site returned status %d expiring tokens", resp.StatusCode)
	}

	return nil
}
