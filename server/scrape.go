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
	"time"

	"radiance/config"
	"radiance/server/params"
	"radiance/swarm/types"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

const defaultScrapeInterval = 30 * time.Minute

// Scrape answers a scrape request for one or more info_hashes; unknown
// hashes are silently omitted rather than erroring. The caller has
// already checked the passkey; scrape carries no per-user accounting.
func (h *Handler) Scrape(ctx *fasthttp.RequestCtx, buf *bytes.Buffer) {
	if !config.GetBool("scrape", "enabled", true) {
		failure("Scrape convention is not supported", buf, time.Hour)
		return
	}

	qp, err := params.ParseQuery(ctx.Request.URI().QueryArgs())
	if err != nil || len(qp.Params.InfoHashes) == 0 {
		failure("Scrape without info_hash is not supported", buf, time.Hour)
		return
	}

	hashes := qp.Params.InfoHashes
	util.BencodeSortInfoHashKeys(hashes)

	interval := time.Duration(config.GetInt("scrape", "min_request_interval", int(defaultScrapeInterval/time.Second))) * time.Second

	util.BencodeScrapeHeader(buf)

	for _, hash := range hashes {
		tor := h.Store.FindTorrent(hash)
		if tor == nil {
			continue
		}

		writeScrapeTorrent(buf, tor)
	}

	util.BencodeScrapeFooter(buf, int(interval/time.Second))
}

func writeScrapeTorrent(buf *bytes.Buffer, tor *types.Torrent) {
	tor.PeerMu.RLock()
	defer tor.PeerMu.RUnlock()

	seeders := int64(len(tor.Seeders))
	leechers := int64(len(tor.Leechers))
	downloaders := leechers - int64(tor.Paused)

	util.BencodeScrapeTorrent(buf, tor.InfoHash, seeders, int64(tor.Completed.Load()), leechers, downloaders)
}
