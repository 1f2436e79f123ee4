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
	"encoding/json"
	"fmt"
	"time"

	"radiance/swarm/types"

	"github.com/valyala/fasthttp"
)

// statsReport mirrors report.cpp's "stats" JSON shape; field order is
// preserved by struct order since Go's map iteration would scramble it.
type statsReport struct {
	Uptime               string `json:"uptime"`
	ConnectionsOpened    int64  `json:"connections opened"`
	OpenConnections      int64  `json:"open connections"`
	RequestsHandled      int64  `json:"requests handled"`
	SuccessfulAnnounces  int64  `json:"successful announcements"`
	FailedAnnounces      int64  `json:"failed announcements"`
	Scrapes              int64  `json:"scrapes"`
	LeechersTracked      int64  `json:"leechers tracked"`
	SeedersTracked       int64  `json:"seeders tracked"`
	BytesRead            int64  `json:"bytes read"`
	BytesWritten         int64  `json:"bytes written"`
	IPv4Peers            int64  `json:"IPv4 peers"`
	IPv6Peers            int64  `json:"IPv6 peers"`
}

type dbReport struct {
	TorrentQueue   int `json:"torrent_queue"`
	UserQueue      int `json:"user_queue"`
	PeerQueue      int `json:"peer_queue"`
	PeerHistQueue  int `json:"peer_hist_queue"`
	SnatchQueue    int `json:"snatch_queue"`
	TokenQueue     int `json:"token_queue"`
}

type userReport struct {
	Forbidden           bool  `json:"forbidden"`
	Protected           bool  `json:"protected"`
	TrackIPv6           bool  `json:"track ipv6"`
	PersonalFreeleech   int64 `json:"personal freeleech"`
	PersonalDoubleseed  int64 `json:"personal doubleseed"`
	Leeching            int32 `json:"leeching"`
	Seeding             int32 `json:"seeding"`
}

// formatUptime renders seconds as "D days, HH:MM:SS", matching
// report.cpp's hand-rolled formatting.
func formatUptime(seconds int64) string {
	days := seconds / 86400
	seconds -= days * 86400
	hours := seconds / 3600
	seconds -= hours * 3600
	minutes := seconds / 60
	seconds -= minutes * 60

	return fmt.Sprintf("%d days, %02d:%02d:%02d", days, hours, minutes, seconds)
}

// Report answers the companion site's "report" verb: a small set of JSON
// introspection endpoints, each selected by the "get" query
// parameter. Unlike Admin, every response is a 200 even when the action
// is unrecognized, matching report.cpp's behavior; a user lookup that
// finds no user answers with an empty body.
func (h *Handler) Report(ctx *fasthttp.RequestCtx, buf *bytes.Buffer) {
	args := ctx.QueryArgs()
	action := string(args.Peek("get"))

	ctx.SetContentType("application/json")

	var body any

	switch action {
	case "stats":
		now := time.Now().Unix()
		announcements := h.Stats.Announcements.Load()
		succ := h.Stats.SuccessfulAnnounces.Load()

		body = statsReport{
			Uptime:              formatUptime(now - h.Stats.StartTime),
			ConnectionsOpened:   h.Stats.OpenedConnections.Load(),
			OpenConnections:     h.Stats.OpenConnections.Load(),
			RequestsHandled:     h.Stats.Requests.Load(),
			SuccessfulAnnounces: succ,
			FailedAnnounces:     announcements - succ,
			Scrapes:             h.Stats.Scrapes.Load(),
			LeechersTracked:     h.Stats.Leechers.Load(),
			SeedersTracked:      h.Stats.Seeders.Load(),
			BytesRead:           h.Stats.BytesRead.Load(),
			BytesWritten:        h.Stats.BytesWritten.Load(),
			IPv4Peers:           h.Stats.IPv4Peers.Load(),
			IPv6Peers:           h.Stats.IPv6Peers.Load(),
		}
	case "db":
		lengths := h.DB.QueueLengths()
		body = dbReport{
			TorrentQueue:  lengths["torrents"],
			UserQueue:     lengths["users"],
			PeerQueue:     lengths["peers"],
			PeerHistQueue: lengths["peer_history"],
			SnatchQueue:   lengths["snatches"],
			TokenQueue:    lengths["tokens"],
		}
	case "domain":
		counts := make(map[string]int64)
		h.Store.RangeDomains(func(host string, d *types.Domain) {
			counts[host] = d.RefCount()
		})
		body = counts
	case "user":
		key := string(args.Peek("key"))
		if key == "" {
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("Invalid action\n")
			return
		}

		u := h.Store.FindUser(key)
		if u == nil {
			ctx.SetStatusCode(fasthttp.StatusOK)
			return
		}

		body = userReport{
			Forbidden:          !u.CanLeech.Load(),
			Protected:          u.Protected.Load(),
			TrackIPv6:          u.TrackIPv6.Load(),
			PersonalFreeleech:  u.PersonalFreeleechUntil.Load(),
			PersonalDoubleseed: u.PersonalDoubleseedUntil.Load(),
			Leeching:           u.LeechingCount.Load(),
			Seeding:            u.SeedingCount.Load(),
		}
	default:
		ctx.SetContentType("text/plain")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("Invalid action\n")
		return
	}

	enc, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(enc)
}
