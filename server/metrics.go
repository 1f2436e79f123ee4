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
	"log/slog"
	"time"

	"radiance/collectors"
	"radiance/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

var bearerPrefix = "Bearer "

var (
	normalCollector  = collectors.NewNormalCollector()
	normalRegisterer = prometheus.NewRegistry()
	adminCollector   = collectors.NewAdminCollector()
)

func init() {
	normalRegisterer.MustRegister(normalCollector)
	prometheus.MustRegister(adminCollector)
}

// Metrics serves the top-level /metrics endpoint. NormalCollector's
// swarm-size gauges are always gathered; AdminCollector and anything
// else registered on prometheus.DefaultGatherer (queue depths, deadlock
// counters) are appended only when the request's bearer token matches
// [http].admin_token, so the internal queue/deadlock gauges never leak
// to an unauthenticated scrape of the public endpoint.
func (h *Handler) Metrics(ctx *fasthttp.RequestCtx) {
	torrentCount := h.Store.TorrentCount()

	normalCollector.Update(
		time.Since(time.Unix(h.Stats.StartTime, 0)).Seconds(),
		h.Store.UserCount(),
		torrentCount,
		int(h.Stats.Seeders.Load()),
		int(h.Stats.Leechers.Load()),
		uint64(h.Stats.Requests.Load()),
	)

	mfs, err := normalRegisterer.Gather()
	if err != nil {
		slog.Error("gathering normal metrics failed", "err", err)
	}

	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(ctx.Response.BodyWriter(), mf); err != nil {
			slog.Error("converting metrics to text failed", "err", err)
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
	}

	auth := string(ctx.Request.Header.Peek("Authorization"))

	if n := len(bearerPrefix); len(auth) > n && auth[:n] == bearerPrefix {
		adminToken := config.Section("http").Get("admin_token", "")
		if adminToken != "" && auth[n:] == adminToken {
			adminMfs, err := prometheus.DefaultGatherer.Gather()
			if err != nil {
				slog.Error("gathering admin metrics failed", "err", err)
			}

			for _, mf := range adminMfs {
				if _, err := expfmt.MetricFamilyToText(ctx.Response.BodyWriter(), mf); err != nil {
					slog.Error("converting admin metrics to text failed", "err", err)
					ctx.SetStatusCode(fasthttp.StatusInternalServerError)
					return
				}
			}
		}
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
}
