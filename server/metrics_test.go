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
	"strings"
	"testing"
	"time"

	"radiance/swarm"

	"github.com/valyala/fasthttp"
)

func TestMetricsWithoutAdminToken(t *testing.T) {
	store := swarm.NewStore()
	stats := swarm.NewStats(time.Now().Unix())
	stats.Seeders.Store(3)

	h := &Handler{Store: store, Stats: stats}

	var req fasthttp.Request

	req.SetRequestURI("http://example.org/metrics")

	var ctx fasthttp.RequestCtx

	ctx.Init(&req, nil, nil)

	h.Metrics(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}

	body := string(ctx.Response.Body())
	if !strings.Contains(body, "radiance_") {
		t.Fatalf("expected normal collector metrics in body, got %q", body)
	}
}
