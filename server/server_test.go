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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"radiance/config"
	"radiance/swarm"
	"radiance/swarm/types"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

func newServerCtx(path string) *fasthttp.RequestCtx {
	var req fasthttp.Request

	req.SetRequestURI("http://example.org" + path)

	var ctx fasthttp.RequestCtx

	ctx.Init(&req, nil, nil)

	return &ctx
}

func withTestConfig(t *testing.T, body string) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "radiance.conf")

	if err := os.WriteFile(confPath, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write test config: %s", err)
	}

	config.SetPath(confPath)
	config.Reload()
}

func testServeRobots(t *testing.T) {
	bufferPool = util.NewBufferPool(512)

	ctx := newServerCtx("/robots.txt")
	requestHandler(ctx)

	if !strings.Contains(string(ctx.Response.Body()), "Disallow") {
		t.Fatalf("expected robots.txt body, got %q", ctx.Response.Body())
	}
}

func testServeUnknownVerb(t *testing.T) {
	bufferPool = util.NewBufferPool(512)
	activeHandler = &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/somepasskey/bogus")
	requestHandler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
}

func testServeMissingVerb(t *testing.T) {
	bufferPool = util.NewBufferPool(512)
	activeHandler = &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/onlypasskey")
	requestHandler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
}

func testDispatchAnnounceBadPasskey(t *testing.T) {
	bufferPool = util.NewBufferPool(512)
	activeHandler = &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/nosuchpasskey/announce")
	requestHandler(ctx)

	if !strings.Contains(string(ctx.Response.Body()), "passkey is invalid") {
		t.Fatalf("expected invalid passkey failure, got %q", ctx.Response.Body())
	}
}

func testDispatchAdminWrongPassword(t *testing.T) {
	withTestConfig(t, "[site]\npassword = correct\n")

	bufferPool = util.NewBufferPool(512)
	activeHandler = &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/wrong/update?action=change_passkey")
	requestHandler(ctx)

	if !strings.Contains(string(ctx.Response.Body()), "Authentication failure") {
		t.Fatalf("expected authentication failure, got %q", ctx.Response.Body())
	}
}

func testDispatchAdminRightPassword(t *testing.T) {
	withTestConfig(t, "[site]\npassword = correct\n")

	bufferPool = util.NewBufferPool(512)

	store := swarm.NewStore()
	store.PutUser(&types.User{Passkey: "old", ID: 1})
	activeHandler = &Handler{Store: store, Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/correct/update?action=change_passkey&oldpasskey=old&newpasskey=new")
	requestHandler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("expected 204, got %d (body %q)", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func testDispatchReportWrongPassword(t *testing.T) {
	withTestConfig(t, "[site]\nreport_password = correct\n")

	bufferPool = util.NewBufferPool(512)
	activeHandler = &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newServerCtx("/wrong/report?action=stats")
	requestHandler(ctx)

	if !strings.Contains(string(ctx.Response.Body()), "Authentication failure") {
		t.Fatalf("expected authentication failure, got %q", ctx.Response.Body())
	}
}

func TestServerDispatch(t *testing.T) {
	t.Run("Robots", testServeRobots)
	t.Run("UnknownVerb", testServeUnknownVerb)
	t.Run("MissingVerb", testServeMissingVerb)
	t.Run("AnnounceBadPasskey", testDispatchAnnounceBadPasskey)
	t.Run("AdminWrongPassword", testDispatchAdminWrongPassword)
	t.Run("AdminRightPassword", testDispatchAdminRightPassword)
	t.Run("ReportWrongPassword", testDispatchReportWrongPassword)
}
