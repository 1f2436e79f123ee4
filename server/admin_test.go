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
	"testing"
	"time"

	"radiance/swarm"
	"radiance/swarm/types"

	"github.com/valyala/fasthttp"
)

func newAdminCtx(rawQuery string) *fasthttp.RequestCtx {
	var req fasthttp.Request

	req.SetRequestURI("http://example.org/passkey/update?" + rawQuery)

	var ctx fasthttp.RequestCtx

	ctx.Init(&req, nil, nil)

	return &ctx
}

func testAdminChangePasskey(t *testing.T) {
	store := swarm.NewStore()
	store.PutUser(&types.User{Passkey: "old", ID: 1})

	h := &Handler{Store: store, Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newAdminCtx("action=change_passkey&oldpasskey=old&newpasskey=new")

	var buf bytes.Buffer

	h.Admin(ctx, &buf)

	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("expected 204, got %d", ctx.Response.StatusCode())
	}

	if store.FindUser("old") != nil {
		t.Fatal("expected old passkey to be gone")
	}

	if u := store.FindUser("new"); u == nil || u.ID != 1 {
		t.Fatal("expected user to be reachable under new passkey")
	}
}

func testAdminChangePasskeyMissingUser(t *testing.T) {
	h := &Handler{Store: swarm.NewStore(), Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newAdminCtx("action=change_passkey&oldpasskey=nope&newpasskey=new")

	var buf bytes.Buffer

	h.Admin(ctx, &buf)

	if ctx.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", ctx.Response.StatusCode())
	}
}

func testAdminAddToken(t *testing.T) {
	store := swarm.NewStore()

	hash, _ := types.InfoHashFromBytes([]byte("01234567890123456789"))
	tor := types.NewTorrent(hash, 7)
	store.PutTorrent(tor)

	h := &Handler{Store: store, Stats: swarm.NewStats(time.Now().Unix())}

	ctx := newAdminCtx("action=add_token_fl&info_hash=" + hash.String() + "&userid=42&time=1893456000")

	var buf bytes.Buffer

	h.Admin(ctx, &buf)

	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("expected 204, got %d", ctx.Response.StatusCode())
	}

	slot := tor.TokenedUsers[42]
	if slot.FreeLeechUntil != 1893456000 {
		t.Fatalf("expected free leech grant recorded, got %+v", slot)
	}
}

func testAdminDeleteTorrent(t *testing.T) {
	store := swarm.NewStore()

	hash, _ := types.InfoHashFromBytes([]byte("01234567890123456789"))
	tor := types.NewTorrent(hash, 7)

	user := &types.User{Passkey: "u", ID: 1}
	user.SeedingCount.Store(1)

	peerID, _ := types.PeerIDFromBytes([]byte("-TR2940-k8hj2wl0part"))
	key := types.NewPeerKey(tor.ID, user.ID, peerID)
	tor.Seeders[key] = &types.Peer{ID: peerID, User: user}

	store.PutTorrent(tor)

	stats := swarm.NewStats(time.Now().Unix())
	stats.Seeders.Store(1)

	h := &Handler{Store: store, Stats: stats}

	ctx := newAdminCtx("action=delete_torrent&info_hash=" + hash.String() + "&reason=3")

	var buf bytes.Buffer

	h.Admin(ctx, &buf)

	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("expected 204, got %d", ctx.Response.StatusCode())
	}

	if store.FindTorrent(hash) != nil {
		t.Fatal("expected torrent to be removed")
	}

	if stats.Seeders.Load() != 0 {
		t.Fatalf("expected seeder count decremented, got %d", stats.Seeders.Load())
	}

	if user.SeedingCount.Load() != 0 {
		t.Fatalf("expected user seeding count decremented, got %d", user.SeedingCount.Load())
	}

	reason, ok := store.DelReason(hash)
	if !ok || reason.Reason != 3 {
		t.Fatalf("expected del reason 3 recorded, got %+v (ok=%v)", reason, ok)
	}
}

func TestAdmin(t *testing.T) {
	t.Run("ChangePasskey", testAdminChangePasskey)
	t.Run("ChangePasskeyMissingUser", testAdminChangePasskeyMissingUser)
	t.Run("AddToken", testAdminAddToken)
	t.Run("DeleteTorrent", testAdminDeleteTorrent)
}
