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
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"radiance/swarm"
	"radiance/swarm/types"

	"github.com/jinzhu/copier"
	"github.com/valyala/fasthttp"
)

// Admin dispatches the companion site's "update" verb. Every
// branch mutates swarm.Store directly - the site has already written its
// own copy of the change to the shared database, this call just keeps the
// tracker's in-memory model in sync - and every branch ends in a 204 or a
// 500, never a bencoded body.
func (h *Handler) Admin(ctx *fasthttp.RequestCtx, buf *bytes.Buffer) {
	args := ctx.QueryArgs()
	action := string(args.Peek("action"))

	if action == "" {
		slog.Error("update called without action")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ok := true

	switch action {
	case "options":
		h.adminOptions(args)
	case "change_passkey":
		ok = h.adminChangePasskey(args)
	case "add_torrent":
		h.adminAddTorrent(args)
	case "update_torrent":
		ok = h.adminUpdateTorrent(args)
	case "update_torrents":
		ok = h.adminUpdateTorrents(args)
	case "add_token_fl":
		ok = h.adminAddToken(args, true)
	case "add_token_ds":
		ok = h.adminAddToken(args, false)
	case "remove_tokens":
		ok = h.adminRemoveTokens(args)
	case "delete_torrent":
		ok = h.adminDeleteTorrent(args)
	case "add_user":
		ok = h.adminAddUser(args)
	case "remove_user":
		h.adminRemoveUser(args)
	case "remove_users":
		h.adminRemoveUsers(args)
	case "update_user":
		ok = h.adminUpdateUser(args)
	case "set_personal_freeleech":
		ok = h.adminSetPersonalGrant(args, true)
	case "set_personal_doubleseed":
		ok = h.adminSetPersonalGrant(args, false)
	case "add_blacklist":
		h.adminAddBlacklist(args)
	case "remove_blacklist":
		h.adminRemoveBlacklist(args)
	case "edit_blacklist":
		h.adminEditBlacklist(args)
	case "update_announce_interval":
		h.adminUpdateAnnounceInterval(args)
	case "info_torrent":
		h.adminInfoTorrent(args)
	default:
		slog.Error("unknown update action", "action", action)
		ok = false
	}

	if !ok {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func parseHash(hexHash []byte) (types.InfoHash, error) {
	raw := make([]byte, hex.DecodedLen(len(hexHash)))

	n, err := hex.Decode(raw, hexHash)
	if err != nil {
		return types.InfoHash{}, err
	}

	return types.InfoHashFromBytes(raw[:n])
}

func parseUint32(b []byte) uint32 {
	v, _ := strconv.ParseUint(string(b), 10, 32)
	return uint32(v)
}

func parseInt64(b []byte) int64 {
	v, _ := strconv.ParseInt(string(b), 10, 64)
	return v
}

func freeTypeFromParam(b []byte) types.FreeType {
	switch string(b) {
	case "0":
		return types.FreeNormal
	case "1":
		return types.FreeFree
	default:
		return types.FreeNeutral
	}
}

func doubleTypeFromParam(b []byte) types.DoubleType {
	if string(b) == "1" {
		return types.DoubleDouble
	}

	return types.DoubleNormal
}

func (h *Handler) adminOptions(args *fasthttp.Args) {
	set, value := string(args.Peek("set")), string(args.Peek("value"))

	switch set {
	case "announce_interval":
		h.Options.AnnounceInterval.Store(parseInt64([]byte(value)))
	case "numwant_limit":
		h.Options.NumwantLimit.Store(parseInt64([]byte(value)))
	case "enable_ipv6_tracker":
		h.Options.EnableIPv6Tracker.Store(value == "1")
	case "sitewide_freeleech_mode":
		h.Options.SitewideFreeleech.Mode.Store(int32(swarm.ParsePromoMode(value)))
	case "sitewide_doubleseed_mode":
		h.Options.SitewideDoubleseed.Mode.Store(int32(swarm.ParsePromoMode(value)))
	default:
		slog.Debug("ignoring unknown option", "set", set, "value", value)
	}
}

func (h *Handler) adminChangePasskey(args *fasthttp.Args) bool {
	oldPasskey := string(args.Peek("oldpasskey"))
	newPasskey := string(args.Peek("newpasskey"))

	u := h.Store.FindUser(oldPasskey)
	if u == nil {
		slog.Error("change_passkey: no such user", "oldpasskey", oldPasskey)
		return false
	}

	u.Passkey = newPasskey
	h.Store.PutUser(u)
	h.Store.RemoveUser(oldPasskey)

	return true
}

func (h *Handler) adminAddTorrent(args *fasthttp.Args) {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("add_torrent: bad info_hash", "err", err)
		return
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		tor = types.NewTorrent(hash, parseUint32(args.Peek("id")))
	}

	tor.FreeTorrent.Store(int32(freeTypeFromParam(args.Peek("freetorrent"))))
	tor.DoubleTorrent.Store(int32(doubleTypeFromParam(args.Peek("doubletorrent"))))

	h.Store.PutTorrent(tor)
}

func (h *Handler) adminUpdateTorrent(args *fasthttp.Args) bool {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("update_torrent: bad info_hash", "err", err)
		return false
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		slog.Error("update_torrent: no such torrent", "hash", hash)
		return false
	}

	tor.FreeTorrent.Store(int32(freeTypeFromParam(args.Peek("freetorrent"))))
	tor.DoubleTorrent.Store(int32(doubleTypeFromParam(args.Peek("doubletorrent"))))

	return true
}

// adminUpdateTorrents applies the same freetorrent/doubletorrent pair to a
// bulk list of torrents, each info-hash concatenated as 20 raw bytes after
// hex-decoding the whole blob.
func (h *Handler) adminUpdateTorrents(args *fasthttp.Args) bool {
	raw := make([]byte, hex.DecodedLen(len(args.Peek("info_hashes"))))

	n, err := hex.Decode(raw, args.Peek("info_hashes"))
	if err != nil {
		slog.Error("update_torrents: bad info_hashes", "err", err)
		return false
	}

	raw = raw[:n]
	fl := freeTypeFromParam(args.Peek("freetorrent"))
	ds := doubleTypeFromParam(args.Peek("doubletorrent"))

	ok := true

	for pos := 0; pos+types.InfoHashSize <= len(raw); pos += types.InfoHashSize {
		hash, err := types.InfoHashFromBytes(raw[pos : pos+types.InfoHashSize])
		if err != nil {
			continue
		}

		tor := h.Store.FindTorrent(hash)
		if tor == nil {
			slog.Error("update_torrents: no such torrent", "hash", hash)
			ok = false
			continue
		}

		tor.FreeTorrent.Store(int32(fl))
		tor.DoubleTorrent.Store(int32(ds))
	}

	return ok
}

func (h *Handler) adminAddToken(args *fasthttp.Args, freeleech bool) bool {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("add_token: bad info_hash", "err", err)
		return false
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		slog.Error("add_token: no such torrent", "hash", hash)
		return false
	}

	userID := parseUint32(args.Peek("userid"))
	until := parseInt64(args.Peek("time"))

	var patch types.TokenSlot
	if freeleech {
		patch.FreeLeechUntil = until
	} else {
		patch.DoubleSeedUntil = until
	}

	tor.PeerMu.Lock()
	defer tor.PeerMu.Unlock()

	slot := tor.TokenedUsers[userID]
	if err := copier.CopyWithOption(&slot, &patch, copier.Option{IgnoreEmpty: true}); err != nil {
		slog.Error("add_token: copier failed", "err", err)
		return false
	}

	tor.TokenedUsers[userID] = slot

	return true
}

func (h *Handler) adminRemoveTokens(args *fasthttp.Args) bool {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("remove_tokens: bad info_hash", "err", err)
		return false
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		slog.Error("remove_tokens: no such torrent", "hash", hash)
		return false
	}

	userID := parseUint32(args.Peek("userid"))

	tor.PeerMu.Lock()
	defer tor.PeerMu.Unlock()

	delete(tor.TokenedUsers, userID)

	return true
}

// adminDeleteTorrent removes a torrent entirely, decrementing every side
// counter its current peers were contributing to and recording why, for
// the del-reason message a still-announcing client will see.
func (h *Handler) adminDeleteTorrent(args *fasthttp.Args) bool {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("delete_torrent: bad info_hash", "err", err)
		return false
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		slog.Error("delete_torrent: no such torrent", "hash", hash)
		return false
	}

	reason := -1
	if args.Has("reason") {
		reason = int(parseInt64(args.Peek("reason")))
	}

	tor.PeerMu.Lock()

	h.Stats.Leechers.Add(-int64(len(tor.Leechers)))
	h.Stats.Seeders.Add(-int64(len(tor.Seeders)))

	for _, p := range tor.Leechers {
		p.User.LeechingCount.Add(-1)
	}

	for _, p := range tor.Seeders {
		p.User.SeedingCount.Add(-1)
	}

	tor.PeerMu.Unlock()

	h.Store.PutDelReason(hash, types.DelReason{Reason: reason, Removed: time.Now().Unix()})
	h.Store.RemoveTorrent(hash)

	return true
}

func (h *Handler) adminAddUser(args *fasthttp.Args) bool {
	passkey := string(args.Peek("passkey"))

	if u := h.Store.FindUser(passkey); u != nil {
		// A passkey can be re-added after a prior remove_user; clear the
		// stale deleted flag even though we still report this call failed.
		u.Deleted.Store(false)
		slog.Error("add_user: already known", "passkey", passkey)
		return false
	}

	u := &types.User{Passkey: passkey, ID: parseUint32(args.Peek("id"))}
	u.CanLeech.Store(true)
	u.Protected.Store(string(args.Peek("visible")) == "0")

	h.Store.PutUser(u)

	return true
}

func (h *Handler) adminRemoveUser(args *fasthttp.Args) {
	passkey := string(args.Peek("passkey"))

	if u := h.Store.FindUser(passkey); u != nil {
		u.Deleted.Store(true)
	}

	h.Store.RemoveUser(passkey)
}

// adminRemoveUsers is remove_user's bulk form: passkeys is a concatenation
// of fixed-width 32-character passkeys, no hex decoding involved.
func (h *Handler) adminRemoveUsers(args *fasthttp.Args) {
	passkeys := string(args.Peek("passkeys"))

	for pos := 0; pos+types.PasskeySize <= len(passkeys); pos += types.PasskeySize {
		passkey := passkeys[pos : pos+types.PasskeySize]

		if u := h.Store.FindUser(passkey); u != nil {
			u.Deleted.Store(true)
		}

		h.Store.RemoveUser(passkey)
	}
}

func (h *Handler) adminUpdateUser(args *fasthttp.Args) bool {
	passkey := string(args.Peek("passkey"))

	u := h.Store.FindUser(passkey)
	if u == nil {
		slog.Error("update_user: no such user", "passkey", passkey)
		return false
	}

	if args.Has("can_leech") {
		u.CanLeech.Store(string(args.Peek("can_leech")) != "0")
	}

	if args.Has("visible") {
		u.Protected.Store(string(args.Peek("visible")) == "0")
	}

	if args.Has("track_ipv6") {
		u.TrackIPv6.Store(string(args.Peek("track_ipv6")) != "0")
	}

	return true
}

func (h *Handler) adminSetPersonalGrant(args *fasthttp.Args, freeleech bool) bool {
	passkey := string(args.Peek("passkey"))

	u := h.Store.FindUser(passkey)
	if u == nil {
		slog.Error("set_personal_grant: no such user", "passkey", passkey)
		return false
	}

	until := parseInt64(args.Peek("time"))

	if freeleech {
		u.PersonalFreeleechUntil.Store(until)
	} else {
		u.PersonalDoubleseedUntil.Store(until)
	}

	return true
}

func (h *Handler) adminAddBlacklist(args *fasthttp.Args) {
	prefix := string(args.Peek("peer_id"))
	h.Store.AddBlacklistEntry(types.BlacklistEntry{Prefix: prefix})
}

func (h *Handler) adminRemoveBlacklist(args *fasthttp.Args) {
	h.Store.RemoveBlacklistPrefix(string(args.Peek("peer_id")))
}

func (h *Handler) adminEditBlacklist(args *fasthttp.Args) {
	h.Store.RemoveBlacklistPrefix(string(args.Peek("old_peer_id")))
	h.Store.AddBlacklistEntry(types.BlacklistEntry{Prefix: string(args.Peek("new_peer_id"))})
}

func (h *Handler) adminUpdateAnnounceInterval(args *fasthttp.Args) {
	h.Options.AnnounceInterval.Store(parseInt64(args.Peek("new_announce_interval")))
}

func (h *Handler) adminInfoTorrent(args *fasthttp.Args) {
	hash, err := parseHash(args.Peek("info_hash"))
	if err != nil {
		slog.Error("info_torrent: bad info_hash", "err", err)
		return
	}

	tor := h.Store.FindTorrent(hash)
	if tor == nil {
		slog.Error("info_torrent: no such torrent", "hash", hash)
		return
	}

	slog.Debug("torrent info", "id", tor.ID, "freetorrent", tor.FreeTorrent.Load())
}
