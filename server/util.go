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
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"radiance/swarm"
	"radiance/swarm/types"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

// DebugMode disables the public-address filter in isPublicAddress; no
// command-line flag sets it, so it stays off unless code sets it (the
// tests do). A tracker running against a LAN/loopback test harness would
// otherwise reject every candidate address.
var DebugMode atomic.Bool

func failure(err string, buf *bytes.Buffer, interval time.Duration) {
	buf.Reset()
	util.BencodeFailure(buf, err, interval)
}

func isPasskeyValid(passkey string, store *swarm.Store) *types.User {
	return store.FindUser(passkey)
}

// privateBlocks4 and privateBlocks6 are the non-routable ranges an
// externally-useful peer address must not fall in.
var (
	privateBlocks4 []netip.Prefix
	privateBlocks6 []netip.Prefix
)

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"127.0.0.0/8",
	} {
		privateBlocks4 = append(privateBlocks4, netip.MustParsePrefix(cidr))
	}

	for _, cidr := range []string{
		"::/96",
		"fe80::/10",
		"fc00::/7",
		"fec0::/10",
		"3ffe::/16",
		"2001:db8::/32",
		"2001::/32", // Teredo
		"2002::/16", // 6to4
	} {
		privateBlocks6 = append(privateBlocks6, netip.MustParsePrefix(cidr))
	}
}

// isPublicAddress reports whether addr passes the public-address filter;
// DebugMode bypasses this entirely.
func isPublicAddress(addr netip.Addr) bool {
	if DebugMode.Load() {
		return true
	}

	if addr.IsUnspecified() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return false
	}

	blocks := privateBlocks4
	if addr.Is6() && !addr.Is4In6() {
		blocks = privateBlocks6
	}

	for _, block := range blocks {
		if block.Contains(addr) {
			return false
		}
	}

	return true
}

// remoteSocketAddress extracts the peer address fasthttp accepted the
// connection from, used as the last-resort candidate in getPeerIPAddress.
func remoteSocketAddress(ctx *fasthttp.RequestCtx) (netip.Addr, bool) {
	if addr, ok := ctx.RemoteAddr().(*net.TCPAddr); ok {
		ap := addr.AddrPort()
		return ap.Addr(), true
	}

	ap, err := netip.ParseAddrPort(ctx.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}, false
	}

	return ap.Addr(), true
}

// forwardedForAddress returns the first address in X-Forwarded-For that
// passes the public-address filter, or a failed lookup.
func forwardedForAddress(ctx *fasthttp.RequestCtx) (netip.Addr, bool) {
	header := ctx.Request.Header.Peek("X-Forwarded-For")

	for _, part := range bytes.Split(header, []byte(",")) {
		addr, err := netip.ParseAddr(string(bytes.TrimSpace(part)))
		if err != nil {
			continue
		}

		if isPublicAddress(addr) {
			return addr, true
		}
	}

	return netip.Addr{}, false
}

// getPeerIPAddress resolves the best candidate source address for a peer,
// in precedence order: ?ip=, X-Forwarded-For, ?ipv4=/?ipv6=, then the
// accepted socket address. Every candidate must pass
// isPublicAddress; a candidate that fails precedence falls through to the
// next one rather than failing the whole announce.
func getPeerIPAddress(ctx *fasthttp.RequestCtx, ipParam, ipv4Param, ipv6Param string) (netip.Addr, bool) {
	if ipParam != "" {
		if addr, err := netip.ParseAddr(ipParam); err == nil && isPublicAddress(addr) {
			return addr, true
		}
	}

	if addr, ok := forwardedForAddress(ctx); ok {
		return addr, true
	}

	if ipv4Param != "" {
		if addr, err := netip.ParseAddr(ipv4Param); err == nil && addr.Is4() && isPublicAddress(addr) {
			return addr, true
		}
	}

	if ipv6Param != "" {
		if addr, err := netip.ParseAddr(ipv6Param); err == nil && addr.Is6() && isPublicAddress(addr) {
			return addr, true
		}
	}

	if addr, ok := remoteSocketAddress(ctx); ok && isPublicAddress(addr) {
		return addr, true
	}

	return netip.Addr{}, false
}
