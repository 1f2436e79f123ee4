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
	"net/netip"
	"testing"
	"time"
)

func testFailure(t *testing.T) {
	buf := bytes.NewBufferString("some existing data")

	failure("error message", buf, time.Second*5)

	testData := []byte("d14:failure reason13:error message8:intervali5ee")
	if !bytes.Equal(buf.Bytes(), testData) {
		t.Fatalf("expected %s, got %s", testData, buf.Bytes())
	}
}

func testIsPublicAddress(t *testing.T) {
	privateAddrs := []string{
		"0.0.0.0",
		"127.0.0.2",
		"10.10.10.1",
		"172.18.0.254",
		"192.168.0.125",
		"169.254.69.2",
		"100.64.1.1",
		"::",
		"::1",
		"fe80:dead:beef::1",
	}

	for _, addr := range privateAddrs {
		if isPublicAddress(netip.MustParseAddr(addr)) {
			t.Fatalf("private address %s was reported as public", addr)
		}
	}

	publicAddrs := []string{
		"45.128.19.54",
		"2606:4700:4700::1111",
	}

	for _, addr := range publicAddrs {
		if !isPublicAddress(netip.MustParseAddr(addr)) {
			t.Fatalf("public address %s was reported as private", addr)
		}
	}
}

func testIsPublicAddressDebugMode(t *testing.T) {
	DebugMode.Store(true)
	defer DebugMode.Store(false)

	if !isPublicAddress(netip.MustParseAddr("127.0.0.1")) {
		t.Fatal("expected DebugMode to bypass the private-address filter")
	}
}

func testGetPeerIPAddressPrecedence(t *testing.T) {
	ctx := newServerCtx("/passkey/announce")

	addr, ok := getPeerIPAddress(ctx, "45.128.19.54", "1.2.3.4", "")
	if !ok || addr.String() != "45.128.19.54" {
		t.Fatalf("expected ?ip= to win over ?ipv4=, got %v (ok=%v)", addr, ok)
	}

	addr, ok = getPeerIPAddress(ctx, "10.0.0.1", "45.128.19.54", "")
	if !ok || addr.String() != "45.128.19.54" {
		t.Fatalf("expected a private ?ip= to fall through to a public ?ipv4=, got %v (ok=%v)", addr, ok)
	}

	addr, ok = getPeerIPAddress(ctx, "", "", "2606:4700:4700::1111")
	if !ok || addr.String() != "2606:4700:4700::1111" {
		t.Fatalf("expected a public ?ipv6= to resolve when nothing else is given, got %v (ok=%v)", addr, ok)
	}
}

func TestServerUtil(t *testing.T) {
	t.Run("Failure", testFailure)
	t.Run("IsPublicAddress", testIsPublicAddress)
	t.Run("IsPublicAddressDebugMode", testIsPublicAddressDebugMode)
	t.Run("GetPeerIPAddressPrecedence", testGetPeerIPAddressPrecedence)
}
