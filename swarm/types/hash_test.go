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

package types

import "testing"

func testInfoHashFromBytesRejectsWrongSize(t *testing.T) {
	if _, err := InfoHashFromBytes([]byte("too short")); err == nil {
		t.Fatal("expected error for short info_hash")
	}
}

func testInfoHashScanValueRoundTrip(t *testing.T) {
	raw := []byte("01234567890123456789")
	h, err := InfoHashFromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}

	v, err := h.Value()
	if err != nil {
		t.Fatal(err)
	}

	var h2 InfoHash
	if err := h2.Scan(v); err != nil {
		t.Fatal(err)
	}

	if h != h2 {
		t.Fatalf("expected round-tripped InfoHash %v, got %v", h, h2)
	}
}

func testInfoHashString(t *testing.T) {
	h, err := InfoHashFromBytes([]byte("01234567890123456789"))
	if err != nil {
		t.Fatal(err)
	}

	if got := h.String(); len(got) != InfoHashSize*2 {
		t.Fatalf("expected hex string of length %d, got %q (len %d)", InfoHashSize*2, got, len(got))
	}
}

func testPeerIDFromBytesRejectsWrongSize(t *testing.T) {
	if _, err := PeerIDFromBytes([]byte("short")); err == nil {
		t.Fatal("expected error for short peer_id")
	}
}

func TestInfoHash(t *testing.T) {
	t.Run("FromBytesRejectsWrongSize", testInfoHashFromBytesRejectsWrongSize)
	t.Run("ScanValueRoundTrip", testInfoHashScanValueRoundTrip)
	t.Run("String", testInfoHashString)
}

func TestPeerID(t *testing.T) {
	t.Run("FromBytesRejectsWrongSize", testPeerIDFromBytesRejectsWrongSize)
}
