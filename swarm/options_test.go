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

package swarm

import "testing"

func testPromoOffNeverActive(t *testing.T) {
	var p Promo
	p.Mode.Store(int32(PromoOff))

	if p.Active(1000) {
		t.Fatal("expected off promo to never be active")
	}
}

func testPromoPermaAlwaysActive(t *testing.T) {
	var p Promo
	p.Mode.Store(int32(PromoPerma))

	if !p.Active(1000) {
		t.Fatal("expected perma promo to always be active")
	}
}

func testPromoTimedWindow(t *testing.T) {
	var p Promo
	p.Mode.Store(int32(PromoTimed))
	p.Start.Store(100)
	p.End.Store(200)

	if p.Active(50) {
		t.Fatal("expected promo inactive before window")
	}

	if !p.Active(150) {
		t.Fatal("expected promo active inside window")
	}

	if p.Active(250) {
		t.Fatal("expected promo inactive after window")
	}
}

func testParsePromoMode(t *testing.T) {
	cases := map[string]PromoMode{
		"off":   PromoOff,
		"timed": PromoTimed,
		"perma": PromoPerma,
		"":      PromoOff,
		"bogus": PromoOff,
	}

	for in, want := range cases {
		if got := ParsePromoMode(in); got != want {
			t.Fatalf("ParsePromoMode(%q) = %v, want %v", in, got, want)
		}
	}
}

func testNewOptionsDefaults(t *testing.T) {
	o := NewOptions()

	if !o.EnableIPv6Tracker.Load() {
		t.Fatal("expected IPv6 tracking enabled by default")
	}

	if o.AnnounceInterval.Load() != 1800 {
		t.Fatalf("expected default announce interval 1800, got %d", o.AnnounceInterval.Load())
	}

	if o.NumwantLimit.Load() != 50 {
		t.Fatalf("expected default numwant limit 50, got %d", o.NumwantLimit.Load())
	}
}

func TestPromo(t *testing.T) {
	t.Run("OffNeverActive", testPromoOffNeverActive)
	t.Run("PermaAlwaysActive", testPromoPermaAlwaysActive)
	t.Run("TimedWindow", testPromoTimedWindow)
	t.Run("ParsePromoMode", testParsePromoMode)
}

func TestNewOptionsDefaults(t *testing.T) {
	testNewOptionsDefaults(t)
}
