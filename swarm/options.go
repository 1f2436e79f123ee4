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

import "sync/atomic"

// PromoMode mirrors the original's SitewideFreeleechMode/SitewideDoubleseedMode
// strings ("off"/"timed"/"perma") from original_source/src/config.cpp.
type PromoMode int32

const (
	PromoOff PromoMode = iota
	PromoTimed
	PromoPerma
)

func ParsePromoMode(s string) PromoMode {
	switch s {
	case "timed":
		return PromoTimed
	case "perma":
		return PromoPerma
	default:
		return PromoOff
	}
}

// Promo is a site-wide timed-or-permanent grant, one for freeleech and one
// for doubleseed (original_source/src/worker.cpp lines ~328-354).
type Promo struct {
	Mode  atomic.Int32 // PromoMode
	Start atomic.Int64
	End   atomic.Int64
}

// Active reports whether this promo currently applies, per the original's
// "timed window open" OR "perma" rule.
func (p *Promo) Active(now int64) bool {
	switch PromoMode(p.Mode.Load()) {
	case PromoPerma:
		return true
	case PromoTimed:
		return p.Start.Load() <= now && p.End.Load() >= now
	default:
		return false
	}
}

// Options holds the tracker's DB-backed, admin-mutable site settings,
// loaded by the database package from the options table at startup and on
// each SIGUSR1 reload.
type Options struct {
	SitewideFreeleech  Promo
	SitewideDoubleseed Promo

	EnableIPv6Tracker atomic.Bool
	AnnounceInterval  atomic.Int64
	NumwantLimit      atomic.Int64
}

func NewOptions() *Options {
	o := &Options{}
	o.AnnounceInterval.Store(1800)
	o.NumwantLimit.Store(50)
	o.EnableIPv6Tracker.Store(true)

	return o
}
