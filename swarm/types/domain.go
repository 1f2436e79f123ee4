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

import "sync/atomic"

// Domain is a per-request Host header, reference-counted so it can be
// dropped from the store once no peer references it.
type Domain struct {
	Host string

	refs atomic.Int64
}

func NewDomain(host string) *Domain {
	return &Domain{Host: host}
}

func (d *Domain) Retain() { d.refs.Add(1) }

// Release returns true when this was the last reference, signalling the
// store that the domain may be removed.
func (d *Domain) Release() bool {
	return d.refs.Add(-1) == 0
}

func (d *Domain) RefCount() int64 { return d.refs.Load() }
