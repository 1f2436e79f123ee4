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

// PasskeySize is the length of a user's tracker passkey.
const PasskeySize = 32

// User is identified by its passkey (the in-memory primary key) and a
// numeric id used in persisted rows.
type User struct {
	Passkey string
	ID      uint32

	CanLeech    atomic.Bool
	Protected   atomic.Bool // hides IP in persisted records
	TrackIPv6   atomic.Bool
	Deleted     atomic.Bool

	PersonalFreeleechUntil  atomic.Int64
	PersonalDoubleseedUntil atomic.Int64

	LeechingCount atomic.Int32
	SeedingCount  atomic.Int32
}

// PersonalFreeleechActive reports whether this user currently has a
// personal freeleech grant.
func (u *User) PersonalFreeleechActive(now int64) bool {
	return u.PersonalFreeleechUntil.Load() >= now
}

// PersonalDoubleseedActive reports whether this user currently has a
// personal doubleseed grant.
func (u *User) PersonalDoubleseedActive(now int64) bool {
	return u.PersonalDoubleseedUntil.Load() >= now
}
