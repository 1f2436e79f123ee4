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

import "strings"

// BlacklistEntry is a peer-id byte prefix; any peer-id matching one is
// rejected at announce time.
type BlacklistEntry struct {
	ID     int
	Prefix string
}

// Matches reports whether rawPeerID (20 raw bytes) begins with this prefix.
func (b BlacklistEntry) Matches(rawPeerID string) bool {
	return strings.HasPrefix(rawPeerID, b.Prefix)
}
