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

// DelReason explains why a torrent was removed, retained for
// del_reason_lifetime seconds so clients still announcing on it learn why.
type DelReason struct {
	Reason  int
	Removed int64 // unix time the torrent was removed
}

// These codes are reported verbatim to clients and mirror the legacy
// reason table the companion site already renders.
var reasonText = map[int]string{
	0:  "Unspecified",
	1:  "Trump",
	2:  "Legal complaint",
	3:  "Renamed",
	4:  "Duplicate",
	5:  "Poor quality",
	6:  "Clean-up",
}

// ReasonText returns the human-readable reason for code and true; a code
// missing from the table reads "Unspecified". A negative code means no
// reason is on file and returns false.
func ReasonText(code int) (string, bool) {
	if code < 0 {
		return "", false
	}

	if s, ok := reasonText[code]; ok {
		return s, true
	}

	return "Unspecified", true
}
