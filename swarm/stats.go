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

// Stats is the tracker-wide counter set reported by server/report.go and
// collectors.NormalCollector, mirroring original_source/src/radiance.h's
// stats_t. Every field is touched from many request goroutines at once,
// hence atomics rather than a mutex-guarded struct.
type Stats struct {
	OpenConnections   atomic.Int64
	OpenedConnections atomic.Int64

	Leechers atomic.Int64
	Seeders  atomic.Int64

	Requests             atomic.Int64
	Announcements        atomic.Int64
	SuccessfulAnnounces  atomic.Int64
	Scrapes              atomic.Int64

	BytesRead    atomic.Int64
	BytesWritten atomic.Int64

	IPv4Peers atomic.Int64
	IPv6Peers atomic.Int64

	StartTime int64
}

func NewStats(now int64) *Stats {
	return &Stats{StartTime: now}
}
