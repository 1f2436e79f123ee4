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
	"radiance/database"
	"radiance/swarm"
)

// Handler holds everything announce/scrape/admin/report need to touch:
// the in-memory store, the write-behind database, site options and the
// running counters reported by server/report.go and collectors.NormalCollector.
type Handler struct {
	Store   *swarm.Store
	DB      *database.Database
	Options *swarm.Options
	Stats   *swarm.Stats
}

func NewHandler(store *swarm.Store, db *database.Database, options *swarm.Options, stats *swarm.Stats) *Handler {
	return &Handler{Store: store, DB: db, Options: options, Stats: stats}
}
