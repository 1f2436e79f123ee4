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

// FreeType and DoubleType mirror original_source/src/radiance.h's
// "enum freetype { NORMAL, FREE, DOUBLE, NEUTRAL }", split into two
// independent axes since a torrent can be FREE and DOUBLE at once.
type FreeType uint8

const (
	FreeNormal FreeType = iota
	FreeFree
	FreeNeutral
)

type DoubleType uint8

const (
	DoubleNormal DoubleType = iota
	DoubleDouble
)

// TorrentStatus tracks the prune/unprune lifecycle from
// original_source/src/worker.cpp: announces with left>0 on a pruned torrent
// are rejected until a seeder with left=0 announces on it and unprunes it.
// Scrape does not check the status.
type TorrentStatus uint8

const (
	TorrentActive TorrentStatus = iota
	TorrentPruned
)
