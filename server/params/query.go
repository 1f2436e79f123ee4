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

// Package params parses the query string of an announce or scrape request.
package params

import (
	"strconv"

	"radiance/swarm/types"

	"github.com/valyala/fasthttp"
)

// Params holds the typed fields an announce or scrape request may carry.
// A field is meaningful only if the matching Exists flag is set; a zero
// value with Exists false means the client did not send that key at all,
// which tracker logic must distinguish from an explicit zero.
type Params struct {
	Event      string
	IP         string
	IPv4       string
	IPv6       string
	PeerID     string
	Key        string
	Port       uint16
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	Corrupt    uint64
	NumWant    uint64
	Compact    string
	InfoHashes []types.InfoHash
}

// Exists records, per field in Params, whether the client sent that key.
type Exists struct {
	Event      bool
	IP         bool
	IPv4       bool
	IPv6       bool
	PeerID     bool
	Key        bool
	Port       bool
	Uploaded   bool
	Downloaded bool
	Left       bool
	Corrupt    bool
	NumWant    bool
	Compact    bool
	InfoHashes bool
}

type QueryParam struct {
	Params Params
	Exists Exists
}

// ParseQuery walks a fasthttp query-string (already percent-decoded by
// fasthttp.Args) and fills in the known announce/scrape fields. Unknown
// keys are silently ignored; info_hash is repeatable and is always
// collected into Params.InfoHashes rather than overwriting a single slot.
func ParseQuery(args *fasthttp.Args) (qp QueryParam, err error) {
	var visitErr error

	args.VisitAll(func(key, value []byte) {
		if visitErr != nil {
			return
		}

		switch string(key) {
		case "info_hash":
			hash, e := types.InfoHashFromBytes(value)
			if e != nil {
				return // malformed single info_hash is handled by the caller checking count
			}

			qp.Params.InfoHashes = append(qp.Params.InfoHashes, hash)
			qp.Exists.InfoHashes = true
		case "peer_id":
			qp.Params.PeerID = string(value)
			qp.Exists.PeerID = true
		case "event":
			qp.Params.Event = string(value)
			qp.Exists.Event = true
		case "ip":
			qp.Params.IP = string(value)
			qp.Exists.IP = true
		case "ipv4":
			qp.Params.IPv4 = string(value)
			qp.Exists.IPv4 = true
		case "ipv6":
			qp.Params.IPv6 = string(value)
			qp.Exists.IPv6 = true
		case "key":
			qp.Params.Key = string(value)
			qp.Exists.Key = true
		case "compact":
			qp.Params.Compact = string(value)
			qp.Exists.Compact = true
		case "port":
			qp.Params.Port, qp.Exists.Port = parseUint16(value)
		case "uploaded":
			qp.Params.Uploaded, qp.Exists.Uploaded = parseUint64(value)
		case "downloaded":
			qp.Params.Downloaded, qp.Exists.Downloaded = parseUint64(value)
		case "left":
			qp.Params.Left, qp.Exists.Left = parseUint64(value)
		case "corrupt":
			qp.Params.Corrupt, qp.Exists.Corrupt = parseUint64(value)
		case "numwant":
			qp.Params.NumWant, qp.Exists.NumWant = parseUint64(value)
		}
	})

	return qp, visitErr
}

func parseUint64(value []byte) (uint64, bool) {
	v, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func parseUint16(value []byte) (uint16, bool) {
	v, err := strconv.ParseUint(string(value), 10, 16)
	if err != nil {
		return 0, false
	}

	return uint16(v), true
}
