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

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
)

// InfoHashSize is the length in bytes of a torrent's SHA-1 info-hash.
const InfoHashSize = 20

// PeerIDSize is the length in bytes of a BitTorrent peer-id.
const PeerIDSize = 20

// InfoHash is the 20-byte SHA-1 of a torrent's info dictionary, the
// primary in-memory key for a Torrent.
type InfoHash [InfoHashSize]byte

var (
	errWrongInfoHashSize = errors.New("wrong info_hash size")
	errWrongPeerIDSize   = errors.New("wrong peer_id size")
)

// InfoHashFromBytes builds an InfoHash from a raw (not hex-encoded) 20-byte
// string, as produced by percent-decoding an announce's info_hash parameter.
func InfoHashFromBytes(b []byte) (h InfoHash, err error) {
	if len(b) != InfoHashSize {
		return h, errWrongInfoHashSize
	}

	copy(h[:], b)

	return h, nil
}

//goland:noinspection GoMixedReceiverTypes
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

//goland:noinspection GoMixedReceiverTypes
func (h *InfoHash) Scan(src any) error {
	buf, ok := src.([]byte)
	if !ok {
		return errors.New("InfoHash.Scan: unsupported source type")
	}

	if len(buf) != InfoHashSize {
		return errWrongInfoHashSize
	}

	copy((*h)[:], buf)

	return nil
}

//goland:noinspection GoMixedReceiverTypes
func (h InfoHash) Value() (driver.Value, error) {
	return h[:], nil
}

// PeerID is a 20-byte client-chosen session identifier.
type PeerID [PeerIDSize]byte

// PeerIDFromBytes builds a PeerID from a raw 20-byte string.
func PeerIDFromBytes(b []byte) (id PeerID, err error) {
	if len(b) != PeerIDSize {
		return id, errWrongPeerIDSize
	}

	copy(id[:], b)

	return id, nil
}

//goland:noinspection GoMixedReceiverTypes
func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}
