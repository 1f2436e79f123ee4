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
	"encoding/binary"
	"net"
	"strconv"
)

// PeerKey is the synthetic per-torrent map key: one scrambling byte
// taken from the peer-id at offset 12+(torrent.id%8),
// followed by the decimal user id, followed by the full 20-byte peer id.
// The scrambling byte randomizes hash-bucket iteration order across
// torrents; the user id makes peer-id collisions across users practically
// impossible.
type PeerKey string

// NewPeerKey builds a PeerKey for (torrentID, userID, peerID).
func NewPeerKey(torrentID uint32, userID uint32, peerID PeerID) PeerKey {
	scramble := peerID[12+(torrentID%8)]

	buf := make([]byte, 0, 1+10+PeerIDSize)
	buf = append(buf, scramble)
	buf = strconv.AppendUint(buf, uint64(userID), 10)
	buf = append(buf, peerID[:]...)

	return PeerKey(buf)
}

// PeerID extracts the trailing 20-byte peer-id from a PeerKey.
func (k PeerKey) PeerID() (id PeerID) {
	s := string(k)
	copy(id[:], s[len(s)-PeerIDSize:])

	return id
}

// PeerAddressV4Size is the size of a compact IPv4 peer record: 4 bytes of
// address followed by a 2-byte big-endian port.
const PeerAddressV4Size = 6

// PeerAddressV6Size is the size of a compact IPv6 peer record.
const PeerAddressV6Size = 18

// PackAddress builds the "ip bytes || port_hi || port_lo" compact record
// used verbatim in announce responses.
func PackAddress(ip net.IP, port uint16) []byte {
	buf := make([]byte, len(ip)+2)
	copy(buf, ip)
	binary.BigEndian.PutUint16(buf[len(ip):], port)

	return buf
}

// Peer is the value stored in a Torrent's seeder/leecher map.
type Peer struct {
	User   *User
	Domain *Domain

	ID PeerID

	IPv4     net.IP
	IPv6     net.IP
	IPv4Port []byte // 6 bytes: ipv4 || port, recomputed on change
	IPv6Port []byte // 18 bytes: ipv6 || port, recomputed on change
	Port     uint16

	Uploaded   uint64
	Downloaded uint64
	Corrupt    uint64
	Left       uint64
	Announces  uint64

	FirstAnnounced int64
	LastAnnounced  int64

	Visible bool
	Paused  bool
}

// RefreshCompactAddresses recomputes IPv4Port/IPv6Port; call whenever
// port, IPv4, or IPv6 changes.
func (p *Peer) RefreshCompactAddresses() {
	if p.IPv4 != nil {
		p.IPv4Port = PackAddress(p.IPv4.To4(), p.Port)
	} else {
		p.IPv4Port = nil
	}

	if p.IPv6 != nil {
		p.IPv6Port = PackAddress(p.IPv6.To16(), p.Port)
	} else {
		p.IPv6Port = nil
	}
}
