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

package util

import (
	"bytes"
	"encoding/hex"
	"slices"
	"strconv"
	"time"

	"radiance/swarm/types"
)

func bencodeWriteInt64[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	// Static allocation, length of max int64
	var lenBuf [20]byte

	buf.Write(strconv.AppendInt(lenBuf[:0], int64(v), 10))
}

func bencodeWriteString[T ~string | ~[]byte](buf *bytes.Buffer, v T) {
	bencodeWriteInt64(buf, len(v))
	buf.WriteByte(':')
	buf.Write([]byte(v))
}

func bencodeWriteNumber[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	buf.WriteByte('i')
	bencodeWriteInt64(buf, v)
	buf.WriteByte('e')
}

func BencodeFailure(buf *bytes.Buffer, err string, interval time.Duration) {
	if interval < 0 {
		panic("bencode: negative interval")
	}

	buf.WriteByte('d')

	bencodeWriteString(buf, "failure reason")
	bencodeWriteString(buf, err)

	if interval > 0 {
		bencodeWriteString(buf, "interval")
		bencodeWriteNumber(buf, interval/time.Second)
	}

	buf.WriteByte('e')
}

func BencodeSortInfoHashKeys(keys []types.InfoHash) {
	slices.SortFunc(keys, func(a, b types.InfoHash) int {
		return slices.Compare(a[:], b[:])
	})
}

// BencodeScrapeHeader writes the scrape header.
// Call BencodeScrapeTorrent afterwards, then finish with BencodeScrapeFooter.
func BencodeScrapeHeader(buf *bytes.Buffer) {
	buf.WriteByte('d')

	bencodeWriteString(buf, "files")

	buf.WriteByte('d')
}

// BencodeScrapeTorrent writes one torrent's scrape entry. downloaders is
// the count of leechers actively transferring, distinct from incomplete
// (every leecher, paused or not) per original_source/src/worker.cpp's
// scrape response ("incomplete" = tor.leechers.size(), "downloaders" =
// tor.leechers.size() - tor.paused).
func BencodeScrapeTorrent(buf *bytes.Buffer, infoHash types.InfoHash, complete, downloaded, incomplete, downloaders int64) {
	// Convert to hex inline
	var hashBuf [types.InfoHashSize * 2]byte

	hex.Encode(hashBuf[:], infoHash[:])
	bencodeWriteString(buf, hashBuf[:])

	buf.WriteByte('d')

	bencodeWriteString(buf, "complete")
	bencodeWriteNumber(buf, complete)

	bencodeWriteString(buf, "downloaded")
	bencodeWriteNumber(buf, downloaded)

	bencodeWriteString(buf, "incomplete")
	bencodeWriteNumber(buf, incomplete)

	bencodeWriteString(buf, "downloaders")
	bencodeWriteNumber(buf, downloaders)

	buf.WriteByte('e')
}

func BencodeScrapeFooter(buf *bytes.Buffer, scrapeInterval int) {
	buf.WriteByte('e')

	bencodeWriteString(buf, "flags")

	buf.WriteByte('d')

	bencodeWriteString(buf, "min_request_interval")
	bencodeWriteNumber(buf, scrapeInterval)

	buf.WriteByte('e')

	buf.WriteByte('e')
}

// BencodeAnnounceHeader writes the announce response's leading keys, in
// order: complete, downloaded, external ip (only if known), incomplete,
// interval, min interval. Callers follow
// with BencodeAnnouncePeers, optionally BencodeAnnouncePeers6, then
// BencodeAnnounceFooter.
func BencodeAnnounceHeader(buf *bytes.Buffer, complete, incomplete, downloaded int64, externalIP string, interval, minInterval int) {
	buf.WriteByte('d')

	bencodeWriteString(buf, "complete")
	bencodeWriteNumber(buf, complete)

	bencodeWriteString(buf, "downloaded")
	bencodeWriteNumber(buf, downloaded)

	if externalIP != "" {
		bencodeWriteString(buf, "external ip")
		bencodeWriteString(buf, externalIP)
	}

	bencodeWriteString(buf, "incomplete")
	bencodeWriteNumber(buf, incomplete)

	bencodeWriteString(buf, "interval")
	bencodeWriteNumber(buf, interval)

	bencodeWriteString(buf, "min interval")
	bencodeWriteNumber(buf, minInterval)
}

// BencodeAnnouncePeers writes the "peers" (IPv4) key, compact or
// expanded per the client's request.
func BencodeAnnouncePeers(buf *bytes.Buffer, peers []*types.Peer, compact, peerID bool) {
	bencodeWriteString(buf, "peers")
	bencodeAnnouncePeerList(buf, peers, compact, peerID, true)
}

// BencodeAnnouncePeers6 writes the "peers6" (IPv6) key. Omit the key
// entirely when there is nothing to report; skip calling this when peers
// is empty.
func BencodeAnnouncePeers6(buf *bytes.Buffer, peers []*types.Peer, compact, peerID bool) {
	bencodeWriteString(buf, "peers6")
	bencodeAnnouncePeerList(buf, peers, compact, peerID, false)
}

func bencodeAnnouncePeerList(buf *bytes.Buffer, peers []*types.Peer, compact, peerID, v4 bool) {
	if compact {
		size := types.PeerAddressV4Size
		if !v4 {
			size = types.PeerAddressV6Size
		}

		bencodeWriteInt64(buf, len(peers)*size)
		buf.WriteByte(':')

		for _, peer := range peers {
			if v4 {
				buf.Write(peer.IPv4Port)
			} else {
				buf.Write(peer.IPv6Port)
			}
		}

		return
	}

	buf.WriteByte('l')

	for _, peer := range peers {
		buf.WriteByte('d')

		ip := peer.IPv4
		if !v4 {
			ip = peer.IPv6
		}

		ipStr := ip.String()

		bencodeWriteString(buf, "ip")
		bencodeWriteString(buf, ipStr)

		if peerID {
			bencodeWriteString(buf, "peer id")
			bencodeWriteString(buf, peer.ID[:])
		}

		bencodeWriteString(buf, "port")
		bencodeWriteNumber(buf, int64(peer.Port))

		buf.WriteByte('e')
	}

	buf.WriteByte('e')
}

func BencodeAnnounceFooter(buf *bytes.Buffer) {
	buf.WriteByte('e')
}
