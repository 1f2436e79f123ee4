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
	"math"
	"net"
	"slices"
	"testing"
	"time"

	"radiance/swarm/types"

	"github.com/zeebo/bencode"
)

func newTestPeer(ip string, port uint16, id types.PeerID) *types.Peer {
	p := &types.Peer{IPv4: net.ParseIP(ip), Port: port, ID: id}
	p.RefreshCompactAddresses()

	return p
}

var testPeers = []*types.Peer{
	newTestPeer("127.0.0.1", 12345, types.PeerID{1, 2, 3, 4}),
	newTestPeer("8.8.8.8", math.MaxInt16, types.PeerID{5, 6, 7, 8}),
	newTestPeer("1.1.10.10", 22, types.PeerID{0, 1, 2, 3, 4, 5}),
}

type testScrapeStats struct {
	complete, downloaded, incomplete, downloaders uint32
}

var testTorrents map[types.InfoHash]testScrapeStats

var testTorrentKeys []types.InfoHash

func init() {
	testTorrents = make(map[types.InfoHash]testScrapeStats)

	for i := 0; i < 8; i++ {
		stats := testScrapeStats{
			complete:    UnsafeUint32(),
			downloaded:  UnsafeUint32(),
			incomplete:  UnsafeUint32(),
			downloaders: UnsafeUint32(),
		}

		var tKey types.InfoHash
		_, _ = UnsafeReadRand(tKey[:])
		testTorrents[tKey] = stats
	}

	testTorrentKeys = make([]types.InfoHash, 0, len(testTorrents))
	for hash := range testTorrents {
		testTorrentKeys = append(testTorrentKeys, hash)
	}
	// pre-sort
	BencodeSortInfoHashKeys(testTorrentKeys)
}

func testBencodeFailure(t *testing.T, err string, interval time.Duration) {
	buf1 := new(bytes.Buffer)
	marshalerBencodeFailure(buf1, err, interval)

	buf2 := new(bytes.Buffer)
	BencodeFailure(buf2, err, interval)

	if slices.Compare(buf1.Bytes(), buf2.Bytes()) != 0 {
		t.Fatalf("expected \"%s\", got \"%s\"", buf1.Bytes(), buf2.Bytes())
	}
}

func testBencodeScrape(t *testing.T,
	scrapeInterval int,
	torrentKeys []types.InfoHash, torrents map[types.InfoHash]testScrapeStats) {
	buf1 := new(bytes.Buffer)
	marshalerBencodeScrape(buf1, scrapeInterval, torrentKeys, torrents)

	buf2 := new(bytes.Buffer)
	BencodeScrapeHeader(buf2)

	for _, k := range torrentKeys {
		stats := torrents[k]
		BencodeScrapeTorrent(buf2, k, int64(stats.complete), int64(stats.downloaded), int64(stats.incomplete), int64(stats.downloaders))
	}

	BencodeScrapeFooter(buf2, scrapeInterval)

	if slices.Compare(buf1.Bytes(), buf2.Bytes()) != 0 {
		t.Fatalf("expected \"%s\", got \"%s\"", buf1.Bytes(), buf2.Bytes())
	}
}

func testBencodeAnnounce(t *testing.T,
	complete, incomplete, downloaded int64,
	interval, minInterval int,
	peers []*types.Peer, compact, peerID bool) {
	buf1 := new(bytes.Buffer)
	marshalerBencodeAnnounce(buf1, complete, incomplete, downloaded, interval, minInterval, peers, compact, peerID)

	buf2 := new(bytes.Buffer)
	BencodeAnnounceHeader(buf2, complete, incomplete, downloaded, "", interval, minInterval)
	BencodeAnnouncePeers(buf2, peers, compact, peerID)
	BencodeAnnounceFooter(buf2)

	if slices.Compare(buf1.Bytes(), buf2.Bytes()) != 0 {
		t.Fatalf("expected \"%s\", got \"%s\"", buf1.Bytes(), buf2.Bytes())
	}
}

func marshalerBencode(buf *bytes.Buffer, data any) error {
	encoder := bencode.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return err
	}

	return nil
}

func marshalerBencodeFailure(buf *bytes.Buffer, err string, interval time.Duration) {
	data := make(map[string]any)
	data["failure reason"] = err

	if interval > 0 {
		data["interval"] = interval / time.Second // Assuming in seconds
	}

	errx := marshalerBencode(buf, data)
	if errx != nil {
		panic(errx)
	}
}

func marshalerBencodeScrape(buf *bytes.Buffer,
	scrapeInterval int,
	torrentKeys []types.InfoHash, torrents map[types.InfoHash]testScrapeStats) {
	data := make(map[string]any)
	data["flags"] = map[string]any{
		"min_request_interval": scrapeInterval,
	}

	files := make(map[string]bencode.RawMessage)

	for _, k := range torrentKeys {
		stats := torrents[k]

		// bug: upstream bencode library doesn't sort keys properly otherwise!
		kk := hex.EncodeToString(k[:])

		// The wire order puts downloaders after incomplete, which a
		// key-sorting encoder cannot produce, so each entry is assembled
		// from individually encoded keys and values.
		entry := new(bytes.Buffer)
		entry.WriteByte('d')

		for _, field := range []struct {
			key   string
			value uint32
		}{
			{"complete", stats.complete},
			{"downloaded", stats.downloaded},
			{"incomplete", stats.incomplete},
			{"downloaders", stats.downloaders},
		} {
			if errx := marshalerBencode(entry, field.key); errx != nil {
				panic(errx)
			}

			if errx := marshalerBencode(entry, field.value); errx != nil {
				panic(errx)
			}
		}

		entry.WriteByte('e')
		files[kk] = bencode.RawMessage(entry.Bytes())
	}

	data["files"] = files

	errx := marshalerBencode(buf, data)
	if errx != nil {
		panic(errx)
	}
}

func marshalerBencodeAnnounce(buf *bytes.Buffer,
	complete, incomplete, downloaded int64,
	interval, minInterval int,
	peers []*types.Peer, compact, peerID bool) {
	data := make(map[string]any)
	data["complete"] = complete
	data["incomplete"] = incomplete
	data["downloaded"] = downloaded
	data["interval"] = interval
	data["min interval"] = minInterval

	if compact {
		peerBuff := make([]byte, 0, len(peers)*types.PeerAddressV4Size)

		for _, other := range peers {
			peerBuff = append(peerBuff, other.IPv4Port...)
		}

		data["peers"] = peerBuff
	} else {
		peerList := make([]map[string]any, len(peers))

		for i, other := range peers {
			peerMap := map[string]any{
				"ip":   other.IPv4.String(),
				"port": other.Port,
			}

			if peerID {
				peerMap["peer id"] = other.ID[:]
			}

			peerList[i] = peerMap
		}

		data["peers"] = peerList
	}

	errx := marshalerBencode(buf, data)
	if errx != nil {
		panic(errx)
	}
}

func TestBencode(t *testing.T) {
	t.Run("Failure", func(t *testing.T) {
		testBencodeFailure(t, "test", 0)
		testBencodeFailure(t, "test with interval", 1*time.Hour)
		testBencodeFailure(t, "", 0)
	})

	t.Run("Announce", func(t *testing.T) {
		testBencodeAnnounce(t, 1234, 5678, 9101112, 60, 45, nil, true, false)
		testBencodeAnnounce(t, 1234, 5678, 9101112, 60, 45, nil, false, false)
		testBencodeAnnounce(t, 1234, 5678, 9101112, 60, 45, testPeers, true, false)
		testBencodeAnnounce(t, 1234, 5678, 9101112, 60, 45, testPeers, false, false)
		testBencodeAnnounce(t, 1234, 5678, 9101112, 60, 45, testPeers, false, true)
	})

	t.Run("Scrape", func(t *testing.T) {
		testBencodeScrape(t, 60, testTorrentKeys, testTorrents)
	})
}

func BenchmarkBencode(b *testing.B) {
	b.Run("Failure", func(b *testing.B) {
		b.Run("Native", func(b *testing.B) {
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				buf := bytes.NewBuffer(make([]byte, 0, 4096))

				for pb.Next() {
					buf.Reset()
					BencodeFailure(buf, "test with interval", 1*time.Hour)
				}
			})
		})

		b.Run("Marshaler", func(b *testing.B) {
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				buf := bytes.NewBuffer(make([]byte, 0, 4096))

				for pb.Next() {
					buf.Reset()
					marshalerBencodeFailure(buf, "test with interval", 1*time.Hour)
				}
			})
		})
	})

	b.Run("Announce", func(b *testing.B) {
		b.Run("Compact", func(b *testing.B) {
			b.Run("Native", func(b *testing.B) {
				b.ReportAllocs()
				b.RunParallel(func(pb *testing.PB) {
					buf := bytes.NewBuffer(make([]byte, 0, 4096))

					for pb.Next() {
						buf.Reset()
						BencodeAnnounceHeader(buf, 1234, 5678, 9101112, "", 60, 45)
						BencodeAnnouncePeers(buf, testPeers, true, false)
						BencodeAnnounceFooter(buf)
					}
				})
			})

			b.Run("Marshaler", func(b *testing.B) {
				b.ReportAllocs()
				b.RunParallel(func(pb *testing.PB) {
					buf := bytes.NewBuffer(make([]byte, 0, 4096))

					for pb.Next() {
						buf.Reset()
						marshalerBencodeAnnounce(buf, 1234, 5678, 9101112, 60, 45, testPeers, true, false)
					}
				})
			})
		})
		b.Run("Default", func(b *testing.B) {
			b.Run("Native", func(b *testing.B) {
				b.ReportAllocs()
				b.RunParallel(func(pb *testing.PB) {
					buf := bytes.NewBuffer(make([]byte, 0, 4096))

					for pb.Next() {
						buf.Reset()
						BencodeAnnounceHeader(buf, 1234, 5678, 9101112, "", 60, 45)
						BencodeAnnouncePeers(buf, testPeers, false, false)
						BencodeAnnounceFooter(buf)
					}
				})
			})

			b.Run("Marshaler", func(b *testing.B) {
				b.ReportAllocs()
				b.RunParallel(func(pb *testing.PB) {
					buf := bytes.NewBuffer(make([]byte, 0, 4096))

					for pb.Next() {
						buf.Reset()
						marshalerBencodeAnnounce(buf, 1234, 5678, 9101112, 60, 45, testPeers, false, false)
					}
				})
			})
		})
	})

	b.Run("Scrape", func(b *testing.B) {
		b.Run("Native", func(b *testing.B) {
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				buf := bytes.NewBuffer(make([]byte, 0, 4096))

				for pb.Next() {
					buf.Reset()
					BencodeScrapeHeader(buf)

					for _, k := range testTorrentKeys {
						stats := testTorrents[k]
						BencodeScrapeTorrent(buf, k,
							int64(stats.complete),
							int64(stats.downloaded),
							int64(stats.incomplete),
							0,
						)
					}

					BencodeScrapeFooter(buf, 60)
				}
			})
		})

		b.Run("Marshaler", func(b *testing.B) {
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				buf := bytes.NewBuffer(make([]byte, 0, 4096))

				for pb.Next() {
					buf.Reset()
					marshalerBencodeScrape(buf, 60, testTorrentKeys, testTorrents)
				}
			})
		})
	})
}
