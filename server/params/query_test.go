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

package params

import (
	"fmt"
	"net/url"
	"testing"

	"radiance/swarm/types"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

func randomInfoHash() types.InfoHash {
	var h types.InfoHash

	_, _ = util.UnsafeReadRand(h[:])

	return h
}

func TestParseQuery(t *testing.T) {
	infoHash := randomInfoHash()

	query := fmt.Sprintf("event=completed&port=25362&peer_id=-RA010-VnpZR7uz31I1A&left=0&info_hash=%s",
		url.QueryEscape(string(infoHash[:])))

	args := fasthttp.Args{}
	args.Parse(query)

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if !qp.Exists.Event || qp.Params.Event != "completed" {
		t.Fatalf("event not parsed, got %+v", qp.Params)
	}

	if !qp.Exists.Port || qp.Params.Port != 25362 {
		t.Fatalf("port not parsed, got %+v", qp.Params)
	}

	if !qp.Exists.PeerID || qp.Params.PeerID != "-RA010-VnpZR7uz31I1A" {
		t.Fatalf("peer_id not parsed, got %+v", qp.Params)
	}

	if !qp.Exists.Left || qp.Params.Left != 0 {
		t.Fatalf("left not parsed, got %+v", qp.Params)
	}

	if len(qp.Params.InfoHashes) != 1 || qp.Params.InfoHashes[0] != infoHash {
		t.Fatalf("info_hash not parsed, got %+v", qp.Params.InfoHashes)
	}
}

func TestParseQueryMissingFieldsDoNotExist(t *testing.T) {
	args := fasthttp.Args{}
	args.Parse("event=started")

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if qp.Exists.Port || qp.Exists.Left || qp.Exists.PeerID {
		t.Fatalf("expected absent keys to report Exists=false, got %+v", qp.Exists)
	}
}

func TestParseQueryMultipleInfoHashes(t *testing.T) {
	a, b := randomInfoHash(), randomInfoHash()

	query := "info_hash=" + url.QueryEscape(string(a[:])) + "&info_hash=" + url.QueryEscape(string(b[:]))

	args := fasthttp.Args{}
	args.Parse(query)

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if len(qp.Params.InfoHashes) != 2 {
		t.Fatalf("expected 2 info hashes, got %d", len(qp.Params.InfoHashes))
	}
}

func TestParseQueryMalformedInfoHashIgnored(t *testing.T) {
	args := fasthttp.Args{}
	args.Parse("info_hash=tooshort")

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if qp.Exists.InfoHashes {
		t.Fatalf("expected a short info_hash to be dropped, got %+v", qp.Params.InfoHashes)
	}
}

func TestParseQueryBadIntegerDoesNotExist(t *testing.T) {
	args := fasthttp.Args{}
	args.Parse("left=not-a-number")

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if qp.Exists.Left {
		t.Fatalf("expected unparseable left to report Exists=false, got %+v", qp.Params)
	}
}

func TestParseQueryCompactAndIPVariants(t *testing.T) {
	args := fasthttp.Args{}
	args.Parse("compact=1&ip=203.0.113.5&ipv6=%3A%3A1")

	qp, err := ParseQuery(&args)
	if err != nil {
		t.Fatal(err)
	}

	if !qp.Exists.Compact || qp.Params.Compact != "1" {
		t.Fatalf("compact not parsed, got %+v", qp.Params)
	}

	if !qp.Exists.IP || qp.Params.IP != "203.0.113.5" {
		t.Fatalf("ip not parsed, got %+v", qp.Params)
	}

	if !qp.Exists.IPv6 || qp.Params.IPv6 != "::1" {
		t.Fatalf("ipv6 not parsed, got %+v", qp.Params)
	}
}
