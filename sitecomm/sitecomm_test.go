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

package sitecomm

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSiteComm(t *testing.T, handler http.HandlerFunc) *SiteComm {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %s", err)
	}

	return &SiteComm{
		client: srv.Client(),
		host:   u.Host,
		path:   "",
	}
}

func testFlushTokensSendsBatch(t *testing.T) {
	var gotQuery atomic.Value

	sc := newTestSiteComm(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		w.WriteHeader(http.StatusOK)
	})

	sc.ExpireToken(1, 2)
	sc.ExpireToken(3, 4)
	sc.FlushTokens()

	deadline := time.Now().Add(time.Second)
	for !sc.AllClear() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for flush to drain")
		}

		time.Sleep(time.Millisecond)
	}

	q, _ := gotQuery.Load().(string)
	if q == "" {
		t.Fatal("expected the webhook to have been called")
	}
}

func testFlushTokensRetriesOnFailure(t *testing.T) {
	var calls atomic.Int32

	sc := newTestSiteComm(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	sc.ExpireToken(1, 2)
	sc.FlushTokens()

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for first attempt")
		}

		time.Sleep(time.Millisecond)
	}

	if sc.AllClear() {
		t.Fatal("expected batch to remain queued after a failed send")
	}
}

func testReadonlyDropsTokens(t *testing.T) {
	sc := newTestSiteComm(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("readonly sitecomm must never call the webhook")
	})
	sc.readonly = true

	sc.ExpireToken(1, 2)
	sc.FlushTokens()

	if !sc.AllClear() {
		t.Fatal("expected readonly sitecomm to report all clear")
	}
}

func TestSiteComm(t *testing.T) {
	t.Run("FlushTokensSendsBatch", testFlushTokensSendsBatch)
	t.Run("FlushTokensRetriesOnFailure", testFlushTokensRetriesOnFailure)
	t.Run("ReadonlyDropsTokens", testReadonlyDropsTokens)
}
