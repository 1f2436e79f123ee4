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
	"bytes"
	"net"
	"strings"
	"sync"
	"time"

	"radiance/config"
	"radiance/log"
	"radiance/util"

	"github.com/valyala/fasthttp"
)

var (
	fastServer *fasthttp.Server
	listener   net.Listener

	bufferPool *util.BufferPool
	waitGroup  sync.WaitGroup
	terminate  bool

	activeHandler *Handler
)

// Start spawns the fasthttp acceptor. The address in [http].addr may carry
// a "unix:" prefix to select an AF_UNIX socket instead of TCP.
func Start(h *Handler) {
	activeHandler = h
	bufferPool = util.NewBufferPool(512)

	httpConfig := config.Section("http")
	addr := httpConfig.Get("addr", ":34000")
	readTimeout := time.Duration(httpConfig.GetInt("read_timeout", 2)) * time.Second
	writeTimeout := time.Duration(httpConfig.GetInt("write_timeout", 2)) * time.Second
	idleTimeout := time.Duration(httpConfig.GetInt("idle_timeout", 30)) * time.Second
	maxRequestSize := httpConfig.GetInt("max_request_size", 4096)

	fastServer = &fasthttp.Server{
		Handler:            requestHandler,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		MaxRequestBodySize: maxRequestSize,
		CloseOnShutdown:    true,
	}

	var err error

	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		listener, err = net.Listen("unix", path)
	} else {
		listener, err = net.Listen("tcp", addr)
	}

	if err != nil {
		log.Fatal.Fatalf("failed to listen on %s: %s", addr, err)
	}

	log.Info.Printf("Ready and accepting new connections on %s", addr)

	if err := fastServer.Serve(listener); err != nil && !terminate {
		log.Error.Printf("server exited: %s", err)
	}

	waitGroup.Wait()

	log.Info.Println("Now closed and not accepting any new connections")
}

// Stop closes the listener, causing Serve to return; in-flight requests
// are allowed to finish via waitGroup before Start returns.
func Stop() {
	terminate = true

	if listener != nil {
		_ = listener.Close()
	}
}

// requestHandler implements the fixed-layout path parsing: "/robots.txt",
// "/metrics", or "/<32-char passkey>/<verb>".
func requestHandler(ctx *fasthttp.RequestCtx) {
	waitGroup.Add(1)

	defer waitGroup.Done()

	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("request handler panic - %v\nURL was: %s", r, ctx.URI())
			log.WriteStack()

			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		}
	}()

	path := string(ctx.Path())

	if path == "/robots.txt" {
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("User-agent: *\nDisallow: /\n")

		return
	}

	if path == "/metrics" {
		activeHandler.Metrics(ctx)
		return
	}

	passkey, verb, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok || passkey == "" || verb == "" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	buf := bufferPool.Take()
	defer bufferPool.Give(buf)

	switch verb {
	case "announce":
		dispatchAnnounce(ctx, passkey, buf)
	case "scrape":
		dispatchScrape(ctx, passkey, buf)
	case "update":
		dispatchAdmin(ctx, passkey, buf)
	case "report":
		dispatchReport(ctx, passkey, buf)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	if buf.Len() > 0 {
		ctx.SetContentType("text/plain")
		ctx.SetBody(buf.Bytes())
	}
}

func dispatchAnnounce(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) {
	user := isPasskeyValid(passkey, activeHandler.Store)
	if user == nil {
		failure("Your passkey is invalid", buf, time.Hour)
		return
	}

	activeHandler.Announce(ctx, user, buf)
}

func dispatchScrape(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) {
	if isPasskeyValid(passkey, activeHandler.Store) == nil {
		failure("Your passkey is invalid", buf, time.Hour)
		return
	}

	activeHandler.Scrape(ctx, buf)
}

// dispatchAdmin gates the "update" verb on [site].password; a mismatch
// gets the same bencoded failure envelope announce/scrape use rather than
// a bare HTTP error.
func dispatchAdmin(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) {
	if passkey != config.Section("site").Get("password", "") {
		failure("Authentication failure", buf, time.Hour)
		return
	}

	activeHandler.Admin(ctx, buf)
}

func dispatchReport(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) {
	if passkey != config.Section("site").Get("report_password", "") {
		failure("Authentication failure", buf, time.Hour)
		return
	}

	activeHandler.Report(ctx, buf)
}
