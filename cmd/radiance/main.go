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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"radiance/config"
	"radiance/database"
	"radiance/log"
	"radiance/scheduler"
	"radiance/server"
	"radiance/sitecomm"
	"radiance/swarm"
)

var (
	pprof      string
	help       bool
	version    bool
	configPath string
)

// Provided at compile-time
var (
	BuildDate    = "0000-00-00T00:00:00+0000"
	BuildVersion = "development"
)

func init() {
	flag.StringVar(&pprof, "P", "", "Starts special pprof debug server on specified addr")
	flag.BoolVar(&help, "h", false, "Shows this help dialog")
	flag.BoolVar(&version, "v", false, "Prints the version and exits")
	flag.StringVar(&configPath, "c", "", "Path to radiance.conf")
}

func main() {
	flag.Parse()

	if help {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()

		return
	}

	if version {
		fmt.Printf("radiance, ver=%s date=%s runtime=%s\n", BuildVersion, BuildDate, runtime.Version())
		return
	}

	fmt.Printf("radiance, ver=%s date=%s runtime=%s, cpus=%d\n\n",
		BuildVersion, BuildDate, runtime.Version(), runtime.GOMAXPROCS(0))

	config.SetPath(configPath)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(pprof) > 0 {
		runtime.SetMutexProfileFraction(100)
		runtime.SetBlockProfileRate(100)

		go func() {
			l, err := net.Listen("tcp", pprof)
			if err != nil {
				slog.Error("failed to start special pprof debug server", "err", err)
				return
			}

			//nolint:gosec
			s := &http.Server{Handler: http.DefaultServeMux}

			slog.Warn("started special pprof debug server", "addr", l.Addr())

			_ = s.Serve(l)
		}()
	}

	store := swarm.NewStore()
	options := swarm.NewOptions()
	stats := swarm.NewStats(time.Now().Unix())

	db := database.New(store, options)
	sc := sitecomm.New()
	sched := scheduler.New(store, db, sc, stats)

	handler := server.NewHandler(store, db, options, stats)

	schedCtx, cancelSched := context.WithCancel(context.Background())
	go sched.Run(schedCtx)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

		for sig := range c {
			switch sig {
			case syscall.SIGHUP:
				log.Info.Println("caught SIGHUP, reloading config")
				config.Reload()
			case syscall.SIGUSR1:
				log.Info.Println("caught SIGUSR1, reloading lists from database")
				go db.LoadAll()
			default:
				log.Info.Println("caught interrupt, shutting down...")

				cancelSched()
				server.Stop()

				for !sched.AllClear() {
					time.Sleep(100 * time.Millisecond)
				}

				db.Terminate()
				os.Exit(0)
			}
		}
	}()

	log.Info.Println("starting main server loop...")
	server.Start(handler)
}
