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
	"os"
	"strconv"
	"sync"
	"time"

	"radiance/config"
	"radiance/log"
	"radiance/util"
)

var (
	eventLogOnce    sync.Once
	eventLogChan    chan []byte
	eventLogEnabled bool
)

func eventLogFile(t time.Time) (*os.File, error) {
	return os.OpenFile("events/events_"+t.Format("2006-01-02T15")+".json",
		os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
}

// initEventLog starts the rotating writer goroutine the first time it's
// needed; a no-op when [general].record isn't enabled.
func initEventLog() {
	eventLogOnce.Do(func() {
		eventLogEnabled = config.Section("general").GetBool("record", false)
		if !eventLogEnabled {
			return
		}

		if err := os.Mkdir("events", 0755); err != nil && !os.IsExist(err) {
			log.Fatal.Fatalf("failed to create events directory: %s", err)
		}

		start := time.Now()
		eventLogChan = make(chan []byte)

		file, err := eventLogFile(start)
		if err != nil {
			log.Fatal.Fatalf("failed to open event log: %s", err)
		}

		go func() {
			for buf := range eventLogChan {
				now := time.Now()
				if now.Hour() != start.Hour() {
					start = now

					if err := file.Close(); err != nil {
						log.Error.Printf("closing event log: %s", err)
					}

					file, err = eventLogFile(start)
					if err != nil {
						log.Fatal.Fatalf("failed to open event log: %s", err)
					}
				}

				if _, err := file.Write(buf); err != nil {
					log.Error.Printf("writing event log: %s", err)
				}
			}
		}()
	})
}

// recordEvent appends one announce's accounted delta to the hourly
// events/events_<hour>.json file as a JSON array line. Accounting-neutral
// announces (no upload or download movement) are skipped.
func recordEvent(torrentID, userID uint32, ip net.IP, port uint16, event string, seeding bool, deltaUp, deltaDown int64, up, down, left uint64) {
	initEventLog()

	if !eventLogEnabled {
		return
	}

	if deltaUp == 0 && deltaDown == 0 {
		return
	}

	b := make([]byte, 0, 64)
	buf := bytes.NewBuffer(b)

	buf.WriteString("[")
	buf.WriteString(strconv.FormatUint(uint64(torrentID), 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(uint64(userID), 10))
	buf.WriteString(",\"")
	buf.WriteString(ip.String())
	buf.WriteString("\",")
	buf.WriteString(strconv.FormatUint(uint64(port), 10))
	buf.WriteString(",\"")
	buf.WriteString(event)
	buf.WriteString("\",")
	buf.WriteString(util.Btoa(seeding))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatInt(deltaUp, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatInt(deltaDown, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(up, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(down, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(left, 10))
	buf.WriteString("]\n")

	eventLogChan <- buf.Bytes()
}
