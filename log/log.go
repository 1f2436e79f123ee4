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

package log

import (
	"log"
	"os"
	"runtime/debug"
	"sync"
)

var (
	mu     sync.Mutex
	writer = log.Writer()
	flags  = log.Ldate | log.Ltime | log.LUTC | log.Lmsgprefix
)

var (
	Info    = log.New(writer, "[I] ", flags)
	Warning = log.New(writer, "[W] ", flags)
	Error   = log.New(writer, "[E] ", flags)
	Fatal   = log.New(writer, "[F] ", flags)
	Panic   = log.New(writer, "[P] ", flags)
)

// Reopen points all loggers at a freshly opened file, appending to it; an
// empty path leaves the current writer in place. The tracker's SIGHUP
// handler reloads the config only and does not call Reopen.
func Reopen(path string) error {
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	writer = f
	Info.SetOutput(writer)
	Warning.SetOutput(writer)
	Error.SetOutput(writer)
	Fatal.SetOutput(writer)
	Panic.SetOutput(writer)

	return nil
}

func WriteStack() {
	debug.PrintStack()
}
