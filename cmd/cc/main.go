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

// cc is an offline debug tool that loads the tracker's swarm state the
// same way cmd/radiance does (straight from MySQL, via database.New) and
// dumps it as readable JSON, for inspecting a production swarm without
// attaching a debugger or querying the database by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"

	"radiance/config"
	"radiance/database"
	"radiance/swarm"
)

// Provided at compile-time
var (
	BuildDate    = "0000-00-00T00:00:00+0000"
	BuildVersion = "development"
)

func printHelp() {
	fmt.Printf("Usage of %s:\n", os.Args[0])
	fmt.Println("  dump       loads the swarm from the database and writes users.json/torrents.json")
}

func main() {
	fmt.Printf("cache utility for radiance, ver=%s date=%s runtime=%s\n\n",
		BuildVersion, BuildDate, runtime.Version())

	var configPath string

	flag.StringVar(&configPath, "c", "", "Path to radiance.conf")
	flag.Parse()

	if flag.NArg() < 1 || flag.Arg(0) != "dump" {
		printHelp()
		return
	}

	config.SetPath(configPath)

	store := swarm.NewStore()
	options := swarm.NewOptions()
	db := database.New(store, options)

	defer db.Terminate()

	writeJSON("users.json", snapshotUsers(store))
	writeJSON("torrents.json", snapshotTorrents(store))

	fmt.Println("...Done!")
}

func writeJSON(path string, v any) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		panic(err)
	}

	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "\t")

	if err := encoder.Encode(v); err != nil {
		panic(err)
	}
}
