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

package database

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"radiance/config"
	"radiance/log"

	_ "github.com/go-sql-driver/mysql"
)

// Pool is a fixed-size set of open MySQL connections, grabbed by drain
// workers via Grab and returned via Release. It is deliberately not
// database/sql's own pool: an explicit fixed size with blocking grab
// semantics and an in-use set for diagnostics, rather than sql.DB's
// elastic pool.
type Pool struct {
	mu      sync.Mutex
	free    []*sql.DB
	inUse   map[*sql.DB]struct{}
	dbs     []*sql.DB
}

var defaultDsn = map[string]string{
	"username": "radiance",
	"password": "",
	"proto":    "tcp",
	"addr":     "127.0.0.1:3306",
	"database": "radiance",
}

func dsn() string {
	if v := os.Getenv("DB_DSN"); v != "" {
		return v
	}

	dbConfig := config.Section("database")
	username := dbConfig.Get("username", defaultDsn["username"])
	password := dbConfig.Get("password", defaultDsn["password"])
	proto := dbConfig.Get("proto", defaultDsn["proto"])
	addr := dbConfig.Get("addr", defaultDsn["addr"])
	database := dbConfig.Get("database", defaultDsn["database"])

	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true", username, password, proto, addr, database)
}

// NewPool opens size independent *sql.DB handles, each backed by its own
// single-connection pool (MaxOpenConns=1) so Pool's own grab/release
// bookkeeping, not database/sql's, decides which handle is in use.
func NewPool(size int) *Pool {
	p := &Pool{
		inUse: make(map[*sql.DB]struct{}, size),
	}

	for i := 0; i < size; i++ {
		db, err := sql.Open("mysql", dsn())
		if err != nil {
			log.Fatal.Fatalf("couldn't open database connection: %s", err)
		}

		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err = db.Ping(); err != nil {
			log.Fatal.Fatalf("couldn't ping database: %s", err)
		}

		p.dbs = append(p.dbs, db)
		p.free = append(p.free, db)
	}

	return p
}

// grabPollInterval is how often Grab retries against an exhausted pool; a
// package variable rather than a literal so tests can shrink it.
var grabPollInterval = time.Second

// Grab returns a connection from the free list, blocking (retrying at
// grabPollInterval) until one becomes available.
func (p *Pool) Grab() *sql.DB {
	for {
		p.mu.Lock()

		if n := len(p.free); n > 0 {
			db := p.free[n-1]
			p.free = p.free[:n-1]
			p.inUse[db] = struct{}{}
			p.mu.Unlock()

			return db
		}

		p.mu.Unlock()

		time.Sleep(grabPollInterval)
	}
}

// Release returns a connection grabbed via Grab to the free list.
func (p *Pool) Release(db *sql.DB) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inUse, db)
	p.free = append(p.free, db)
}

// InUseCount reports how many connections are currently checked out, for
// diagnostic reporting.
func (p *Pool) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.inUse)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error

	for _, db := range p.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
