package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	_ "modernc.org/sqlite"             // registers "sqlite" (pure Go)
)

// Supported drivers.
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite
	DriverPostgres = "postgres" // jackc/pgx via database/sql
)

// dialect captures the SQL differences between the supported engines.
// Statements are written with '?' placeholders and rebound on use.
type dialect struct {
	name       string
	driverName string
	numbered   bool   // $1, $2, ... placeholders
	like       string // case-insensitive substring operator
	idColumn   string // auto-assigned integer primary key
	refType    string // column type referencing an auto-assigned id
	intType    string
	floatType  string
	noLimit    string // LIMIT operand meaning "all rows"
}

var dialects = map[string]dialect{
	DriverSQLite3: {
		name:       DriverSQLite3,
		driverName: "sqlite3",
		like:       "LIKE",
		idColumn:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		refType:    "INTEGER",
		intType:    "INTEGER",
		floatType:  "REAL",
		noLimit:    "-1",
	},
	DriverSQLite: {
		name:       DriverSQLite,
		driverName: "sqlite",
		like:       "LIKE",
		idColumn:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		refType:    "INTEGER",
		intType:    "INTEGER",
		floatType:  "REAL",
		noLimit:    "-1",
	},
	DriverPostgres: {
		name:       DriverPostgres,
		driverName: "pgx",
		numbered:   true,
		like:       "ILIKE",
		idColumn:   "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		refType:    "BIGINT",
		intType:    "BIGINT",
		floatType:  "DOUBLE PRECISION",
		noLimit:    "ALL",
	},
}

func lookupDialect(driver string) (dialect, error) {
	if driver == "" {
		driver = DriverSQLite3
	}
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unknown driver %q (use %s, %s or %s)",
			driver, DriverSQLite3, DriverSQLite, DriverPostgres)
	}
	return d, nil
}

func (d dialect) isSQLite() bool {
	return d.name == DriverSQLite3 || d.name == DriverSQLite
}

// rebind rewrites '?' placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// dsn builds the connection string for a file-backed SQLite database.
// Foreign keys must be enforced on every connection.
func (d dialect) dsn(path string, wal bool) string {
	switch d.name {
	case DriverSQLite3:
		params := "?_foreign_keys=on&_busy_timeout=5000"
		if wal {
			params += "&_journal_mode=WAL"
		}
		return path + params
	case DriverSQLite:
		params := "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		if wal {
			params += "&_pragma=journal_mode(WAL)"
		}
		return path + params
	}
	return path
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// paginate renders LIMIT/OFFSET. Non-positive values impose nothing.
func (d dialect) paginate(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", d.noLimit, offset)
	}
	return ""
}
