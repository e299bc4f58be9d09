// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bench

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/queryforge/sqlbeam/internal/equivalence"
)

// duckdbDriverName is the database/sql driver name a deployment must
// register (e.g. via a CGo DuckDB driver import) before OpenDuckDB can be
// used. The retrieval pack carries no Go DuckDB driver example (see
// DESIGN.md); this file wires the single-connection contract against
// whatever driver is registered under this name rather than vendoring one.
const duckdbDriverName = "duckdb"

type duckdbConnection struct {
	db   *sql.DB
	conn *sql.Conn
}

// OpenDuckDB implements ConnectionFactory for DuckDB file-backed databases.
func OpenDuckDB(ctx context.Context, spec ConnectionSpec) (Connection, error) {
	db, err := sql.Open(duckdbDriverName, spec.URI)
	if err != nil {
		return nil, fmt.Errorf("bench: opening duckdb %q (driver %q must be registered): %w", spec.URI, duckdbDriverName, err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bench: duckdb connection: %w", err)
	}
	return &duckdbConnection{db: db, conn: conn}, nil
}

func (c *duckdbConnection) Query(ctx context.Context, query string) (equivalence.ResultSet, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return equivalence.ResultSet{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return equivalence.ResultSet{}, err
	}
	var result equivalence.ResultSet
	result.Columns = cols

	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return equivalence.ResultSet{}, err
		}
		result.Rows = append(result.Rows, equivalence.Row(raw))
	}
	return result, rows.Err()
}

func (c *duckdbConnection) Explain(ctx context.Context, query string) (string, error) {
	rows, err := c.conn.QueryContext(ctx, "EXPLAIN "+query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			// DuckDB's EXPLAIN returns a single text column on some
			// versions; fall back to a single-value scan.
			var single string
			if err2 := rows.Scan(&single); err2 != nil {
				return "", err
			}
			out += single + "\n"
			continue
		}
		out += a + " " + b + "\n"
	}
	return out, rows.Err()
}

func (c *duckdbConnection) Close() error {
	c.conn.Close()
	return c.db.Close()
}
