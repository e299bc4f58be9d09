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
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/queryforge/sqlbeam/internal/equivalence"
)

// postgresConnection is a Connection backed by a single pgx pool connection,
// acquired once and held for the benchmark call's lifetime.
type postgresConnection struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

// OpenPostgres implements ConnectionFactory for PostgreSQL. It parses the
// DSN with lib/pq first (fatal configuration error path, spec.md §7 kind 1)
// before handing the URI to pgx, so a malformed DSN fails fast with a clear
// message instead of pgx's lower-level parse error.
func OpenPostgres(ctx context.Context, spec ConnectionSpec) (Connection, error) {
	if _, err := pq.ParseURL(spec.URI); err != nil {
		return nil, fmt.Errorf("bench: invalid postgres DSN: %w", err)
	}

	pool, err := pgxpool.New(ctx, spec.URI)
	if err != nil {
		return nil, fmt.Errorf("bench: postgres pool: %w", err)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bench: postgres acquire: %w", err)
	}
	return &postgresConnection{pool: pool, conn: conn}, nil
}

func (c *postgresConnection) Query(ctx context.Context, sql string) (equivalence.ResultSet, error) {
	rows, err := c.conn.Query(ctx, sql)
	if err != nil {
		return equivalence.ResultSet{}, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var result equivalence.ResultSet
	result.Columns = columns
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return equivalence.ResultSet{}, err
		}
		row := make(equivalence.Row, len(vals))
		for i, v := range vals {
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return equivalence.ResultSet{}, err
	}
	return result, nil
}

func (c *postgresConnection) Explain(ctx context.Context, sql string) (string, error) {
	rows, err := c.conn.Query(ctx, "EXPLAIN "+sql)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return "", err
		}
		if len(vals) > 0 {
			lines = append(lines, fmt.Sprint(vals[0]))
		}
	}
	return joinLines(lines), rows.Err()
}

func (c *postgresConnection) Close() error {
	c.conn.Release()
	c.pool.Close()
	return nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
