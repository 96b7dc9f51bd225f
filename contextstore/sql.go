/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package contextstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/rulego/pvflow/utils/str"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	// DefaultTable sql 模块默认表名
	DefaultTable = "pvflow_context"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SqlConfig sql 模块配置
type SqlConfig struct {
	// DriverName 数据库驱动名称，mysql或postgres
	DriverName string
	// Dsn 数据库连接配置，参考sql.Open参数
	Dsn string
	// Table 存储表名，默认pvflow_context
	Table string
}

// Validate checks the driver and table name before anything is opened.
func (c *SqlConfig) Validate() error {
	if c.DriverName != DriverMysql && c.DriverName != DriverPostgres {
		return fmt.Errorf("unsupported driver %q", c.DriverName)
	}
	if c.Dsn == "" {
		return errors.New("dsn can not be empty")
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if !tableNameRegex.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	return nil
}

// SqlBackend stores JSON encoded values in a two column table (k, v).
type SqlBackend struct {
	db         *sql.DB
	driverName string
	selectSql  string
	upsertSql  string
	deleteSql  string
	keysSql    string
}

var _ types.StorageBackend = (*SqlBackend)(nil)

// NewSqlBackendFromOptions is the sql module factory. It creates the table when missing.
func NewSqlBackendFromOptions(options map[string]interface{}) (types.StorageBackend, error) {
	var config SqlConfig
	if err := maps.Map2Struct(options, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	b := NewSqlBackend(db, config.DriverName, config.Table)
	if _, err = db.ExecContext(ctx, CreateTableSql(config.Table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", config.Table, err)
	}
	return b, nil
}

// NewSqlBackend wraps an open database. The table must exist.
func NewSqlBackend(db *sql.DB, driverName, table string) *SqlBackend {
	upsert := "INSERT INTO " + table + " (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)"
	if driverName == DriverPostgres {
		upsert = "INSERT INTO " + table + " (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v"
	}
	return &SqlBackend{
		db:         db,
		driverName: driverName,
		selectSql:  str.ConvertDollarPlaceholder("SELECT v FROM "+table+" WHERE k = ?", driverName),
		upsertSql:  str.ConvertDollarPlaceholder(upsert, driverName),
		deleteSql:  str.ConvertDollarPlaceholder("DELETE FROM "+table+" WHERE k = ?", driverName),
		keysSql:    str.ConvertDollarPlaceholder("SELECT k FROM "+table+" WHERE SUBSTR(k, 1, ?) = ?", driverName),
	}
}

// CreateTableSql returns the DDL of the context table.
func CreateTableSql(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " (k VARCHAR(255) PRIMARY KEY, v TEXT)"
}

func (b *SqlBackend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	var data string
	err := b.db.QueryRowContext(ctx, b.selectSql, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v interface{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *SqlBackend) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, b.upsertSql, key, string(data))
	return err
}

func (b *SqlBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, b.deleteSql, key)
	return err
}

func (b *SqlBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, b.keysSql, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *SqlBackend) Close() error {
	return b.db.Close()
}
