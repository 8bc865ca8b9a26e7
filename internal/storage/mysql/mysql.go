// Package mysql reads customer and order input from MySQL or MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DB wraps sql.DB for dependency injection.
type DB struct {
	*sql.DB
}

// Open connects using a mysql:// or mariadb:// URL, or a native driver DSN.
func Open(ctx context.Context, dsn string) (*DB, error) {
	driverDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return &DB{DB: db}, nil
}

// toMySQLDSN converts URL-style DSNs to the driver format. Native DSNs pass
// through after validation.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}

	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true

	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("mysql dsn %q: user, host and database are required", u.Redacted())
	}
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}

	return cfg.FormatDSN(), nil
}
