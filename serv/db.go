package serv

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/microsoft/go-mssqldb"
)

const (
	driverName = "sqlserver"

	// minimum time between two connection attempts
	retryInterval = 500 * time.Millisecond
)

type dbConf struct {
	driverName string
	connString string
}

// NewDB opens the SQL Server database, retrying until it answers a ping
// or the configured number of attempts is used up.
func NewDB(ctx context.Context, conf *Config, log *zap.SugaredLogger) (*sql.DB, error) {
	dc := initMssql(conf)

	retries := conf.DB.ConnectRetries
	if retries <= 0 {
		retries = 1
	}

	var err error
	lim := rate.NewLimiter(rate.Every(retryInterval), 1)

	for i := 0; i < retries; i++ {
		var db *sql.DB

		if werr := lim.Wait(ctx); werr != nil {
			if err == nil {
				err = werr
			}
			return nil, errors.Wrap(err, "database ping")
		}

		if db, err = sql.Open(dc.driverName, dc.connString); err != nil {
			return nil, errors.Wrap(err, "database open")
		}

		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		db.Close() //nolint:errcheck
		log.Warnf("database ping: %s", err)
	}
	return nil, errors.Wrap(err, "database ping")
}

// initMssql builds the go-mssqldb connection string
func initMssql(conf *Config) dbConf {
	var connString string
	c := conf

	if c.DB.ConnString == "" {
		port := c.DB.Port
		if port == 0 {
			port = 1433
		}
		connString = fmt.Sprintf("sqlserver://%s:%s@%s:%d",
			url.PathEscape(c.DB.User), url.PathEscape(c.DB.Password), c.DB.Host, port)
	} else {
		connString = c.DB.ConnString
	}

	if c.DB.DBName != "" {
		connString += queryParamSep(connString) + "database=" + url.QueryEscape(c.DB.DBName)
	}

	if c.DB.Encrypt != nil {
		if *c.DB.Encrypt {
			connString += queryParamSep(connString) + "encrypt=true"
		} else {
			connString += queryParamSep(connString) + "encrypt=disable"
		}
	}
	if c.DB.TrustServerCertificate != nil && *c.DB.TrustServerCertificate {
		connString += queryParamSep(connString) + "trustservercertificate=true"
	}

	if c.AppName != "" {
		connString += queryParamSep(connString) + "app+name=" + url.QueryEscape(c.AppName)
	}

	return dbConf{driverName: driverName, connString: connString}
}

// queryParamSep returns "?" if no query params exist yet, otherwise "&"
func queryParamSep(s string) string {
	if strings.Contains(s, "?") {
		return "&"
	}
	return "?"
}
