// Package serv wires the spatial dialect to its runtime: configuration,
// logging, the feature type catalog and the SQL Server connection.
package serv

import (
	"context"
	"database/sql"
	"io"
	"os"
	"sync"

	"github.com/dosco/sqlgeo/core"
	"github.com/dosco/sqlgeo/serv/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Service holds everything a command needs to compile and run queries
type Service struct {
	conf    *Config
	zlog    *zap.Logger
	log     *zap.SugaredLogger
	gd      *core.SpatialDialect
	catalog *core.Catalog

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

type Option func(*Service) error

// NewLogger creates a logger writing to w at the given level, in JSON or
// as colored console output
func NewLogger(w io.Writer, json bool, level string) *zap.Logger {
	return util.NewLogger(w, json, level)
}

// NewService creates the service, the database is only opened when
// first needed.
func NewService(conf *Config, options ...Option) (s *Service, err error) {
	if conf == nil {
		return nil, errors.New("config is nil")
	}
	s = &Service{conf: conf}

	for _, op := range options {
		if err = op(s); err != nil {
			return nil, err
		}
	}

	if s.zlog == nil {
		s.zlog = util.NewLogger(os.Stderr, conf.ShouldUseJSONLogs(), conf.LogLevel)
	}
	s.zlog = s.zlog.Named(conf.AppName)
	s.log = s.zlog.Sugar()

	if s.gd, err = core.New(conf.Core, core.OptionSetLogger(s.zlog)); err != nil {
		return nil, errors.Wrap(err, "creating dialect")
	}

	if s.catalog, err = conf.LoadCatalog(); err != nil {
		return nil, err
	}
	return s, nil
}

// OptionSetDB sets the database instead of opening one from the config
func OptionSetDB(db *sql.DB) Option {
	return func(s *Service) error {
		s.dbOnce.Do(func() { s.db = db })
		return nil
	}
}

// OptionSetLogger sets the logger
func OptionSetLogger(log *zap.Logger) Option {
	return func(s *Service) error {
		s.zlog = log
		return nil
	}
}

// OptionSetFS sets the file system the catalog is read from
func OptionSetFS(fs afero.Fs) Option {
	return func(s *Service) error {
		s.conf.SetFS(fs)
		return nil
	}
}

func (s *Service) Dialect() *core.SpatialDialect {
	return s.gd
}

func (s *Service) Log() *zap.SugaredLogger {
	return s.log
}

func (s *Service) Catalog() *core.Catalog {
	return s.catalog
}

// DB returns the database, opening it on the first call
func (s *Service) DB(ctx context.Context) (*sql.DB, error) {
	s.dbOnce.Do(func() {
		s.db, s.dbErr = NewDB(ctx, s.conf, s.log)
	})
	return s.db, s.dbErr
}

// FeatureType looks up table in the catalog. Tables not in the catalog
// are read from the database. A table without a schema uses the
// configured default schema.
func (s *Service) FeatureType(ctx context.Context, table string) (*core.FeatureType, error) {
	t := core.ParseTable(table)
	if t.Name == "" {
		return nil, errors.New("table name is empty")
	}

	if ft, ok := s.catalog.Find(t.Schema, t.Name); ok {
		return ft, nil
	}

	if t.Schema == "" {
		t.Schema = s.conf.DB.Schema
	}

	db, err := s.DB(ctx)
	if err != nil {
		return nil, err
	}

	ft, err := s.gd.Describe(ctx, db, t.Schema, t.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "describing %s", t)
	}
	return ft, nil
}

// Close closes the database if one was opened
func (s *Service) Close() error {
	defer s.zlog.Sync() //nolint:errcheck

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
