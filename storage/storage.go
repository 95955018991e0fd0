// Package storage opens the repositories selected by the configuration.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
	"github.com/trezcool/asistencia/storage/database"
	gormrepos "github.com/trezcool/asistencia/storage/database/gorm"
	inmemdb "github.com/trezcool/asistencia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/asistencia/storage/database/sqlx"
)

const (
	RepositorySQLX  = "sqlx"
	RepositoryGORM  = "gorm"
	RepositoryInmem = "inmem"
)

type Repositories struct {
	Slots      schedule.Repository
	Settings   settings.Repository
	Sessions   session.Repository
	Attendance attendance.Repository

	// SQL is the postgres handle the migrations run on; nil for sqlite and in-memory storage.
	SQL *sql.DB

	close func() error
}

// Close releases the database connections.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open connects to the configured storage. Postgres databases are created when missing and
// migrated when migrate is set; sqlite databases are always migrated.
func Open(ctx context.Context, conf *core.Config, migrate bool) (*Repositories, error) {
	switch conf.Database.Repository {
	case RepositoryInmem:
		db := inmemdb.Open()
		return &Repositories{
			Slots:      inmemdb.NewSlotRepository(db),
			Settings:   inmemdb.NewSettingsRepository(db),
			Sessions:   inmemdb.NewSessionRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
		}, nil
	case RepositoryGORM:
		return openGORM(ctx, conf, migrate)
	case RepositorySQLX, "":
		return openSQLX(ctx, conf, migrate)
	default:
		return nil, errors.Errorf("unsupported repository %q", conf.Database.Repository)
	}
}

func openPostgres(ctx context.Context, conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	return database.Open(conf)
}

func openSQLX(ctx context.Context, conf *core.Config, migrate bool) (*Repositories, error) {
	if conf.Database.Engine != gormrepos.EnginePostgres {
		return nil, errors.Errorf("the sqlx repositories need postgres, not %q", conf.Database.Engine)
	}
	sqlDB, err := openPostgres(ctx, conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err = database.Migrate(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	db := sqlxrepos.NewDB(sqlDB)
	return &Repositories{
		Slots:      sqlxrepos.NewSlotRepository(db),
		Settings:   sqlxrepos.NewSettingsRepository(db),
		Sessions:   sqlxrepos.NewSessionRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		SQL:        sqlDB,
		close:      db.Close,
	}, nil
}

func openGORM(ctx context.Context, conf *core.Config, migrate bool) (*Repositories, error) {
	if conf.Database.Engine == gormrepos.EnginePostgres {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
	}
	db, err := gormrepos.Open(conf)
	if err != nil {
		return nil, err
	}
	repos := &Repositories{
		Slots:      gormrepos.NewSlotRepository(db),
		Settings:   gormrepos.NewSettingsRepository(db),
		Sessions:   gormrepos.NewSessionRepository(db),
		Attendance: gormrepos.NewAttendanceRepository(db),
		close:      func() error { return gormrepos.Close(db) },
	}
	if conf.Database.Engine == gormrepos.EnginePostgres {
		if repos.SQL, err = db.DB(); err != nil {
			_ = repos.Close()
			return nil, errors.Wrap(err, "getting postgres handle")
		}
		if migrate {
			if err = database.Migrate(repos.SQL); err != nil {
				_ = repos.Close()
				return nil, err
			}
		}
	}
	return repos, nil
}
