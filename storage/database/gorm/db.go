// Package gormrepos implements the repositories with gorm, on sqlite (embedded, schema
// created by AutoMigrate) or on postgres (schema managed by the goose migrations).
package gormrepos

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/storage/database"
)

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// struct tags cannot declare functional unique indexes
const (
	slotRoomIndex = `CREATE UNIQUE INDEX IF NOT EXISTS schedule_slot_room_weekday_start_key
	ON schedule_slot (lower(room_code), weekday, start_time)`
	sessionCodeIndex = `CREATE UNIQUE INDEX IF NOT EXISTS class_session_code_key
	ON class_session (lower(session_code))`
)

// Open connects to the configured engine. sqlite databases are migrated on the spot.
func Open(conf *core.Config) (*gorm.DB, error) {
	gormConf := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if conf.Debug && !conf.TestMode {
		gormConf.Logger = logger.Default.LogMode(logger.Warn)
	}

	switch conf.Database.Engine {
	case EngineSQLite:
		db, err := gorm.Open(sqlite.Open(conf.Database.Path), gormConf)
		if err != nil {
			return nil, errors.Wrap(err, "opening sqlite database")
		}
		// one connection: ":memory:" databases are per connection and sqlite serializes writers anyway
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "getting sqlite handle")
		}
		sqlDB.SetMaxOpenConns(1)
		if err = AutoMigrate(db); err != nil {
			return nil, err
		}
		return db, nil
	case EnginePostgres:
		db, err := gorm.Open(postgres.Open(database.URL(conf.Database.Name, false, conf)), gormConf)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres database")
		}
		return db, nil
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
}

// AutoMigrate creates or updates the tables from the models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&slotModel{}, &settingsModel{}, &sessionModel{}, &recordModel{}); err != nil {
		return errors.Wrap(err, "migrating models")
	}
	if err := db.Exec(slotRoomIndex).Error; err != nil {
		return errors.Wrap(err, "creating slot index")
	}
	if err := db.Exec(sessionCodeIndex).Error; err != nil {
		return errors.Wrap(err, "creating session code index")
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func trapNotFound(err error, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.Wrap(err, msg)
}
