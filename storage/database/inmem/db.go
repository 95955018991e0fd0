// Package inmemdb keeps every table in memory, guarded by one mutex per table.
// Used by the service tests and by the API when no database is configured.
package inmemdb

import (
	"sync"

	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
)

type (
	DB struct {
		slot     *slotTable
		settings *settingsTable
		session  *sessionTable
		record   *recordTable
	}

	slotTable struct {
		table map[string]*schedule.Slot
		mutex sync.RWMutex
	}

	settingsTable struct {
		row   *settings.Settings
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]*session.Session // by lowercased session code
		mutex sync.RWMutex
	}

	recordKey struct {
		sessionID, studentID string
	}

	recordTable struct {
		table map[recordKey]*attendance.Record
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		slot:     &slotTable{table: make(map[string]*schedule.Slot)},
		settings: &settingsTable{},
		session:  &sessionTable{table: make(map[string]*session.Session)},
		record:   &recordTable{table: make(map[recordKey]*attendance.Record)},
	}
}
