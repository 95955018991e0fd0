package gormrepos

import (
	"time"

	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
)

type slotModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomCode  string    `gorm:"size:64;not null"`
	Weekday   int       `gorm:"not null;index"`
	Subject   string    `gorm:"size:255;not null"`
	GroupName string    `gorm:"size:255;not null"`
	StartTime int       `gorm:"not null"`
	EndTime   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (slotModel) TableName() string { return "schedule_slot" }

func toSlotModel(s schedule.Slot) slotModel {
	return slotModel{
		ID:        s.ID,
		RoomCode:  s.RoomCode,
		Weekday:   int(s.Weekday),
		Subject:   s.Subject,
		GroupName: s.GroupName,
		StartTime: int(s.StartTime),
		EndTime:   int(s.EndTime),
		CreatedAt: s.CreatedAt.UTC(),
	}
}

func (m slotModel) slot() schedule.Slot {
	return schedule.Slot{
		ID:        m.ID,
		RoomCode:  m.RoomCode,
		Weekday:   time.Weekday(m.Weekday),
		Subject:   m.Subject,
		GroupName: m.GroupName,
		StartTime: clock.TimeOfDay(m.StartTime),
		EndTime:   clock.TimeOfDay(m.EndTime),
		CreatedAt: m.CreatedAt,
	}
}

type settingsModel struct {
	ID                     int       `gorm:"primaryKey;autoIncrement:false"`
	AttendanceToleranceMin int       `gorm:"not null"`
	LateThresholdMin       int       `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

func (settingsModel) TableName() string { return "settings" }

func (m settingsModel) settings() settings.Settings {
	return settings.Settings{
		AttendanceToleranceMin: m.AttendanceToleranceMin,
		LateThresholdMin:       m.LateThresholdMin,
		UpdatedAt:              m.UpdatedAt,
	}
}

type sessionModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	SessionCode     string    `gorm:"size:128;not null"`
	RoomCode        string    `gorm:"size:64;not null;index:class_session_date_room_idx,priority:2"`
	SessionDate     time.Time `gorm:"not null;index:class_session_date_room_idx,priority:1"`
	Subject         string    `gorm:"size:255;not null;default:''"`
	GroupName       string    `gorm:"size:255;not null;default:''"`
	StartPlanned    *int
	EndPlanned      *int
	Status          string  `gorm:"size:16;not null"`
	ArrivalStatus   *string `gorm:"size:16"`
	ArrivalDelayMin *int
	StartedAt       *time.Time
	EndedAt         *time.Time
	IsManual        bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (sessionModel) TableName() string { return "class_session" }

// dateOnly keeps the calendar date of t at UTC midnight, so that no zone shifts it on storage.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toSessionModel(s session.Session) sessionModel {
	m := sessionModel{
		ID:              s.ID,
		SessionCode:     s.Code,
		RoomCode:        s.RoomCode,
		SessionDate:     dateOnly(s.Date),
		Subject:         s.Subject,
		GroupName:       s.GroupName,
		Status:          string(s.Status),
		ArrivalDelayMin: s.ArrivalDelayMin,
		StartedAt:       utcPtr(s.StartedAt),
		EndedAt:         utcPtr(s.EndedAt),
		IsManual:        s.IsManual,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
	if s.StartPlanned != nil {
		v := int(*s.StartPlanned)
		m.StartPlanned = &v
	}
	if s.EndPlanned != nil {
		v := int(*s.EndPlanned)
		m.EndPlanned = &v
	}
	if s.ArrivalStatus != nil {
		v := string(*s.ArrivalStatus)
		m.ArrivalStatus = &v
	}
	return m
}

func (m sessionModel) session() session.Session {
	s := session.Session{
		ID:              m.ID,
		Code:            m.SessionCode,
		RoomCode:        m.RoomCode,
		Date:            dateOnly(m.SessionDate),
		Subject:         m.Subject,
		GroupName:       m.GroupName,
		Status:          session.Status(m.Status),
		ArrivalDelayMin: m.ArrivalDelayMin,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		IsManual:        m.IsManual,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.StartPlanned != nil {
		tod := clock.TimeOfDay(*m.StartPlanned)
		s.StartPlanned = &tod
	}
	if m.EndPlanned != nil {
		tod := clock.TimeOfDay(*m.EndPlanned)
		s.EndPlanned = &tod
	}
	if m.ArrivalStatus != nil {
		a := session.Arrival(*m.ArrivalStatus)
		s.ArrivalStatus = &a
	}
	return s
}

type recordModel struct {
	SessionID   string    `gorm:"primaryKey;size:36"`
	StudentID   string    `gorm:"primaryKey;size:64"`
	StudentName string    `gorm:"size:255;not null"`
	Status      string    `gorm:"size:16;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	UpdatedBy   string    `gorm:"size:255;not null;default:''"`
}

func (recordModel) TableName() string { return "attendance_record" }

func toRecordModel(r attendance.Record) recordModel {
	return recordModel{
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Status:      string(r.Status),
		UpdatedAt:   r.UpdatedAt.UTC(),
		UpdatedBy:   r.UpdatedBy,
	}
}

func (m recordModel) record() attendance.Record {
	return attendance.Record{
		SessionID:   m.SessionID,
		StudentID:   m.StudentID,
		StudentName: m.StudentName,
		Status:      attendance.Status(m.Status),
		UpdatedAt:   m.UpdatedAt,
		UpdatedBy:   m.UpdatedBy,
	}
}
