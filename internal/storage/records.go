package storage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/domain"
)

// EventRecorder implements app.Recorder against postgres. Every write runs
// in its own goroutine: the in-memory room transition must never wait on
// the database, and write failures are logged and swallowed.
type EventRecorder struct {
	db *PostgresDB
}

func NewEventRecorder(db *PostgresDB) *EventRecorder {
	return &EventRecorder{db: db}
}

func (r *EventRecorder) RoomCreated(code domain.RoomCode, name, hostName string) {
	go func() {
		rec := EventRecord{
			RoomCode: string(code),
			Name:     name,
			HostName: hostName,
			Status:   EventStatusActive,
		}
		if err := r.db.Create(&rec).Error; err != nil {
			log.Warn().Str("module", "storage.recorder").Str("room", string(code)).Err(err).Msg("record room created")
		}
	}()
}

func (r *EventRecorder) RoomEnded(code domain.RoomCode) {
	go func() {
		now := time.Now()
		err := r.db.Model(&EventRecord{}).
			Where("room_code = ? AND status = ?", string(code), EventStatusActive).
			Updates(map[string]interface{}{"status": EventStatusEnded, "ended_at": &now}).Error
		if err != nil {
			log.Warn().Str("module", "storage.recorder").Str("room", string(code)).Err(err).Msg("record room ended")
		}
	}()
}

// RecentEvents feeds the admin dashboard.
func (r *EventRecorder) RecentEvents(limit int) ([]EventRecord, error) {
	var out []EventRecord
	err := r.db.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *EventRecorder) TotalEvents() (int64, error) {
	var n int64
	err := r.db.Model(&EventRecord{}).Count(&n).Error
	return n, err
}
