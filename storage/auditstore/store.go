package auditstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"curvelaunch/core/events"
)

// EventRecord is the persisted shape of an emitted engine event. The
// auto-incremented sequence gives the audit log its monotonic ordering.
type EventRecord struct {
	Sequence   uint64 `gorm:"primaryKey;autoIncrement"`
	Type       string `gorm:"index"`
	Attributes string
	CreatedAt  int64 `gorm:"autoCreateTime"`
}

// TableName keeps the table naming stable across gorm versions.
func (EventRecord) TableName() string { return "curve_events" }

// Store persists the append-only audit log in SQLite.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open creates or opens the audit database at path and migrates the schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("auditstore: create directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("auditstore: open database: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("auditstore: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}, nil
}

// Emit implements the events.Emitter interface. Persistence failures are
// logged rather than propagated: the audit log must never veto a committed
// operation.
func (s *Store) Emit(evt events.Event) {
	if s == nil || s.db == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		s.log.Error("audit event encode failed", "type", payload.Type, "error", err)
		return
	}
	record := EventRecord{Type: payload.Type, Attributes: string(attrs)}
	if err := s.db.Create(&record).Error; err != nil {
		s.log.Error("audit event persist failed", "type", payload.Type, "error", err)
	}
}

// List returns up to limit records with a sequence strictly greater than the
// cursor, oldest first. A non-positive limit returns everything after the
// cursor.
func (s *Store) List(cursor uint64, limit int) ([]EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auditstore: not initialised")
	}
	query := s.db.Where("sequence > ?", cursor).Order("sequence asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []EventRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByType reports how many events of the supplied type were recorded.
func (s *Store) CountByType(eventType string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("auditstore: not initialised")
	}
	var count int64
	if err := s.db.Model(&EventRecord{}).Where("type = ?", eventType).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	raw, err := s.db.DB()
	if err != nil {
		return err
	}
	return raw.Close()
}
