// Package storage remembers which sessions were running so a restarted
// client can pick them up again. Game state itself is never stored: the
// server is authoritative and a resumed session simply polls from zero.
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/turnsync/internal/engine"
)

type SessionRecord struct {
	GameID    int    `gorm:"primaryKey;autoIncrement:false"`
	PlayerID  int    `gorm:"not null"`
	AuthKey   string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SessionRecord) TableName() string { return "sync_sessions" }

func (r SessionRecord) Identity() engine.Identity {
	return engine.Identity{GameID: r.GameID, PlayerID: r.PlayerID, AuthKey: r.AuthKey}
}

type Repo struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the sessions table.
func Open(dsn string) (*Repo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewRepo(db)
}

func NewRepo(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &Repo{db: db}, nil
}

// SaveSession upserts the identity; an existing row keeps its player and key.
func (r *Repo) SaveSession(ctx context.Context, id engine.Identity) error {
	rec := SessionRecord{GameID: id.GameID, PlayerID: id.PlayerID, AuthKey: id.AuthKey}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "game_id"}}, DoUpdates: clause.AssignmentColumns([]string{"updated_at"})}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save session %d: %w", id.GameID, err)
	}
	return nil
}

func (r *Repo) DeleteSession(ctx context.Context, gameID int) error {
	if err := r.db.WithContext(ctx).Delete(&SessionRecord{}, "game_id = ?", gameID).Error; err != nil {
		return fmt.Errorf("delete session %d: %w", gameID, err)
	}
	return nil
}

func (r *Repo) ListSessions(ctx context.Context) ([]engine.Identity, error) {
	var recs []SessionRecord
	if err := r.db.WithContext(ctx).Order("game_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]engine.Identity, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.Identity())
	}
	return ids, nil
}

func (r *Repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
