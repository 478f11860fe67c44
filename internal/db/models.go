package db

import (
	"time"

	"gorm.io/datatypes"
)

// GameLog is the immutable record of one finished room. RoomID doubles as
// the idempotency key for finalization.
type GameLog struct {
	RoomID         string         `gorm:"primaryKey;size:64"`
	Theme          string         `gorm:"size:64;not null"`
	Difficulty     string         `gorm:"size:16;not null;index"`
	TargetWord     string         `gorm:"size:128;not null;index"`
	FinalTurnCount int            `gorm:"not null"`
	FinalTimeMs    int64          `gorm:"not null"`
	Result         string         `gorm:"size:16;not null;index"`
	FailReason     string         `gorm:"size:32"`
	LastGuess      string         `gorm:"size:128"`
	AIGuesses      datatypes.JSON `gorm:"type:jsonb;not null"`
	Players        datatypes.JSON `gorm:"type:jsonb;not null"`
	CompletedAt    time.Time      `gorm:"not null;index"`
	FinishedAt     time.Time      `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
}

// DailyAnalytics accumulates counters per calendar day (YYYY-MM-DD).
type DailyAnalytics struct {
	Date         string    `gorm:"primaryKey;size:10"`
	TotalGames   int       `gorm:"not null;default:0"`
	SuccessCount int       `gorm:"not null;default:0"`
	FailureCount int       `gorm:"not null;default:0"`
	TotalTurns   int       `gorm:"not null;default:0"`
	TotalTimeMs  int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type WordAnalytics struct {
	Word            string    `gorm:"primaryKey;size:128"`
	Difficulty      string    `gorm:"size:16;not null"`
	Attempts        int       `gorm:"not null;default:0"`
	SuccessCount    int       `gorm:"not null;default:0"`
	TotalTurns      int       `gorm:"not null;default:0"`
	TotalConfidence float64   `gorm:"not null;default:0"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// Word is one entry of the target word library.
type Word struct {
	ID        uint      `gorm:"primaryKey"`
	Theme     string    `gorm:"size:64;not null;uniqueIndex:idx_words_theme_text"`
	Text      string    `gorm:"size:128;not null;uniqueIndex:idx_words_theme_text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ScheduleWindow opens play on Date between OpensAt and ClosesAt (HH:mm,
// local time).
type ScheduleWindow struct {
	ID          uint      `gorm:"primaryKey"`
	Date        string    `gorm:"size:10;not null;index"`
	OpensAt     string    `gorm:"size:5;not null"`
	ClosesAt    string    `gorm:"size:5;not null"`
	Description string    `gorm:"size:140"`
	UpdatedBy   string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (GameLog) TableName() string        { return "game_logs" }
func (DailyAnalytics) TableName() string { return "daily_analytics" }
func (WordAnalytics) TableName() string  { return "word_analytics" }
func (Word) TableName() string           { return "words" }
func (ScheduleWindow) TableName() string { return "schedule_windows" }
