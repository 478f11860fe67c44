package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"da-vinci/internal/db"
	"da-vinci/internal/game"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Postgres struct {
	db *gorm.DB
}

func NewPostgres(conn *gorm.DB) *Postgres {
	return &Postgres{db: conn}
}

func (p *Postgres) GameLogExists(ctx context.Context, roomID string) (bool, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&db.GameLog{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Postgres) Record(ctx context.Context, entry GameLog, daily DailyIncrement, word WordIncrement) error {
	record, err := toRecord(entry)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyRecorded
			}
			return fmt.Errorf("insert game log: %w", err)
		}

		successes, failures := outcomeCounts(daily.Success)
		dailyRow := db.DailyAnalytics{
			Date:         daily.Date,
			TotalGames:   1,
			SuccessCount: successes,
			FailureCount: failures,
			TotalTurns:   daily.Turns,
			TotalTimeMs:  daily.TimeMs,
			UpdatedAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_games":   gorm.Expr("daily_analytics.total_games + 1"),
				"success_count": gorm.Expr("daily_analytics.success_count + ?", successes),
				"failure_count": gorm.Expr("daily_analytics.failure_count + ?", failures),
				"total_turns":   gorm.Expr("daily_analytics.total_turns + ?", daily.Turns),
				"total_time_ms": gorm.Expr("daily_analytics.total_time_ms + ?", daily.TimeMs),
				"updated_at":    now,
			}),
		}).Create(&dailyRow).Error; err != nil {
			return fmt.Errorf("increment daily analytics: %w", err)
		}

		successes, _ = outcomeCounts(word.Success)
		wordRow := db.WordAnalytics{
			Word:            word.Word,
			Difficulty:      word.Difficulty,
			Attempts:        1,
			SuccessCount:    successes,
			TotalTurns:      word.Turns,
			TotalConfidence: word.Confidence,
			UpdatedAt:       now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "word"}},
			DoUpdates: clause.Assignments(map[string]any{
				"difficulty":       word.Difficulty,
				"attempts":         gorm.Expr("word_analytics.attempts + 1"),
				"success_count":    gorm.Expr("word_analytics.success_count + ?", successes),
				"total_turns":      gorm.Expr("word_analytics.total_turns + ?", word.Turns),
				"total_confidence": gorm.Expr("word_analytics.total_confidence + ?", word.Confidence),
				"updated_at":       now,
			}),
		}).Create(&wordRow).Error; err != nil {
			return fmt.Errorf("increment word analytics: %w", err)
		}
		return nil
	})
}

func (p *Postgres) DailyRange(ctx context.Context, from, to string) ([]DailyStats, error) {
	var rows []db.DailyAnalytics
	if err := p.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DailyStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, DailyStats{
			Date:         row.Date,
			TotalGames:   row.TotalGames,
			SuccessCount: row.SuccessCount,
			FailureCount: row.FailureCount,
			TotalTurns:   row.TotalTurns,
			TotalTimeMs:  row.TotalTimeMs,
		})
	}
	return out, nil
}

func (p *Postgres) Word(ctx context.Context, word string) (WordStats, error) {
	var row db.WordAnalytics
	err := p.db.WithContext(ctx).Where("word = ?", word).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WordStats{}, ErrWordNotFound
	}
	if err != nil {
		return WordStats{}, err
	}
	return wordStats(row), nil
}

func (p *Postgres) HardestWords(ctx context.Context, minAttempts, limit int) ([]WordStats, error) {
	var rows []db.WordAnalytics
	if err := p.db.WithContext(ctx).
		Where("attempts >= ?", minAttempts).
		Order("CAST(success_count AS DOUBLE PRECISION) / attempts ASC").
		Order("attempts DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]WordStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, wordStats(row))
	}
	return out, nil
}

func (p *Postgres) RecentLogs(ctx context.Context, limit int) ([]GameLog, error) {
	var rows []db.GameLog
	if err := p.db.WithContext(ctx).Order("completed_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRecords(rows)
}

func (p *Postgres) LogsByDateRange(ctx context.Context, from, to time.Time) ([]GameLog, error) {
	var rows []db.GameLog
	if err := p.db.WithContext(ctx).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Order("completed_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRecords(rows)
}

func (p *Postgres) RecentSuccesses(ctx context.Context, theme string, limit int) ([]GameLog, error) {
	var rows []db.GameLog
	query := p.db.WithContext(ctx).Where("result = ?", game.ResultSuccess)
	if theme != "" {
		query = query.Where("theme = ?", theme)
	}
	if err := query.Order("completed_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRecords(rows)
}

func toRecord(entry GameLog) (db.GameLog, error) {
	finished := entry.FinishedAt.UTC()
	if entry.FinishedAt.IsZero() {
		finished = time.Now().UTC()
	}
	guesses := entry.AIGuesses
	if guesses == nil {
		guesses = []game.AIGuess{}
	}
	guessJSON, err := json.Marshal(guesses)
	if err != nil {
		return db.GameLog{}, err
	}
	playersJSON, err := json.Marshal(copyPlayers(entry.Players))
	if err != nil {
		return db.GameLog{}, err
	}
	return db.GameLog{
		RoomID:         entry.RoomID,
		Theme:          entry.Theme,
		Difficulty:     entry.Difficulty,
		TargetWord:     entry.TargetWord,
		FinalTurnCount: entry.FinalTurnCount,
		FinalTimeMs:    entry.FinalTimeMs,
		Result:         entry.Result,
		FailReason:     entry.FailReason,
		LastGuess:      entry.LastGuess,
		AIGuesses:      datatypes.JSON(guessJSON),
		Players:        datatypes.JSON(playersJSON),
		CompletedAt:    entry.CompletedAt,
		FinishedAt:     finished,
	}, nil
}

func fromRecords(rows []db.GameLog) ([]GameLog, error) {
	out := make([]GameLog, 0, len(rows))
	for _, row := range rows {
		entry := GameLog{
			RoomID:         row.RoomID,
			Theme:          row.Theme,
			Difficulty:     row.Difficulty,
			TargetWord:     row.TargetWord,
			FinalTurnCount: row.FinalTurnCount,
			FinalTimeMs:    row.FinalTimeMs,
			Result:         row.Result,
			FailReason:     row.FailReason,
			LastGuess:      row.LastGuess,
			CompletedAt:    row.CompletedAt,
			FinishedAt:     row.FinishedAt,
		}
		if len(row.AIGuesses) > 0 {
			if err := json.Unmarshal(row.AIGuesses, &entry.AIGuesses); err != nil {
				return nil, fmt.Errorf("decode guesses for %s: %w", row.RoomID, err)
			}
		}
		if len(row.Players) > 0 {
			if err := json.Unmarshal(row.Players, &entry.Players); err != nil {
				return nil, fmt.Errorf("decode players for %s: %w", row.RoomID, err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func wordStats(row db.WordAnalytics) WordStats {
	return WordStats{
		Word:            row.Word,
		Difficulty:      row.Difficulty,
		Attempts:        row.Attempts,
		SuccessCount:    row.SuccessCount,
		TotalTurns:      row.TotalTurns,
		TotalConfidence: row.TotalConfidence,
	}
}

func outcomeCounts(success bool) (int, int) {
	if success {
		return 1, 0
	}
	return 0, 1
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
