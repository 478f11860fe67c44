// Package schedule gates matchmaking to configured play windows.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"da-vinci/internal/db"

	"gorm.io/gorm"
)

var ErrClosed = errors.New("games are not open right now")

type Window struct {
	Date        string `json:"date" binding:"required,isodate"`
	Start       string `json:"start" binding:"required,hhmm"`
	End         string `json:"end" binding:"required,hhmm"`
	Description string `json:"description,omitempty" binding:"max=140"`
}

func (w Window) Validate() error {
	if _, err := time.Parse("2006-01-02", w.Date); err != nil {
		return fmt.Errorf("invalid date %q", w.Date)
	}
	start, err := time.Parse("15:04", w.Start)
	if err != nil {
		return fmt.Errorf("invalid start %q", w.Start)
	}
	end, err := time.Parse("15:04", w.End)
	if err != nil {
		return fmt.Errorf("invalid end %q", w.End)
	}
	if !start.Before(end) {
		return errors.New("start must be before end")
	}
	return nil
}

type Source interface {
	Windows(ctx context.Context) ([]Window, error)
	Replace(ctx context.Context, windows []Window, updatedBy string) error
}

// Allowed reports whether now falls inside a window for its own date. An
// empty schedule is always open.
func Allowed(windows []Window, now time.Time) bool {
	if len(windows) == 0 {
		return true
	}
	today := now.Format("2006-01-02")
	minutes := now.Hour()*60 + now.Minute()
	for _, window := range windows {
		if window.Date != today {
			continue
		}
		start, okStart := clockMinutes(window.Start)
		end, okEnd := clockMinutes(window.End)
		if !okStart || !okEnd {
			continue
		}
		if minutes >= start && minutes < end {
			return true
		}
	}
	return false
}

// NextOpen returns the earliest window start after now.
func NextOpen(windows []Window, now time.Time) (time.Time, bool) {
	starts := make([]time.Time, 0, len(windows))
	for _, window := range windows {
		start, err := time.ParseInLocation("2006-01-02 15:04", window.Date+" "+window.Start, now.Location())
		if err != nil {
			continue
		}
		if start.After(now) {
			starts = append(starts, start)
		}
	}
	if len(starts) == 0 {
		return time.Time{}, false
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts[0], true
}

func clockMinutes(raw string) (int, bool) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}

// Gate evaluates the schedule in the configured time zone.
type Gate struct {
	source Source
	loc    *time.Location
	now    func() time.Time
}

func NewGate(source Source, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{source: source, loc: loc, now: time.Now}
}

func (g *Gate) Check(ctx context.Context) error {
	if g == nil || g.source == nil {
		return nil
	}
	windows, err := g.source.Windows(ctx)
	if err != nil {
		return err
	}
	if !Allowed(windows, g.now().In(g.loc)) {
		return ErrClosed
	}
	return nil
}

func (g *Gate) Status(ctx context.Context) (open bool, next time.Time, err error) {
	windows, err := g.source.Windows(ctx)
	if err != nil {
		return false, time.Time{}, err
	}
	now := g.now().In(g.loc)
	next, _ = NextOpen(windows, now)
	return Allowed(windows, now), next, nil
}

func (g *Gate) Windows(ctx context.Context) ([]Window, error) {
	return g.source.Windows(ctx)
}

func (g *Gate) Replace(ctx context.Context, windows []Window, updatedBy string) error {
	for _, window := range windows {
		if err := window.Validate(); err != nil {
			return err
		}
	}
	return g.source.Replace(ctx, windows, updatedBy)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Windows(ctx context.Context) ([]Window, error) {
	var rows []db.ScheduleWindow
	if err := r.db.WithContext(ctx).Order("date asc, opens_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Window, 0, len(rows))
	for _, row := range rows {
		out = append(out, Window{Date: row.Date, Start: row.OpensAt, End: row.ClosesAt, Description: row.Description})
	}
	return out, nil
}

func (r *Repository) Replace(ctx context.Context, windows []Window, updatedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&db.ScheduleWindow{}).Error; err != nil {
			return err
		}
		if len(windows) == 0 {
			return nil
		}
		rows := make([]db.ScheduleWindow, 0, len(windows))
		for _, window := range windows {
			rows = append(rows, db.ScheduleWindow{
				Date:        window.Date,
				OpensAt:     window.Start,
				ClosesAt:    window.End,
				Description: window.Description,
				UpdatedBy:   updatedBy,
			})
		}
		return tx.Create(&rows).Error
	})
}

type Memory struct {
	mu      sync.Mutex
	windows []Window
}

func NewMemory(windows ...Window) *Memory {
	return &Memory{windows: windows}
}

func (m *Memory) Windows(_ context.Context) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Window(nil), m.windows...), nil
}

func (m *Memory) Replace(_ context.Context, windows []Window, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append([]Window(nil), windows...)
	return nil
}
