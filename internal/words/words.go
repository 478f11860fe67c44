// Package words chooses the secret target word and theme for new rooms.
package words

import (
	"context"
	"errors"
	"math/rand/v2"

	"da-vinci/internal/db"

	"gorm.io/gorm"
)

var ErrEmptyLibrary = errors.New("word library is empty")

type Word struct {
	Theme string
	Text  string
}

type Picker interface {
	Pick(ctx context.Context) (Word, error)
}

// Defaults is used when no word library is configured.
var Defaults = []Word{
	{Theme: "동물", Text: "고양이"},
	{Theme: "동물", Text: "코끼리"},
	{Theme: "동물", Text: "고래"},
	{Theme: "음식", Text: "피자"},
	{Theme: "음식", Text: "라면"},
	{Theme: "동화", Text: "백설공주"},
	{Theme: "동화", Text: "피노키오"},
	{Theme: "영화", Text: "타이타닉"},
}

type Static struct {
	words []Word
	intn  func(n int) int
}

func NewStatic(list []Word) *Static {
	return &Static{words: list, intn: rand.IntN}
}

func (s *Static) Pick(_ context.Context) (Word, error) {
	if len(s.words) == 0 {
		return Word{}, ErrEmptyLibrary
	}
	return s.words[s.intn(len(s.words))], nil
}

// Library picks from the words table, falling back to a static list when
// the table is empty.
type Library struct {
	db       *gorm.DB
	fallback Picker
}

func NewLibrary(conn *gorm.DB, fallback Picker) *Library {
	return &Library{db: conn, fallback: fallback}
}

func (l *Library) Pick(ctx context.Context) (Word, error) {
	if l.db == nil {
		return l.fromFallback(ctx)
	}
	var entry db.Word
	err := l.db.WithContext(ctx).Order("random()").Limit(1).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return l.fromFallback(ctx)
	}
	if err != nil {
		return Word{}, err
	}
	return Word{Theme: entry.Theme, Text: entry.Text}, nil
}

func (l *Library) fromFallback(ctx context.Context) (Word, error) {
	if l.fallback == nil {
		return Word{}, ErrEmptyLibrary
	}
	return l.fallback.Pick(ctx)
}
