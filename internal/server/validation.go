package server

import (
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"da-vinci/internal/game"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxRoomIDLength   = 64
	maxReportDays     = 92
	defaultReportDays = 7
)

var (
	validatorOnce sync.Once
	roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
			return validRoomID(fl.Field().String())
		})
		_ = engine.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
			return validDifficulty(fl.Field().String())
		})
		_ = engine.RegisterValidation("chattext", func(fl validator.FieldLevel) bool {
			return validChatText(fl.Field().String())
		})
		_ = engine.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("15:04", fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})
	})
}

func validRoomID(id string) bool {
	return id != "" && len(id) <= maxRoomIDLength && roomIDPattern.MatchString(id)
}

func validDifficulty(value string) bool {
	switch value {
	case game.DifficultyEasy, game.DifficultyNormal, game.DifficultyHard:
		return true
	}
	return false
}

func validChatText(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && utf8.RuneCountInString(trimmed) <= game.MaxChatLength
}
