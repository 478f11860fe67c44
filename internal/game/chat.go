package game

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxChatLength = 200
	anonymousName = "익명"
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = errors.New("message is too long")
)

func NewChatMessage(id, uid, displayName, text string, now time.Time) (ChatMessage, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(clean) > MaxChatLength {
		return ChatMessage{}, ErrMessageTooLong
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = anonymousName
	}
	return ChatMessage{
		ID:          id,
		UID:         uid,
		DisplayName: name,
		Text:        clean,
		Timestamp:   Millis(now),
	}, nil
}

func SortChat(messages []ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
}

// SortWaiting orders entries by join time, then by insertion sequence.
func SortWaiting(entries []WaitingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].JoinedAt != entries[j].JoinedAt {
			return entries[i].JoinedAt < entries[j].JoinedAt
		}
		return entries[i].Seq < entries[j].Seq
	})
}
