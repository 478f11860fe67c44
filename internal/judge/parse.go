package judge

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	unknownGuess       = "알 수 없음"
	defaultConfidence  = 0.5
	fallbackConfidence = 0.3
)

type ParseKind int

const (
	Parsed ParseKind = iota
	Unparseable
)

// ParseResult is the model reply decoded into a guess. Unparseable results
// carry no guess and must go through Fallback.
type ParseResult struct {
	Kind       ParseKind
	Guess      string
	Confidence float64
}

var (
	guessKeys      = []string{"guess", "단어", "추측"}
	confidenceKeys = []string{"confidence", "신뢰도"}

	guessPattern      = regexp.MustCompile(`"guess"\s*:\s*"([^"]+)"`)
	confidencePattern = regexp.MustCompile(`"confidence"\s*:\s*([\d.]+)`)
)

// ParseReply decodes the JSON object the model was asked for, tolerating
// code fences and Korean key names.
func ParseReply(raw string) ParseResult {
	var fields map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		return ParseResult{Kind: Unparseable}
	}
	guess := ""
	for _, key := range guessKeys {
		if value, ok := fields[key].(string); ok && strings.TrimSpace(value) != "" {
			guess = strings.TrimSpace(value)
			break
		}
	}
	if guess == "" {
		return ParseResult{Kind: Unparseable}
	}
	confidence := defaultConfidence
	for _, key := range confidenceKeys {
		if value, ok := numberField(fields[key]); ok {
			confidence = value
			break
		}
	}
	return ParseResult{Kind: Parsed, Guess: guess, Confidence: clamp(confidence)}
}

// Fallback pulls a guess out of a reply that was not valid JSON.
func Fallback(raw string) ParseResult {
	result := ParseResult{Kind: Parsed, Guess: unknownGuess, Confidence: fallbackConfidence}
	if match := guessPattern.FindStringSubmatch(raw); match != nil {
		if guess := strings.TrimSpace(match[1]); guess != "" {
			result.Guess = guess
		}
	}
	if match := confidencePattern.FindStringSubmatch(raw); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			result.Confidence = clamp(value)
		}
	}
	return result
}

// Interpret runs ParseReply and falls back to regex extraction. The second
// return value reports whether the fallback was used.
func Interpret(raw string) (ParseResult, bool) {
	result := ParseReply(raw)
	if result.Kind == Parsed {
		return result, false
	}
	return Fallback(raw), true
}

func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimPrefix(clean, "json")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

func numberField(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func containsHangul(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
