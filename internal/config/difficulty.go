package config

// DifficultySettings holds the numeric knobs a difficulty applies to a room.
type DifficultySettings struct {
	TurnTimeLimitSeconds int
	MaxTurns             int
}

var difficultyTable = map[string]DifficultySettings{
	"easy":   {TurnTimeLimitSeconds: 90, MaxTurns: 15},
	"normal": {TurnTimeLimitSeconds: 60, MaxTurns: 10},
	"hard":   {TurnTimeLimitSeconds: 30, MaxTurns: 7},
}

// Difficulty returns the settings for name. Unknown names fall back to the
// configured defaults.
func (c Config) Difficulty(name string) DifficultySettings {
	if settings, ok := difficultyTable[name]; ok {
		return settings
	}
	return DifficultySettings{
		TurnTimeLimitSeconds: c.TurnTimeLimitSeconds,
		MaxTurns:             c.MaxTurns,
	}
}

func IsDifficulty(name string) bool {
	_, ok := difficultyTable[name]
	return ok
}
