package models

type MissionCategory string

const (
	CategoryObserve MissionCategory = "observe"
	CategoryMove    MissionCategory = "move"
	CategoryMood    MissionCategory = "mood"
)

func (c MissionCategory) Valid() bool {
	switch c {
	case CategoryObserve, CategoryMove, CategoryMood:
		return true
	}
	return false
}

const (
	MissionSourceAI       = "ai"
	MissionSourceFallback = "fallback"
)

type Mission struct {
	ID         string          `json:"id"`
	Text       string          `json:"text"`
	Category   MissionCategory `json:"category"`
	Difficulty int             `json:"difficulty"`
	Source     string          `json:"source"`
	Reason     string          `json:"reason,omitempty"`
}

type MissionContext struct {
	TimeOfDay string `json:"timeOfDay"`
	Weather   string `json:"weather"`
}

// WithDefaults fills empty fields with "day" and "clear".
func (c MissionContext) WithDefaults() MissionContext {
	if c.TimeOfDay == "" {
		c.TimeOfDay = "day"
	}
	if c.Weather == "" {
		c.Weather = "clear"
	}
	return c
}
