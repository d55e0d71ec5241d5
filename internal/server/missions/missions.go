// Package missions hands out walking missions. A language model is asked
// first; anything short of a well-formed answer falls back to a fixed list.
package missions

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

const (
	maxTextRunes      = 50
	defaultDifficulty = 2
	fallbackReason    = "AI generation was unavailable, so a fallback mission was used"
	defaultAIReason   = "AI generated"
)

const systemPrompt = `You are the god of walks in a walking app called Sanposhin.
You give the user one walking mission.

Constraints:
1. Safety: never suggest anything dangerous, illegal or disruptive to others.
2. Brevity: at most 50 characters, concrete and doable.
3. Category: one of "observe", "move", "mood".
4. Difficulty: 1-5 (1 = anyone can do it, 5 = challenging).
5. Positivity: the experience should be fun and uplifting.

Answer with JSON only:
{"text": "...", "category": "observe|move|mood", "difficulty": 1, "reason": "why this mission (at most 100 characters)"}

Avoid peeking into homes, entering private land, risky places and anything
that takes longer than a walk.`

var jsonObject = regexp.MustCompile(`\{[^{}]*\}`)

// Generator produces raw model output for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Service struct {
	gen    Generator
	logger logging.Logger
	now    func() time.Time
	intn   func(n int) int
}

// NewService builds a Service. A nil gen always uses the fallback list.
func NewService(gen Generator, logger logging.Logger) *Service {
	return &Service{
		gen:    gen,
		logger: logger.With("module", "missions"),
		now:    time.Now,
		intn:   rand.IntN,
	}
}

func userPrompt(mc models.MissionContext) string {
	return fmt.Sprintf("Current situation:\n- time of day: %s\n- weather: %s\n\nWith that in mind, create one walking mission. Reply in JSON.",
		mc.TimeOfDay, mc.Weather)
}

// Generate never fails.
func (s *Service) Generate(ctx context.Context, mc models.MissionContext) models.Mission {
	mc = mc.WithDefaults()

	if s.gen == nil {
		return s.fallback()
	}

	text, err := s.gen.Generate(ctx, systemPrompt, userPrompt(mc))
	if err != nil {
		s.logger.Warn(ctx, "mission generator failed", "error", err)
		return s.fallback()
	}

	m, err := s.parse(text)
	if err != nil {
		s.logger.Warn(ctx, "mission generator returned unusable output", "error", err)
		return s.fallback()
	}
	return m
}

type rawMission struct {
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty any    `json:"difficulty"`
	Reason     string `json:"reason"`
}

func (s *Service) parse(text string) (models.Mission, error) {
	if strings.TrimSpace(text) == "" {
		return models.Mission{}, fmt.Errorf("empty response")
	}

	obj := jsonObject.FindString(text)
	if obj == "" {
		obj = text
	}

	var raw rawMission
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return models.Mission{}, fmt.Errorf("decode: %w", err)
	}

	cat := models.MissionCategory(strings.ToLower(strings.TrimSpace(raw.Category)))
	body := strings.TrimSpace(raw.Text)
	switch {
	case body == "":
		return models.Mission{}, fmt.Errorf("missing text")
	case !cat.Valid():
		return models.Mission{}, fmt.Errorf("bad category %q", raw.Category)
	}

	reason := strings.TrimSpace(raw.Reason)
	if reason == "" {
		reason = defaultAIReason
	}

	return models.Mission{
		ID:         fmt.Sprintf("ai_%d", s.now().UnixMilli()),
		Text:       truncateRunes(body, maxTextRunes),
		Category:   cat,
		Difficulty: difficulty(raw.Difficulty),
		Source:     models.MissionSourceAI,
		Reason:     reason,
	}, nil
}

func difficulty(v any) int {
	var n int
	switch d := v.(type) {
	case float64:
		n = int(d)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(d))
	}
	if n == 0 {
		return defaultDifficulty
	}
	return min(max(n, 1), 5)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (s *Service) fallback() models.Mission {
	f := fallbackMissions[s.intn(len(fallbackMissions))]
	return models.Mission{
		ID:         fmt.Sprintf("fallback_%d", s.now().UnixMilli()),
		Text:       f.text,
		Category:   f.category,
		Difficulty: f.difficulty,
		Source:     models.MissionSourceFallback,
		Reason:     fallbackReason,
	}
}
