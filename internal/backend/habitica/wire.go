package habitica

import (
	"fmt"

	"srtask/internal/service"
)

// DefaultDifficulty is sent when the reminder has no priority ("Hard").
const DefaultDifficulty = 2.0

// Habitica calls the field priority but it is a task difficulty and only
// accepts these four values.
var difficulties = map[service.Priority]float64{
	service.PriorityLow:    0.1,
	service.PriorityMedium: 1,
	service.PriorityHigh:   1.5,
	service.PriorityUrgent: 2,
}

// DifficultyFor maps the 1-4 priority scale to a Habitica difficulty.
func DifficultyFor(p service.Priority) float64 {
	if d, ok := difficulties[p]; ok {
		return d
	}
	return DefaultDifficulty
}

// PriorityFromDifficulty reverses DifficultyFor.
func PriorityFromDifficulty(d float64) (service.Priority, error) {
	for p, v := range difficulties {
		if v == d {
			return p, nil
		}
	}
	return service.PriorityNone, fmt.Errorf("invalid habitica difficulty: %v", d)
}

type todoRequest struct {
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Date     string   `json:"date"`
	Notes    string   `json:"notes"`
	Priority float64  `json:"priority"`
	Tags     []string `json:"tags,omitempty"`
}

// envelope is the body shape of every Habitica response.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type taskData struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type tagData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
