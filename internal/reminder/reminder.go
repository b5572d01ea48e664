// Package reminder computes the daily form-deadline banner shown on the home screen.
package reminder

import (
	"fmt"
	"strings"
	"time"

	"crewlog/internal/roster"
)

// Level grades how pressing a reminder is.
type Level int

const (
	LevelLoading Level = iota
	LevelWelcome
	LevelNotUrgent
	LevelEarly
	LevelOverdue
)

func (l Level) String() string {
	switch l {
	case LevelLoading:
		return "loading"
	case LevelWelcome:
		return "welcome"
	case LevelNotUrgent:
		return "not_urgent"
	case LevelEarly:
		return "early_warning"
	case LevelOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name in JSON responses.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Reminder is the banner content for one render.
type Reminder struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
	IsAlert bool   `json:"is_alert"`
}

const (
	DefaultDeadline = "10:00"
	DefaultWindow   = 30 * time.Minute
)

// Clock holds a daily deadline expressed as a time of day.
type Clock struct {
	hour, minute int
	window       time.Duration
}

// NewClock parses deadline as HH:MM. A non-positive window falls back to DefaultWindow.
func NewClock(deadline string, window time.Duration) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(deadline))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid deadline %q: %w", deadline, err)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return Clock{hour: t.Hour(), minute: t.Minute(), window: window}, nil
}

var defaultClock = Clock{hour: 10, minute: 0, window: DefaultWindow}

// Default returns the 10:00 clock with a 30 minute warning window.
func Default() Clock { return defaultClock }

// Compute evaluates the reminder with the default clock.
func Compute(role string, now time.Time) Reminder {
	return defaultClock.Compute(role, now)
}

// Compute evaluates the reminder for role at now. It only compares the time of
// day, anchoring the deadline on now's calendar day and location.
func (c Clock) Compute(role string, now time.Time) Reminder {
	if strings.TrimSpace(role) == "" {
		return Reminder{Message: "Cargando datos de sesión...", Level: LevelLoading}
	}
	if roster.ParseRole(role) != roster.Driver {
		return Reminder{Message: "¡Bienvenido! Esta alerta solo aplica a conductores.", Level: LevelWelcome}
	}

	deadline := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
	label := c.Label()

	if !now.Before(deadline) {
		return Reminder{
			Message: fmt.Sprintf("¡AVISO! Ya pasó la hora límite (%s). Por favor, envía tu formulario *inmediatamente*.", label),
			Level:   LevelOverdue,
			IsAlert: true,
		}
	}

	// Whole minutes, truncated, decide the window.
	minutes := int(deadline.Sub(now) / time.Minute)
	if time.Duration(minutes)*time.Minute > c.window {
		return Reminder{
			Message: fmt.Sprintf("El formulario de hoy (%s) aún no es urgente.", label),
			Level:   LevelNotUrgent,
		}
	}

	lead := "¡Es la hora límite!"
	if minutes > 0 {
		lead = fmt.Sprintf("Faltan %d min", minutes)
	}
	return Reminder{
		Message: fmt.Sprintf("%s para las %s. Recuerda completar y enviar tu formulario.", lead, label),
		Level:   LevelEarly,
		IsAlert: true,
	}
}

// Label renders the deadline on a 12-hour clock as shown to drivers, e.g. "10:00 AM".
func (c Clock) Label() string {
	suffix := "AM"
	if c.hour >= 12 {
		suffix = "PM"
	}
	h := c.hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.minute, suffix)
}
