// Package share publishes an event through the configured share channels and
// grants the one-time share bonus when a channel succeeds.
package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
	"uaoagenda/internal/rewards"
)

// Payload is what gets shared for one event.
type Payload struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
}

// Plain is the single-block form used by the clipboard.
func (p Payload) Plain() string {
	return p.Title + "\n" + p.Text + "\n" + p.URL
}

// BuildPayload formats the share text of e. Dates use the es-CO short form
// (day/month/year without padding).
func BuildPayload(e model.EventRecord, baseURL string, loc *time.Location) Payload {
	date := e.Fecha
	if t, err := e.Time(loc); err == nil {
		date = t.Format("2/1/2006")
	}
	return Payload{
		EventID: e.ID,
		Title:   e.Titulo,
		Text:    e.Descripcion + "\n\nFecha: " + date + "\nLugar: " + e.Lugar,
		URL:     strings.TrimRight(baseURL, "/") + "/evento/" + e.ID,
	}
}

// Sharer delivers a payload over one channel.
type Sharer interface {
	Name() string
	Share(ctx context.Context, p Payload) error
}

// Awarder is satisfied by rewards.Store.
type Awarder interface {
	AwardShareBonus(ctx context.Context, eventID string, amount int64, label string) bool
}

type Status string

const (
	StatusAwarded         Status = "awarded"
	StatusAlreadyRewarded Status = "alreadyRewarded"
	StatusFailed          Status = "failed"
)

type Outcome struct {
	Status  Status `json:"status"`
	Channel string `json:"channel,omitempty"`
	Points  int64  `json:"points"`
	Message string `json:"message"`
}

var ErrNoChannel = errors.New("no share channel configured")

// ErrUnavailable is returned by a channel that cannot be used at all, for
// example because it is not configured. Only this error moves the service
// on to the next channel.
var ErrUnavailable = errors.New("share channel unavailable")

// Service uses the first available channel. A channel that is available
// but fails ends the attempt without trying the others.
type Service struct {
	channels []Sharer
	awarder  Awarder
	points   int64
}

func NewService(awarder Awarder, points int64, channels ...Sharer) *Service {
	kept := make([]Sharer, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Service{channels: kept, awarder: awarder, points: points}
}

// Share delivers p and, on success, grants the bonus at most once per event.
// A failed share never marks the event as shared.
func (s *Service) Share(ctx context.Context, p Payload) Outcome {
	channel, err := s.deliver(ctx, p)
	if err != nil {
		appLog.Warn("share failed", "event_id", p.EventID, "reason", err.Error())
		return Outcome{Status: StatusFailed, Message: "Función de compartir no disponible"}
	}

	if s.awarder.AwardShareBonus(ctx, p.EventID, s.points, rewards.LabelShare) {
		appLog.Info("share bonus awarded", "event_id", p.EventID, "channel", channel, "points", s.points)
		return Outcome{Status: StatusAwarded, Channel: channel, Points: s.points, Message: successText(channel) + " +" + itoa(s.points) + " puntos ganados"}
	}
	return Outcome{Status: StatusAlreadyRewarded, Channel: channel, Message: successText(channel) + " (Ya ganaste puntos por este evento)"}
}

func (s *Service) deliver(ctx context.Context, p Payload) (string, error) {
	if len(s.channels) == 0 {
		return "", ErrNoChannel
	}
	for _, c := range s.channels {
		err := c.Share(ctx, p)
		if err == nil {
			return c.Name(), nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", fmt.Errorf("%s: %w", c.Name(), err)
		}
		appLog.Debug("share channel unavailable", "channel", c.Name())
	}
	return "", ErrNoChannel
}

func successText(channel string) string {
	if channel == ClipboardName {
		return "¡Enlace copiado al portapapeles!"
	}
	return "¡Evento compartido!"
}
