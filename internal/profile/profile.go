// Package profile assembles the user profile from static configuration and
// live counters read from the stores.
package profile

import (
	"slices"
	"time"

	"uaoagenda/internal/config"
	"uaoagenda/internal/model"
)

type Profile struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	AvatarURL      string   `json:"avatar"`
	Attended       int      `json:"attended"`
	FavoritesCount int      `json:"favoritesCount"`
	Upcoming       int      `json:"upcoming"`
	Points         int64    `json:"points"`
	Interests      []string `json:"interests"`
	// FavoriteEvents is filled from the catalog, in catalog order.
	FavoriteEvents []model.EventRecord `json:"favoriteEvents"`
}

// Counters are the live sources of the derived fields.
type Counters interface {
	FavoritesCount() int
	Upcoming(now time.Time, loc *time.Location) int
	Points() int64
}

// Build combines the configured identity with live counters.
func Build(cfg config.ProfileConfig, c Counters, favorites []model.EventRecord, now time.Time, loc *time.Location) Profile {
	interests := slices.Clone(cfg.Interests)
	if interests == nil {
		interests = []string{}
	}
	favs := slices.Clone(favorites)
	if favs == nil {
		favs = []model.EventRecord{}
	}
	return Profile{
		Name:           cfg.Name,
		Email:          cfg.Email,
		AvatarURL:      cfg.AvatarURL,
		Attended:       cfg.Attended,
		FavoritesCount: c.FavoritesCount(),
		Upcoming:       c.Upcoming(now, loc),
		Points:         c.Points(),
		Interests:      interests,
		FavoriteEvents: favs,
	}
}
