package app

import (
	"context"
	"fmt"
	"strings"

	"yds-challenge-service/internal/domain"
)

const historyLimit = 50

// PlayerProfile is a user's challenge stats and earned badges.
type PlayerProfile struct {
	Stats  domain.ChallengeStats `json:"stats"`
	Badges []domain.BadgeAward   `json:"badges"`
}

// History lists the rooms username took part in, newest first.
func (s *RoomService) History(ctx context.Context, username string) ([]domain.HistoryEntry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validation("username is required")
	}
	entries, err := s.store.History(ctx, username, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("room history: %w", err)
	}
	return entries, nil
}

// PlayerStats returns the stats of userID. Users without games get the default rating.
func (s *RoomService) PlayerStats(ctx context.Context, userID int64) (PlayerProfile, error) {
	stats, err := s.store.Stats(ctx, userID)
	if err != nil {
		return PlayerProfile{}, fmt.Errorf("load stats: %w", err)
	}
	badges, err := s.store.UserBadges(ctx, userID)
	if err != nil {
		return PlayerProfile{}, fmt.Errorf("load badges: %w", err)
	}
	if badges == nil {
		badges = []domain.BadgeAward{}
	}
	return PlayerProfile{Stats: stats, Badges: badges}, nil
}

// Templates lists the predefined room templates.
func (s *RoomService) Templates() []domain.RoomTemplate {
	return domain.Templates()
}

// Badges lists the badge catalog.
func (s *RoomService) Badges() []domain.BadgeInfo {
	return domain.Badges()
}
