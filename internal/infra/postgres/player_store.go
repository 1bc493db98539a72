package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"yds-challenge-service/internal/domain"
)

func (s *Store) RecordGame(ctx context.Context, userID int64, won bool, points, maxStreak int) (domain.ChallengeStats, error) {
	wins := 0
	if won {
		wins = 1
	}
	var row statsRow
	err := s.db.NewRaw(`
		INSERT INTO challenge_stats (user_id, total_games, total_wins, total_points, highest_streak, elo_rating, updated_at)
		VALUES (?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_games    = challenge_stats.total_games + 1,
			total_wins     = challenge_stats.total_wins + EXCLUDED.total_wins,
			total_points   = challenge_stats.total_points + EXCLUDED.total_points,
			highest_streak = GREATEST(challenge_stats.highest_streak, EXCLUDED.highest_streak),
			updated_at     = EXCLUDED.updated_at
		RETURNING *`,
		userID, wins, points, maxStreak, domain.DefaultElo, s.clock(),
	).Scan(ctx, &row)
	if err != nil {
		return domain.ChallengeStats{}, fmt.Errorf("upsert stats: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AdjustRatings(ctx context.Context, winnerID, loserID int64, fn func(winner, loser int) (int, int)) (int, int, error) {
	var newWinner, newLoser int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := s.clock()
		seed := []statsRow{
			{UserID: winnerID, EloRating: domain.DefaultElo, UpdatedAt: now},
			{UserID: loserID, EloRating: domain.DefaultElo, UpdatedAt: now},
		}
		if _, err := tx.NewInsert().Model(&seed).ExcludeColumn("id").On("CONFLICT (user_id) DO NOTHING").Exec(ctx); err != nil {
			return err
		}

		// Lock in user id order so concurrent rooms cannot deadlock.
		var rows []statsRow
		err := tx.NewSelect().Model(&rows).
			Where("user_id IN (?)", bun.In([]int64{winnerID, loserID})).
			Order("user_id ASC").
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return err
		}
		ratings := make(map[int64]int, len(rows))
		for _, r := range rows {
			ratings[r.UserID] = r.EloRating
		}

		newWinner, newLoser = fn(ratings[winnerID], ratings[loserID])
		for userID, rating := range map[int64]int{winnerID: newWinner, loserID: newLoser} {
			_, err := tx.NewUpdate().Model((*statsRow)(nil)).
				Set("elo_rating = ?", rating).
				Set("updated_at = ?", now).
				Where("user_id = ?", userID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("adjust ratings: %w", err)
	}
	return newWinner, newLoser, nil
}

func (s *Store) Stats(ctx context.Context, userID int64) (domain.ChallengeStats, error) {
	var row statsRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChallengeStats{UserID: userID, EloRating: domain.DefaultElo}, nil
	}
	if err != nil {
		return domain.ChallengeStats{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) AwardBadge(ctx context.Context, userID int64, badge domain.Badge) error {
	row := badgeRow{UserID: userID, BadgeID: string(badge), EarnedAt: s.clock()}
	_, err := s.db.NewInsert().Model(&row).
		ExcludeColumn("id").
		On("CONFLICT (user_id, badge_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) UserBadges(ctx context.Context, userID int64) ([]domain.BadgeAward, error) {
	var rows []badgeRow
	err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("earned_at ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BadgeAward, len(rows))
	for i, r := range rows {
		out[i] = domain.BadgeAward{UserID: r.UserID, Badge: domain.Badge(r.BadgeID), EarnedAt: r.EarnedAt}
	}
	return out, nil
}

func (s *Store) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	row := messageRow{
		RoomID:      msg.RoomID,
		Username:    msg.Username,
		Message:     msg.Message,
		Emoji:       msg.Emoji,
		MessageType: msg.MessageType,
		CreatedAt:   msg.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return err
	}
	msg.ID = row.ID
	return nil
}

func (s *Store) Messages(ctx context.Context, roomID int64, since *time.Time, limit int) ([]domain.ChatMessage, error) {
	var rows []messageRow
	q := s.db.NewSelect().Model(&rows).
		Where("room_id = ?", roomID).
		OrderExpr("created_at DESC, id DESC")
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	// newest first from the query, returned oldest first
	out := make([]domain.ChatMessage, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toDomain()
	}
	return out, nil
}
