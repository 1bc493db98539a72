package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"yds-challenge-service/internal/domain"
)

// Standing is a ranked participant in a finished room.
type Standing struct {
	Participant domain.Participant
	Winner      bool
	Perfect     bool
}

// FinishGame marks the room finished and credits stats, badges and ratings.
// It reports false, with no side effects, when the room was already finished.
// Failures after the status change are logged and do not undo it.
func (s *RoomService) FinishGame(ctx context.Context, roomID int64) (bool, error) {
	ok, err := s.store.FinishRoom(ctx, roomID, s.now())
	if err != nil {
		return false, fmt.Errorf("finish room: %w", err)
	}
	if !ok {
		s.log.Debug("room already finished", zap.Int64("room_id", roomID))
		return false, nil
	}

	log := s.log.With(zap.Int64("room_id", roomID))
	room, err := s.store.RoomByID(ctx, roomID)
	if err != nil {
		log.Error("load finished room", zap.Error(err))
		return true, nil
	}
	log = log.With(zap.String("code", room.Code))

	participants, err := s.store.Participants(ctx, roomID)
	if err != nil {
		log.Error("load participants for completion", zap.Error(err))
		return true, nil
	}

	standings := Standings(registeredOnly(participants))
	for _, st := range standings {
		s.creditPlayer(ctx, log, room, st)
	}
	if len(standings) >= 2 {
		s.rate(ctx, log, standings[0].Participant, standings[1].Participant)
	}

	log.Info("game finished", zap.Int("rated_players", len(standings)))
	return true, nil
}

// Standings ranks participants by score, then fewer wrong answers, then join
// time. Only a room with two or more players has a winner.
func Standings(participants []domain.Participant) []Standing {
	ranked := make([]domain.Participant, len(participants))
	copy(ranked, participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalWrong != b.TotalWrong {
			return a.TotalWrong < b.TotalWrong
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})

	out := make([]Standing, len(ranked))
	for i, p := range ranked {
		out[i] = Standing{
			Participant: p,
			Winner:      i == 0 && len(ranked) >= 2,
			Perfect:     p.TotalWrong == 0 && p.TotalCorrect > 0,
		}
	}
	return out
}

func registeredOnly(participants []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.UserID != nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *RoomService) creditPlayer(ctx context.Context, log *zap.Logger, room domain.Room, st Standing) {
	p := st.Participant
	userID := *p.UserID
	stats, err := s.store.RecordGame(ctx, userID, st.Winner, p.Score, p.MaxStreak)
	if err != nil {
		log.Error("record game stats", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	var badges []domain.Badge
	if st.Winner {
		badges = append(badges, domain.BadgeFirstWin)
		if room.QuestionCount >= domain.FullYDSQuestions {
			badges = append(badges, domain.BadgeYDSMaster)
		}
	}
	if st.Perfect {
		badges = append(badges, domain.BadgePerfectGame)
	}
	badges = append(badges, domain.GamesBadges(stats.TotalGames)...)
	s.awardBadges(ctx, userID, badges)
}

func (s *RoomService) rate(ctx context.Context, log *zap.Logger, winner, loser domain.Participant) {
	wID, lID := *winner.UserID, *loser.UserID
	if wID == lID {
		return
	}
	newWinner, newLoser, err := s.store.AdjustRatings(ctx, wID, lID, domain.UpdateElo)
	if err != nil {
		log.Error("update ratings", zap.Int64("winner", wID), zap.Int64("loser", lID), zap.Error(err))
		return
	}
	log.Debug("ratings updated",
		zap.Int64("winner", wID), zap.Int("winner_elo", newWinner),
		zap.Int64("loser", lID), zap.Int("loser_elo", newLoser),
	)
	s.awardBadges(ctx, wID, domain.EloBadges(newWinner))
}
