package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store implements app.Store on bun. Multi-statement operations run in one
// transaction; state transitions are conditional updates.
type Store struct {
	db    *bun.DB
	clock func() time.Time
}

// Open returns a bun handle over a pgdriver connection pool.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	return s.db.NewSelect().Model((*roomRow)(nil)).Where("room_code = ?", code).Exists(ctx)
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room, admin *domain.Participant, questionIDs []int64) error {
	row := roomFromDomain(*room)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrCodeTaken
			}
			return fmt.Errorf("insert room: %w", err)
		}

		p := participantFromDomain(*admin)
		p.RoomID = row.ID
		if _, err := tx.NewInsert().Model(&p).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
		admin.ID, admin.RoomID = p.ID, p.RoomID

		if len(questionIDs) == 0 {
			return nil
		}
		rows := make([]roomQuestionRow, len(questionIDs))
		for i, id := range questionIDs {
			rows[i] = roomQuestionRow{RoomID: row.ID, QuestionID: id, QuestionIndex: i}
		}
		if _, err := tx.NewInsert().Model(&rows).ExcludeColumn("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert room questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	room.ID = row.ID
	return nil
}

func (s *Store) roomWhere(ctx context.Context, where string, arg any) (domain.Room, error) {
	var row roomRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("select room: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) RoomByCode(ctx context.Context, code string) (domain.Room, error) {
	return s.roomWhere(ctx, "room_code = ?", code)
}

func (s *Store) RoomByID(ctx context.Context, id int64) (domain.Room, error) {
	return s.roomWhere(ctx, "id = ?", id)
}

func (s *Store) RoomQuestions(ctx context.Context, roomID int64) ([]domain.RoomQuestion, error) {
	var rows []roomQuestionRow
	err := s.db.NewSelect().Model(&rows).Where("room_id = ?", roomID).Order("question_index ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RoomQuestion, len(rows))
	for i, r := range rows {
		out[i] = domain.RoomQuestion{RoomID: r.RoomID, QuestionID: r.QuestionID, QuestionIndex: r.QuestionIndex}
	}
	return out, nil
}

func (s *Store) RoomQuestionID(ctx context.Context, roomID int64, index int) (int64, error) {
	var id int64
	err := s.db.NewSelect().Model((*roomQuestionRow)(nil)).
		Column("question_id").
		Where("room_id = ?", roomID).
		Where("question_index = ?", index).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrQuestionNotFound
	}
	return id, err
}

func (s *Store) UpdateSettings(ctx context.Context, roomID int64, patch domain.RoomSettingsPatch) (domain.Room, error) {
	var updated domain.Room
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row roomRow
		err := tx.NewSelect().Model(&row).Where("id = ?", roomID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if row.Status != string(domain.RoomWaiting) {
			return domain.ErrNotWaiting
		}

		updated = patch.Apply(row.toDomain())
		next := roomFromDomain(updated)
		_, err = tx.NewUpdate().Model(&next).
			Column("time_limit", "enable_lives", "max_lives", "scoring_mode", "shuffle_questions", "game_mode").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if patch.MaxLives != nil {
			_, err = tx.NewUpdate().Model((*participantRow)(nil)).
				Set("lives = ?", updated.MaxLives).
				Where("room_id = ?", roomID).
				Exec(ctx)
		}
		return err
	})
	return updated, err
}

func (s *Store) StartRoom(ctx context.Context, roomID int64, now time.Time) (bool, error) {
	res, err := s.db.NewUpdate().Model((*roomRow)(nil)).
		Set("status = ?", domain.RoomActive).
		Set("current_question_index = 0").
		Set("started_at = ?", now).
		Set("question_started_at = ?", now).
		Where("id = ?", roomID).
		Where("status = ?", domain.RoomWaiting).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) AdvanceQuestion(ctx context.Context, roomID int64, from, to int, now time.Time) (bool, error) {
	res, err := s.db.NewUpdate().Model((*roomRow)(nil)).
		Set("current_question_index = ?", to).
		Set("question_started_at = ?", now).
		Where("id = ?", roomID).
		Where("status = ?", domain.RoomActive).
		Where("current_question_index = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) FinishRoom(ctx context.Context, roomID int64, now time.Time) (bool, error) {
	res, err := s.db.NewUpdate().Model((*roomRow)(nil)).
		Set("status = ?", domain.RoomFinished).
		Set("ended_at = ?", now).
		Where("id = ?", roomID).
		Where("status <> ?", domain.RoomFinished).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// DeleteRoom relies on ON DELETE CASCADE for participants, questions,
// answers and messages.
func (s *Store) DeleteRoom(ctx context.Context, roomID int64) error {
	_, err := s.db.NewDelete().Model((*roomRow)(nil)).Where("id = ?", roomID).Exec(ctx)
	return err
}

func (s *Store) DeleteRooms(ctx context.Context, status domain.RoomStatus, createdBefore time.Time) (int, error) {
	res, err := s.db.NewDelete().Model((*roomRow)(nil)).
		Where("status = ?", status).
		Where("created_at < ?", createdBefore).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Participant(ctx context.Context, roomID int64, username string) (domain.Participant, error) {
	var row participantRow
	err := s.db.NewSelect().Model(&row).
		Where("room_id = ?", roomID).
		Where("username = ?", username).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AddParticipant(ctx context.Context, p *domain.Participant) error {
	row := participantFromDomain(*p)
	_, err := s.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateParticipant
	}
	if err != nil {
		return err
	}
	p.ID = row.ID
	return nil
}

func (s *Store) updateParticipant(ctx context.Context, roomID int64, username, set string, arg any) error {
	res, err := s.db.NewUpdate().Model((*participantRow)(nil)).
		Set(set, arg).
		Where("room_id = ?", roomID).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) TouchParticipant(ctx context.Context, roomID int64, username string, now time.Time) error {
	return s.updateParticipant(ctx, roomID, username, "last_seen = ?", now)
}

func (s *Store) SetReady(ctx context.Context, roomID int64, username string, ready bool) error {
	return s.updateParticipant(ctx, roomID, username, "is_ready = ?", ready)
}

func (s *Store) RemoveParticipant(ctx context.Context, roomID int64, username string) error {
	_, err := s.db.NewDelete().Model((*participantRow)(nil)).
		Where("room_id = ?", roomID).
		Where("username = ?", username).
		Exec(ctx)
	return err
}

func (s *Store) Participants(ctx context.Context, roomID int64) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).
		Where("room_id = ?", roomID).
		OrderExpr("is_admin DESC, joined_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, username string, limit int) ([]domain.HistoryEntry, error) {
	var parts []participantRow
	err := s.db.NewSelect().Model(&parts).
		Join("JOIN challenge_rooms AS cr ON cr.id = rp.room_id").
		Where("rp.username = ?", username).
		OrderExpr("cr.created_at DESC, cr.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select memberships: %w", err)
	}
	if len(parts) == 0 {
		return []domain.HistoryEntry{}, nil
	}

	ids := make([]int64, len(parts))
	for i, p := range parts {
		ids[i] = p.RoomID
	}
	var rooms []roomRow
	if err := s.db.NewSelect().Model(&rooms).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	byID := make(map[int64]roomRow, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}

	var counts []struct {
		RoomID int64 `bun:"room_id"`
		N      int   `bun:"n"`
	}
	err = s.db.NewSelect().Model((*participantRow)(nil)).
		Column("room_id").
		ColumnExpr("COUNT(*) AS n").
		Where("room_id IN (?)", bun.In(ids)).
		Group("room_id").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	sizes := make(map[int64]int, len(counts))
	for _, c := range counts {
		sizes[c.RoomID] = c.N
	}

	out := make([]domain.HistoryEntry, 0, len(parts))
	for _, p := range parts {
		room, ok := byID[p.RoomID]
		if !ok {
			continue
		}
		out = append(out, domain.HistoryEntry{
			Room:             room.toDomain(),
			TotalCorrect:     p.TotalCorrect,
			TotalWrong:       p.TotalWrong,
			Score:            p.Score,
			IsAdmin:          p.IsAdmin,
			ParticipantCount: sizes[p.RoomID],
		})
	}
	return out, nil
}

func (s *Store) RecordAnswer(ctx context.Context, participantID int64, fn app.AnswerFunc) (domain.Answer, domain.Participant, error) {
	var (
		answer  domain.Answer
		updated domain.Participant
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var roomID int64
		err := tx.NewSelect().Model((*participantRow)(nil)).Column("room_id").
			Where("id = ?", participantID).Scan(ctx, &roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}

		// Room before participant, the same order settings updates use. The
		// share lock holds off FinishRoom until this answer is committed.
		var rrow roomRow
		err = tx.NewSelect().Model(&rrow).Where("id = ?", roomID).For("SHARE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		var prow participantRow
		err = tx.NewSelect().Model(&prow).Where("id = ?", participantID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}

		var rows []answerRow
		if err := tx.NewSelect().Model(&rows).Where("participant_id = ?", participantID).Scan(ctx); err != nil {
			return err
		}
		prior := make([]domain.Answer, len(rows))
		for i, r := range rows {
			prior[i] = r.toDomain()
		}

		current := prow.toDomain()
		answer, updated, err = fn(rrow.toDomain(), current, prior)
		if err != nil {
			return err
		}
		answer.RoomID, answer.ParticipantID, answer.Username = prow.RoomID, prow.ID, prow.Username

		arow := answerFromDomain(answer)
		_, err = tx.NewInsert().Model(&arow).
			ExcludeColumn("id").
			On("CONFLICT (room_id, participant_id, question_index) DO UPDATE").
			Set("selected_answer = EXCLUDED.selected_answer").
			Set("is_correct = EXCLUDED.is_correct").
			Set("answer_time_ms = EXCLUDED.answer_time_ms").
			Set("points_earned = EXCLUDED.points_earned").
			Set("answered_at = EXCLUDED.answered_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}

		next := participantFromDomain(updated)
		next.ID = prow.ID
		_, err = tx.NewUpdate().Model(&next).
			Column("lives", "is_eliminated", "current_streak", "max_streak",
				"total_correct", "total_wrong", "score", "last_seen").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update participant: %w", err)
		}
		updated = mergeAggregates(current, updated)
		return nil
	})
	if err != nil {
		return domain.Answer{}, domain.Participant{}, err
	}
	return answer, updated, nil
}

// mergeAggregates keeps identity from the stored row and scoring state from next.
func mergeAggregates(stored, next domain.Participant) domain.Participant {
	out := stored
	out.Lives = next.Lives
	out.IsEliminated = next.IsEliminated
	out.CurrentStreak = next.CurrentStreak
	out.MaxStreak = next.MaxStreak
	out.TotalCorrect = next.TotalCorrect
	out.TotalWrong = next.TotalWrong
	out.Score = next.Score
	out.LastSeen = next.LastSeen
	return out
}

func (s *Store) answers(ctx context.Context, q *bun.SelectQuery) ([]domain.Answer, error) {
	var rows []answerRow
	err := q.Model(&rows).
		ColumnExpr("ra.*").
		ColumnExpr("rp.username").
		Join("JOIN room_participants AS rp ON rp.id = ra.participant_id").
		OrderExpr("ra.question_index ASC, ra.answered_at ASC, ra.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Answer, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) AnswersForQuestion(ctx context.Context, roomID int64, questionIndex int) ([]domain.Answer, error) {
	return s.answers(ctx, s.db.NewSelect().
		Where("ra.room_id = ?", roomID).
		Where("ra.question_index = ?", questionIndex))
}

func (s *Store) RoomAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error) {
	return s.answers(ctx, s.db.NewSelect().Where("ra.room_id = ?", roomID))
}
