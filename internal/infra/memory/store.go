package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

type answerKey struct {
	participantID int64
	questionIndex int
}

// Store is an in-memory implementation of app.Store. A single mutex makes
// every method, including RecordAnswer, one atomic unit.
type Store struct {
	mu    sync.Mutex
	clock func() time.Time

	nextID        int64
	rooms         map[int64]*domain.Room
	codes         map[string]int64
	roomQuestions map[int64][]int64
	participants  map[int64]*domain.Participant
	answers       map[answerKey]*domain.Answer
	stats         map[int64]*domain.ChallengeStats
	badges        map[int64]map[domain.Badge]time.Time
	messages      []domain.ChatMessage
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock is used by tests that need deterministic timestamps.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		clock:         now,
		rooms:         make(map[int64]*domain.Room),
		codes:         make(map[string]int64),
		roomQuestions: make(map[int64][]int64),
		participants:  make(map[int64]*domain.Participant),
		answers:       make(map[answerKey]*domain.Answer),
		stats:         make(map[int64]*domain.ChallengeStats),
		badges:        make(map[int64]map[domain.Badge]time.Time),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func copyRoom(r *domain.Room) domain.Room {
	out := *r
	out.Categories = append([]string(nil), r.Categories...)
	return out
}

func (s *Store) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[code]
	return ok, nil
}

func (s *Store) CreateRoom(_ context.Context, room *domain.Room, admin *domain.Participant, questionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[room.Code]; ok {
		return domain.ErrCodeTaken
	}

	room.ID = s.id()
	stored := copyRoom(room)
	s.rooms[room.ID] = &stored
	s.codes[room.Code] = room.ID
	s.roomQuestions[room.ID] = append([]int64(nil), questionIDs...)

	admin.ID = s.id()
	admin.RoomID = room.ID
	p := *admin
	s.participants[admin.ID] = &p
	return nil
}

func (s *Store) RoomByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return copyRoom(s.rooms[id]), nil
}

func (s *Store) RoomByID(_ context.Context, id int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *Store) RoomQuestions(_ context.Context, roomID int64) ([]domain.RoomQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.roomQuestions[roomID]
	out := make([]domain.RoomQuestion, len(ids))
	for i, id := range ids {
		out[i] = domain.RoomQuestion{RoomID: roomID, QuestionID: id, QuestionIndex: i}
	}
	return out, nil
}

func (s *Store) RoomQuestionID(_ context.Context, roomID int64, index int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.roomQuestions[roomID]
	if index < 0 || index >= len(ids) {
		return 0, domain.ErrQuestionNotFound
	}
	return ids[index], nil
}

func (s *Store) UpdateSettings(_ context.Context, roomID int64, patch domain.RoomSettingsPatch) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if room.Status != domain.RoomWaiting {
		return domain.Room{}, domain.ErrNotWaiting
	}
	updated := patch.Apply(*room)
	*room = updated
	if patch.MaxLives != nil {
		for _, p := range s.participants {
			if p.RoomID == roomID {
				p.Lives = updated.MaxLives
			}
		}
	}
	return copyRoom(room), nil
}

func (s *Store) StartRoom(_ context.Context, roomID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok || room.Status != domain.RoomWaiting {
		return false, nil
	}
	room.Status = domain.RoomActive
	room.CurrentQuestionIndex = 0
	room.StartedAt = &now
	room.QuestionStartedAt = &now
	return true, nil
}

func (s *Store) AdvanceQuestion(_ context.Context, roomID int64, from, to int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok || room.Status != domain.RoomActive || room.CurrentQuestionIndex != from {
		return false, nil
	}
	room.CurrentQuestionIndex = to
	room.QuestionStartedAt = &now
	return true, nil
}

func (s *Store) FinishRoom(_ context.Context, roomID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false, domain.ErrRoomNotFound
	}
	if room.Status == domain.RoomFinished {
		return false, nil
	}
	room.Status = domain.RoomFinished
	room.EndedAt = &now
	return true, nil
}

func (s *Store) DeleteRoom(_ context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteRoomLocked(roomID)
	return nil
}

func (s *Store) DeleteRooms(_ context.Context, status domain.RoomStatus, createdBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, room := range s.rooms {
		if room.Status == status && room.CreatedAt.Before(createdBefore) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		s.deleteRoomLocked(id)
	}
	return len(ids), nil
}

func (s *Store) deleteRoomLocked(roomID int64) {
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(s.codes, room.Code)
	delete(s.rooms, roomID)
	delete(s.roomQuestions, roomID)
	for id, p := range s.participants {
		if p.RoomID == roomID {
			delete(s.participants, id)
		}
	}
	for key, a := range s.answers {
		if a.RoomID == roomID {
			delete(s.answers, key)
		}
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.RoomID != roomID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

func (s *Store) participantLocked(roomID int64, username string) *domain.Participant {
	for _, p := range s.participants {
		if p.RoomID == roomID && p.Username == username {
			return p
		}
	}
	return nil
}

func (s *Store) Participant(_ context.Context, roomID int64, username string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participantLocked(roomID, username)
	if p == nil {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

func (s *Store) AddParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[p.RoomID]; !ok {
		return domain.ErrRoomNotFound
	}
	if s.participantLocked(p.RoomID, p.Username) != nil {
		return domain.ErrDuplicateParticipant
	}
	p.ID = s.id()
	stored := *p
	s.participants[p.ID] = &stored
	return nil
}

func (s *Store) TouchParticipant(_ context.Context, roomID int64, username string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participantLocked(roomID, username)
	if p == nil {
		return domain.ErrParticipantNotFound
	}
	p.LastSeen = now
	return nil
}

func (s *Store) SetReady(_ context.Context, roomID int64, username string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participantLocked(roomID, username)
	if p == nil {
		return domain.ErrParticipantNotFound
	}
	p.IsReady = ready
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, roomID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participantLocked(roomID, username)
	if p == nil {
		return nil
	}
	delete(s.participants, p.ID)
	for key, a := range s.answers {
		if a.ParticipantID == p.ID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *Store) roomParticipantsLocked(roomID int64) []domain.Participant {
	var out []domain.Participant
	for _, p := range s.participants {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsAdmin != out[j].IsAdmin {
			return out[i].IsAdmin
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Participants(_ context.Context, roomID int64) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomParticipantsLocked(roomID), nil
}

func (s *Store) History(_ context.Context, username string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HistoryEntry
	for _, p := range s.participants {
		if p.Username != username {
			continue
		}
		room, ok := s.rooms[p.RoomID]
		if !ok {
			continue
		}
		out = append(out, domain.HistoryEntry{
			Room:             copyRoom(room),
			TotalCorrect:     p.TotalCorrect,
			TotalWrong:       p.TotalWrong,
			Score:            p.Score,
			IsAdmin:          p.IsAdmin,
			ParticipantCount: len(s.roomParticipantsLocked(p.RoomID)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Room.CreatedAt.Equal(out[j].Room.CreatedAt) {
			return out[i].Room.CreatedAt.After(out[j].Room.CreatedAt)
		}
		return out[i].Room.ID > out[j].Room.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecordAnswer(_ context.Context, participantID int64, fn app.AnswerFunc) (domain.Answer, domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return domain.Answer{}, domain.Participant{}, domain.ErrParticipantNotFound
	}
	room, ok := s.rooms[p.RoomID]
	if !ok {
		return domain.Answer{}, domain.Participant{}, domain.ErrRoomNotFound
	}

	var prior []domain.Answer
	for key, a := range s.answers {
		if key.participantID == participantID {
			prior = append(prior, *a)
		}
	}

	answer, updated, err := fn(copyRoom(room), *p, prior)
	if err != nil {
		return domain.Answer{}, domain.Participant{}, err
	}
	answer.ParticipantID = participantID
	answer.RoomID = p.RoomID
	answer.Username = p.Username
	stored := answer
	s.answers[answerKey{participantID: participantID, questionIndex: answer.QuestionIndex}] = &stored

	// Identity and membership fields are not the callback's to change.
	updated.ID, updated.RoomID, updated.Username = p.ID, p.RoomID, p.Username
	updated.UserID, updated.IsAdmin, updated.JoinedAt = p.UserID, p.IsAdmin, p.JoinedAt
	*p = updated
	return answer, updated, nil
}

func sortAnswers(out []domain.Answer) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuestionIndex != out[j].QuestionIndex {
			return out[i].QuestionIndex < out[j].QuestionIndex
		}
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.Before(out[j].AnsweredAt)
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
}

func (s *Store) AnswersForQuestion(_ context.Context, roomID int64, questionIndex int) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.RoomID == roomID && a.QuestionIndex == questionIndex {
			out = append(out, *a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (s *Store) RoomAnswers(_ context.Context, roomID int64) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.RoomID == roomID {
			out = append(out, *a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (s *Store) statsLocked(userID int64) *domain.ChallengeStats {
	st, ok := s.stats[userID]
	if !ok {
		st = &domain.ChallengeStats{UserID: userID, EloRating: domain.DefaultElo}
		s.stats[userID] = st
	}
	return st
}

func (s *Store) RecordGame(_ context.Context, userID int64, won bool, points, maxStreak int) (domain.ChallengeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statsLocked(userID)
	st.TotalGames++
	if won {
		st.TotalWins++
	}
	st.TotalPoints += points
	if maxStreak > st.HighestStreak {
		st.HighestStreak = maxStreak
	}
	st.UpdatedAt = s.clock()
	return *st, nil
}

func (s *Store) AdjustRatings(_ context.Context, winnerID, loserID int64, fn func(winner, loser int) (int, int)) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, l := s.statsLocked(winnerID), s.statsLocked(loserID)
	w.EloRating, l.EloRating = fn(w.EloRating, l.EloRating)
	now := s.clock()
	w.UpdatedAt, l.UpdatedAt = now, now
	return w.EloRating, l.EloRating, nil
}

func (s *Store) Stats(_ context.Context, userID int64) (domain.ChallengeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[userID]; ok {
		return *st, nil
	}
	return domain.ChallengeStats{UserID: userID, EloRating: domain.DefaultElo}, nil
}

func (s *Store) AwardBadge(_ context.Context, userID int64, badge domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	held, ok := s.badges[userID]
	if !ok {
		held = make(map[domain.Badge]time.Time)
		s.badges[userID] = held
	}
	if _, ok := held[badge]; !ok {
		held[badge] = s.clock()
	}
	return nil
}

func (s *Store) UserBadges(_ context.Context, userID int64) ([]domain.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BadgeAward
	for badge, at := range s.badges[userID] {
		out = append(out, domain.BadgeAward{UserID: userID, Badge: badge, EarnedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].Badge < out[j].Badge
	})
	return out, nil
}

func (s *Store) AddMessage(_ context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[msg.RoomID]; !ok {
		return domain.ErrRoomNotFound
	}
	msg.ID = s.id()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Store) Messages(_ context.Context, roomID int64, since *time.Time, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range s.messages {
		if m.RoomID != roomID {
			continue
		}
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
