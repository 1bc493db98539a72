package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"yds-challenge-service/internal/domain"
)

// CreateRoomInput describes a new room. Exactly one question source is used,
// checked in the order Mode, CategoryQuestions, Template.
type CreateRoomInput struct {
	AdminName         string
	AdminID           *int64
	Name              string
	Mode              string
	CategoryQuestions []domain.CategoryCount
	Template          string
	TimeLimit         *int
	EnableLives       bool
	MaxLives          int
	ShuffleQuestions  *bool
	ScoringMode       domain.ScoringMode
}

// CreateRoomResult is the created room and the number of questions actually assigned.
type CreateRoomResult struct {
	Room                domain.Room `json:"room"`
	ActualQuestionCount int         `json:"actualQuestionCount"`
	Mode                string      `json:"mode,omitempty"`
}

// AdvanceResult reports the room position after an advance.
type AdvanceResult struct {
	Finished      bool `json:"finished"`
	QuestionIndex int  `json:"currentQuestionIndex"`
}

// CreateRoom seeds a room with sampled questions and inserts its admin.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (CreateRoomResult, error) {
	adminName := strings.TrimSpace(in.AdminName)
	if adminName == "" {
		return CreateRoomResult{}, domain.Validation("admin name is required")
	}

	dist, timeLimit, err := resolveDistribution(in)
	if err != nil {
		return CreateRoomResult{}, err
	}

	maxLives := in.MaxLives
	if maxLives == 0 {
		maxLives = domain.DefaultMaxLives
	}
	mode := in.ScoringMode
	if mode == "" {
		mode = domain.ScoringSpeed
	}
	shuffle := true
	if in.ShuffleQuestions != nil {
		shuffle = *in.ShuffleQuestions
	}
	patch := domain.RoomSettingsPatch{TimeLimit: &timeLimit, MaxLives: &maxLives, ScoringMode: &mode}
	if err := patch.Validate(); err != nil {
		return CreateRoomResult{}, err
	}

	questions, categories, err := s.sampleQuestions(ctx, dist)
	if err != nil {
		return CreateRoomResult{}, err
	}
	if len(questions) == 0 {
		return CreateRoomResult{}, domain.ErrNoQuestions
	}
	if shuffle {
		s.shuffle.Shuffle(questions)
	}
	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = adminName + "'in Odası"
	}

	now := s.now()
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := s.freshCode(ctx)
		if err != nil {
			return CreateRoomResult{}, err
		}
		if code == "" {
			continue
		}

		room := domain.Room{
			Code:                 code,
			Name:                 name,
			AdminID:              in.AdminID,
			AdminName:            adminName,
			Status:               domain.RoomWaiting,
			QuestionCount:        len(ids),
			Categories:           categories,
			CurrentQuestionIndex: domain.NotStarted,
			TimeLimit:            timeLimit,
			EnableLives:          in.EnableLives,
			MaxLives:             maxLives,
			ShuffleQuestions:     shuffle,
			ScoringMode:          mode,
			GameMode:             domain.DefaultGameMode,
			CreatedAt:            now,
		}
		admin := domain.Participant{
			UserID:   in.AdminID,
			Username: adminName,
			IsAdmin:  true,
			IsReady:  true,
			Lives:    maxLives,
			JoinedAt: now,
			LastSeen: now,
		}
		err = s.store.CreateRoom(ctx, &room, &admin, ids)
		if errors.Is(err, domain.ErrCodeTaken) {
			s.log.Debug("room code collided on insert", zap.String("code", code))
			continue
		}
		if err != nil {
			return CreateRoomResult{}, fmt.Errorf("create room: %w", err)
		}

		s.log.Info("room created",
			zap.String("code", room.Code),
			zap.String("admin", adminName),
			zap.Int("questions", len(ids)),
		)
		return CreateRoomResult{Room: room, ActualQuestionCount: len(ids), Mode: in.Mode}, nil
	}
	return CreateRoomResult{}, fmt.Errorf("create room: no free room code after %d attempts", s.codeAttempts)
}

// freshCode returns a code not present in the store, or "" when the candidate
// was taken and the caller should try again.
func (s *RoomService) freshCode(ctx context.Context) (string, error) {
	code := s.codes.Generate()
	exists, err := s.store.CodeExists(ctx, code)
	if err != nil {
		return "", fmt.Errorf("check room code: %w", err)
	}
	if exists {
		return "", nil
	}
	if s.reserver == nil {
		return code, nil
	}
	ok, err := s.reserver.Reserve(ctx, code)
	if err != nil {
		// The unique index on room codes still catches collisions.
		s.log.Warn("room code reservation failed", zap.String("code", code), zap.Error(err))
		return code, nil
	}
	if !ok {
		return "", nil
	}
	return code, nil
}

// releaseCode drops a reservation so a deleted room's code can be reused
// before the claim expires.
func (s *RoomService) releaseCode(ctx context.Context, code string) {
	if s.reserver == nil {
		return
	}
	if err := s.reserver.Release(ctx, code); err != nil {
		s.log.Warn("room code release failed", zap.String("code", code), zap.Error(err))
	}
}

func resolveDistribution(in CreateRoomInput) ([]domain.CategoryCount, int, error) {
	timeLimit := 0
	if in.TimeLimit != nil {
		timeLimit = *in.TimeLimit
	}

	switch {
	case in.Mode != "":
		dist, ok := domain.PresetDistribution(in.Mode)
		if !ok {
			return nil, 0, domain.Validation("unknown mode " + in.Mode)
		}
		return dist, timeLimit, nil
	case len(in.CategoryQuestions) > 0:
		var dist []domain.CategoryCount
		for _, cc := range in.CategoryQuestions {
			if cc.Count < 0 {
				return nil, 0, domain.Validation("question count cannot be negative")
			}
			if cc.Count == 0 || strings.TrimSpace(cc.Category) == "" {
				continue
			}
			dist = append(dist, cc)
		}
		if len(dist) == 0 {
			return nil, 0, domain.Validation("at least one category with questions is required")
		}
		return dist, timeLimit, nil
	case in.Template != "":
		tpl, ok := domain.TemplateByID(in.Template)
		if !ok {
			return nil, 0, domain.Validation("unknown template " + in.Template)
		}
		if in.TimeLimit == nil {
			timeLimit = tpl.TimeLimit
		}
		return tpl.Distribution(), timeLimit, nil
	default:
		return nil, 0, domain.Validation("mode, categories or template is required")
	}
}

func (s *RoomService) sampleQuestions(ctx context.Context, dist []domain.CategoryCount) ([]domain.Question, []string, error) {
	seen := make(map[int64]struct{})
	var (
		questions  []domain.Question
		categories []string
	)
	for _, cc := range dist {
		sample, err := s.catalog.SampleByCategory(ctx, cc.Category, cc.Count)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %s questions: %w", cc.Category, err)
		}
		added := 0
		for _, q := range sample {
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			questions = append(questions, q)
			added++
		}
		if added > 0 {
			categories = append(categories, cc.Category)
		}
	}
	return questions, categories, nil
}

// JoinRoom adds username to a waiting room, or reconnects an existing participant.
func (s *RoomService) JoinRoom(ctx context.Context, code, username string, userID *int64) (domain.Participant, domain.Room, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Participant{}, domain.Room{}, domain.Validation("username is required")
	}
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return domain.Participant{}, domain.Room{}, err
	}
	if room.Status == domain.RoomFinished {
		return domain.Participant{}, domain.Room{}, domain.ErrGameFinished
	}

	existing, err := s.reconnect(ctx, room, username)
	if err == nil {
		return existing, room, nil
	}
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		return domain.Participant{}, domain.Room{}, err
	}

	if room.Status != domain.RoomWaiting {
		return domain.Participant{}, domain.Room{}, domain.ErrAlreadyStarted
	}

	now := s.now()
	p := domain.Participant{
		RoomID:   room.ID,
		UserID:   userID,
		Username: username,
		Lives:    room.MaxLives,
		JoinedAt: now,
		LastSeen: now,
	}
	err = s.store.AddParticipant(ctx, &p)
	if errors.Is(err, domain.ErrDuplicateParticipant) {
		// Lost a race against a concurrent join with the same name.
		existing, err := s.reconnect(ctx, room, username)
		return existing, room, err
	}
	if err != nil {
		return domain.Participant{}, domain.Room{}, fmt.Errorf("join room: %w", err)
	}
	s.log.Info("participant joined", zap.String("code", room.Code), zap.String("username", username))
	return p, room, nil
}

func (s *RoomService) reconnect(ctx context.Context, room domain.Room, username string) (domain.Participant, error) {
	p, err := s.store.Participant(ctx, room.ID, username)
	if err != nil {
		return domain.Participant{}, err
	}
	now := s.now()
	if err := s.store.TouchParticipant(ctx, room.ID, username, now); err != nil {
		return domain.Participant{}, fmt.Errorf("touch participant: %w", err)
	}
	p.LastSeen = now
	return p, nil
}

// SetReady stores the participant's ready flag. The room phase is not checked.
func (s *RoomService) SetReady(ctx context.Context, code, username string, ready bool) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Validation("username is required")
	}
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.store.SetReady(ctx, room.ID, username, ready)
}

// StartGame moves a waiting room to its first question.
func (s *RoomService) StartGame(ctx context.Context, code, adminName string) (domain.Room, error) {
	room, err := s.adminRoom(ctx, code, adminName)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomWaiting {
		return domain.Room{}, domain.ErrNotWaiting
	}

	now := s.now()
	ok, err := s.store.StartRoom(ctx, room.ID, now)
	if err != nil {
		return domain.Room{}, fmt.Errorf("start room: %w", err)
	}
	if !ok {
		return domain.Room{}, domain.ErrNotWaiting
	}
	room.Status = domain.RoomActive
	room.CurrentQuestionIndex = 0
	room.StartedAt = &now
	room.QuestionStartedAt = &now
	s.log.Info("game started", zap.String("code", room.Code))
	return room, nil
}

// AdvanceQuestion moves to the next question, finishing the game after the last one.
func (s *RoomService) AdvanceQuestion(ctx context.Context, code, adminName string) (AdvanceResult, error) {
	room, err := s.adminRoom(ctx, code, adminName)
	if err != nil {
		return AdvanceResult{}, err
	}
	if room.Status != domain.RoomActive {
		return AdvanceResult{}, domain.ErrNotActive
	}

	next := room.CurrentQuestionIndex + 1
	if next >= room.QuestionCount {
		if _, err := s.FinishGame(ctx, room.ID); err != nil {
			return AdvanceResult{}, err
		}
		return AdvanceResult{Finished: true, QuestionIndex: room.CurrentQuestionIndex}, nil
	}

	ok, err := s.store.AdvanceQuestion(ctx, room.ID, room.CurrentQuestionIndex, next, s.now())
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("advance question: %w", err)
	}
	if !ok {
		return AdvanceResult{}, domain.ErrQuestionAdvanced
	}
	return AdvanceResult{QuestionIndex: next}, nil
}

// EndGame finishes the room early. Ending a finished room succeeds without effect.
func (s *RoomService) EndGame(ctx context.Context, code, adminName string) error {
	room, err := s.adminRoom(ctx, code, adminName)
	if err != nil {
		return err
	}
	if room.Status == domain.RoomFinished {
		return nil
	}
	_, err = s.FinishGame(ctx, room.ID)
	return err
}

// LeaveRoom removes username from the room. The admin leaving a lobby deletes the room.
func (s *RoomService) LeaveRoom(ctx context.Context, code, username string) error {
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return err
	}
	if room.IsAdmin(username) && room.Status == domain.RoomWaiting {
		if err := s.store.DeleteRoom(ctx, room.ID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		s.releaseCode(ctx, room.Code)
		s.log.Info("room closed by admin", zap.String("code", room.Code))
		return nil
	}
	if err := s.store.RemoveParticipant(ctx, room.ID, username); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// UpdateSettings changes the settings of a room that has not started.
func (s *RoomService) UpdateSettings(ctx context.Context, code, adminName string, patch domain.RoomSettingsPatch) (domain.Room, error) {
	if err := patch.Validate(); err != nil {
		return domain.Room{}, err
	}
	room, err := s.adminRoom(ctx, code, adminName)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomWaiting {
		return domain.Room{}, domain.ErrNotWaiting
	}
	return s.store.UpdateSettings(ctx, room.ID, patch)
}
