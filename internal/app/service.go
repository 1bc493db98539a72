package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"yds-challenge-service/internal/domain"
)

// RoomRepository persists challenge rooms and their fixed question order.
type RoomRepository interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	// CreateRoom inserts room, admin and the ordered question ids atomically and
	// fills in the generated ids.
	CreateRoom(ctx context.Context, room *domain.Room, admin *domain.Participant, questionIDs []int64) error
	RoomByCode(ctx context.Context, code string) (domain.Room, error)
	RoomByID(ctx context.Context, id int64) (domain.Room, error)
	RoomQuestions(ctx context.Context, roomID int64) ([]domain.RoomQuestion, error)
	RoomQuestionID(ctx context.Context, roomID int64, index int) (int64, error)
	// UpdateSettings applies patch to a waiting room; it reports domain.ErrNotWaiting otherwise.
	UpdateSettings(ctx context.Context, roomID int64, patch domain.RoomSettingsPatch) (domain.Room, error)
	StartRoom(ctx context.Context, roomID int64, now time.Time) (bool, error)
	AdvanceQuestion(ctx context.Context, roomID int64, from, to int, now time.Time) (bool, error)
	FinishRoom(ctx context.Context, roomID int64, now time.Time) (bool, error)
	DeleteRoom(ctx context.Context, roomID int64) error
	DeleteRooms(ctx context.Context, status domain.RoomStatus, createdBefore time.Time) (int, error)
}

// ParticipantRepository persists room memberships.
type ParticipantRepository interface {
	Participant(ctx context.Context, roomID int64, username string) (domain.Participant, error)
	// AddParticipant reports domain.ErrDuplicateParticipant when the username is taken.
	AddParticipant(ctx context.Context, p *domain.Participant) error
	TouchParticipant(ctx context.Context, roomID int64, username string, now time.Time) error
	SetReady(ctx context.Context, roomID int64, username string, ready bool) error
	RemoveParticipant(ctx context.Context, roomID int64, username string) error
	// Participants lists the roster admin first, then by join time.
	Participants(ctx context.Context, roomID int64) ([]domain.Participant, error)
	History(ctx context.Context, username string, limit int) ([]domain.HistoryEntry, error)
}

// AnswerFunc computes the answer row and participant aggregates from the
// room as of the write, the locked participant and its stored answers.
type AnswerFunc func(room domain.Room, p domain.Participant, prior []domain.Answer) (domain.Answer, domain.Participant, error)

// AnswerRepository persists per-question answers.
type AnswerRepository interface {
	// RecordAnswer runs fn while the participant is locked and the room status
	// cannot change, then upserts the returned answer on (room, participant,
	// index) and stores the participant.
	RecordAnswer(ctx context.Context, participantID int64, fn AnswerFunc) (domain.Answer, domain.Participant, error)
	AnswersForQuestion(ctx context.Context, roomID int64, questionIndex int) ([]domain.Answer, error)
	RoomAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error)
}

// StatsRepository persists cross-room player statistics.
type StatsRepository interface {
	RecordGame(ctx context.Context, userID int64, won bool, points, maxStreak int) (domain.ChallengeStats, error)
	// AdjustRatings reads both ratings, applies fn and writes them back in one unit.
	AdjustRatings(ctx context.Context, winnerID, loserID int64, fn func(winner, loser int) (int, int)) (int, int, error)
	Stats(ctx context.Context, userID int64) (domain.ChallengeStats, error)
}

// BadgeRepository persists badge awards. Awarding is idempotent.
type BadgeRepository interface {
	AwardBadge(ctx context.Context, userID int64, badge domain.Badge) error
	UserBadges(ctx context.Context, userID int64) ([]domain.BadgeAward, error)
}

// ChatRepository persists room chat.
type ChatRepository interface {
	AddMessage(ctx context.Context, msg *domain.ChatMessage) error
	// Messages returns at most limit messages newer than since, oldest first.
	Messages(ctx context.Context, roomID int64, since *time.Time, limit int) ([]domain.ChatMessage, error)
}

// Store is the full persistence surface of the challenge engine.
type Store interface {
	RoomRepository
	ParticipantRepository
	AnswerRepository
	StatsRepository
	BadgeRepository
	ChatRepository
}

// QuestionCatalog provides the read-only question bank.
type QuestionCatalog interface {
	SampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error)
	Question(ctx context.Context, id int64) (domain.Question, error)
}

// CodeReserver takes a short-lived claim on a freshly generated room code.
type CodeReserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

// RoomService implements the challenge room use cases. It holds no room
// state; every call reads and writes through the store.
type RoomService struct {
	store        Store
	catalog      QuestionCatalog
	log          *zap.Logger
	now          func() time.Time
	codes        CodeGenerator
	shuffle      Shuffler
	reserver     CodeReserver
	codeAttempts int
}

// Option customizes a RoomService.
type Option func(*RoomService)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *RoomService) { s.now = now }
}

// WithCodeGenerator replaces the room code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *RoomService) { s.codes = g }
}

// WithShuffler replaces the question shuffler.
func WithShuffler(sh Shuffler) Option {
	return func(s *RoomService) { s.shuffle = sh }
}

// WithCodeReserver adds a cross-instance code reservation step.
func WithCodeReserver(r CodeReserver) Option {
	return func(s *RoomService) { s.reserver = r }
}

// WithCodeAttempts bounds how many codes are tried before giving up.
func WithCodeAttempts(n int) Option {
	return func(s *RoomService) {
		if n > 0 {
			s.codeAttempts = n
		}
	}
}

func NewRoomService(store Store, catalog QuestionCatalog, logger *zap.Logger, opts ...Option) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RoomService{
		store:        store,
		catalog:      catalog,
		log:          logger,
		now:          time.Now,
		codes:        NewRandomCodeGenerator(),
		shuffle:      NewRandomShuffler(),
		codeAttempts: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *RoomService) roomByCode(ctx context.Context, code string) (domain.Room, error) {
	code = normalizeCode(code)
	if code == "" {
		return domain.Room{}, domain.Validation("room code is required")
	}
	return s.store.RoomByCode(ctx, code)
}

// adminRoom loads the room and checks that adminName is its admin.
func (s *RoomService) adminRoom(ctx context.Context, code, adminName string) (domain.Room, error) {
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.IsAdmin(adminName) {
		return domain.Room{}, domain.ErrNotAdmin
	}
	return room, nil
}
