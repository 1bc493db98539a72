package domain

import (
	"errors"
	"net/http"
)

// Kind classifies domain failures so transports can map them to responses.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindInvalidState   Kind = "invalid_state"
	KindEliminated     Kind = "eliminated"
	KindNoQuestions    Kind = "no_questions"
	KindAlreadyStarted Kind = "already_started"
	KindGameFinished   Kind = "game_finished"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Error is a classified domain error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind and message, so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// NewError builds a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation builds a validation error with the given message.
func Validation(message string) *Error {
	return NewError(KindValidation, message)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err without internal causes.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindNoQuestions, KindInvalidState, KindEliminated, KindAlreadyStarted, KindGameFinished:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var (
	// ErrRoomNotFound is returned when no room matches a code or id.
	ErrRoomNotFound = NewError(KindNotFound, "room not found")
	// ErrParticipantNotFound is returned when the username has no membership in the room.
	ErrParticipantNotFound = NewError(KindNotFound, "room or participant not found")
	// ErrQuestionNotFound is returned when a question index or id has no question.
	ErrQuestionNotFound = NewError(KindNotFound, "question not found")
	// ErrNotAdmin is returned when a non-admin attempts an admin action.
	ErrNotAdmin = NewError(KindForbidden, "only the room admin can do this")
	// ErrAlreadyStarted is returned when a new username tries to join a running game.
	ErrAlreadyStarted = NewError(KindAlreadyStarted, "game already started, new players cannot join")
	// ErrGameFinished is returned when joining a finished room.
	ErrGameFinished = NewError(KindGameFinished, "this room has finished")
	// ErrNotWaiting is returned when an action needs a room that has not started.
	ErrNotWaiting = NewError(KindInvalidState, "game already started")
	// ErrNotActive is returned when an action needs a running game.
	ErrNotActive = NewError(KindInvalidState, "game is not active")
	// ErrFutureQuestion is returned when answering a question that has not been shown yet.
	ErrFutureQuestion = NewError(KindInvalidState, "question is not open yet")
	// ErrQuestionAdvanced is returned when a concurrent advance already moved the room on.
	ErrQuestionAdvanced = NewError(KindInvalidState, "question was already advanced")
	// ErrEliminated is returned when an eliminated participant submits an answer.
	ErrEliminated = NewError(KindEliminated, "you have been eliminated")
	// ErrNoQuestions is returned when a room would be created without questions.
	ErrNoQuestions = NewError(KindNoQuestions, "no questions found for the selected categories")
	// ErrDuplicateParticipant is returned by stores when the username already exists in the room.
	ErrDuplicateParticipant = NewError(KindConflict, "username already in room")
	// ErrCodeTaken is returned by stores when the room code is already in use.
	ErrCodeTaken = NewError(KindConflict, "room code already in use")
)
