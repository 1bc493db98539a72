package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yds-challenge-service/internal/domain"
)

const (
	chatPageSize     = 50
	maxMessageLength = 500
)

// PostMessage appends a chat line or emoji reaction to the room.
func (s *RoomService) PostMessage(ctx context.Context, code, username, message, emoji, messageType string) (domain.ChatMessage, error) {
	username = strings.TrimSpace(username)
	message = strings.TrimSpace(message)
	if username == "" {
		return domain.ChatMessage{}, domain.Validation("username is required")
	}
	if message == "" && emoji == "" {
		return domain.ChatMessage{}, domain.Validation("message or emoji is required")
	}
	if len([]rune(message)) > maxMessageLength {
		return domain.ChatMessage{}, domain.Validation("message is too long")
	}
	if messageType == "" {
		messageType = "text"
	}

	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	msg := domain.ChatMessage{
		RoomID:      room.ID,
		Username:    username,
		Message:     message,
		Emoji:       emoji,
		MessageType: messageType,
		CreatedAt:   s.now(),
	}
	if err := s.store.AddMessage(ctx, &msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("add message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the latest messages newer than since, oldest first.
func (s *RoomService) ListMessages(ctx context.Context, code string, since *time.Time) ([]domain.ChatMessage, error) {
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages(ctx, room.ID, since, chatPageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
