package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
	"centone-chat/internal/repository"
)

var ErrSessionServiceNotConfigured = errors.New("session service not configured")

type (
	SessionFeed = Feed[domain.Session]
	MessageFeed = Feed[domain.Message]
)

// SessionService gestiona sesiones y sus mensajes por owner.
type SessionService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, messages repository.MessageRepository) *SessionService {
	return &SessionService{sessions: sessions, messages: messages, now: time.Now}
}

func (s *SessionService) ready() error {
	if s == nil || s.sessions == nil || s.messages == nil {
		return ErrSessionServiceNotConfigured
	}
	return nil
}

// CreateSession crea la sesión y devuelve recién cuando el store asignó el id.
func (s *SessionService) CreateSession(ctx context.Context, owner domain.Owner, firstMessage, model string) (domain.Session, error) {
	if err := s.ready(); err != nil {
		return domain.Session{}, err
	}
	if err := owner.Validate(); err != nil {
		return domain.Session{}, err
	}
	if strings.TrimSpace(firstMessage) == "" {
		return domain.Session{}, fmt.Errorf("%w: first message is empty", domain.ErrValidation)
	}
	session, err := s.sessions.Create(ctx, owner, domain.Session{
		Title:     domain.SessionTitle(firstMessage),
		CreatedAt: s.now().UTC(),
		Model:     model,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// AppendMessage persiste el mensaje con el timestamp que trae; nunca lo reasigna.
func (s *SessionService) AppendMessage(ctx context.Context, owner domain.Owner, sessionID string, msg domain.Message) (domain.Message, error) {
	if err := s.ready(); err != nil {
		return domain.Message{}, err
	}
	if err := owner.Validate(); err != nil {
		return domain.Message{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	switch {
	case sessionID == "":
		return domain.Message{}, fmt.Errorf("%w: session id is empty", domain.ErrValidation)
	case !msg.Sender.Valid():
		return domain.Message{}, fmt.Errorf("%w: unknown sender %q", domain.ErrValidation, msg.Sender)
	case msg.Timestamp.IsZero():
		return domain.Message{}, fmt.Errorf("%w: message timestamp is zero", domain.ErrValidation)
	}
	if _, err := s.sessions.GetByID(ctx, owner, sessionID); err != nil {
		return domain.Message{}, err
	}
	msg.SessionID = sessionID
	saved, err := s.messages.Create(ctx, owner, msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return saved, nil
}

// RenameSession sobrescribe el título; repetir el mismo título no cambia nada.
func (s *SessionService) RenameSession(ctx context.Context, owner domain.Owner, sessionID, title string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := owner.Validate(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is empty", domain.ErrValidation)
	}
	current, err := s.sessions.GetByID(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	if current.Title == title {
		return nil
	}
	return s.sessions.UpdateTitle(ctx, owner, sessionID, title)
}

// DeleteSession borra los mensajes y luego la sesión.
func (s *SessionService) DeleteSession(ctx context.Context, owner domain.Owner, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := owner.Validate(); err != nil {
		return err
	}
	if _, err := s.sessions.GetByID(ctx, owner, sessionID); err != nil {
		return err
	}
	if err := s.messages.DeleteBySessionID(ctx, owner, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return s.sessions.Delete(ctx, owner, sessionID)
}

func (s *SessionService) GetSession(ctx context.Context, owner domain.Owner, sessionID string) (domain.Session, error) {
	if err := s.ready(); err != nil {
		return domain.Session{}, err
	}
	if err := owner.Validate(); err != nil {
		return domain.Session{}, err
	}
	return s.sessions.GetByID(ctx, owner, sessionID)
}

// ListSessions devuelve las sesiones, más recientes primero.
func (s *SessionService) ListSessions(ctx context.Context, owner domain.Owner) ([]domain.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	list, err := s.sessions.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	domain.SortSessions(list)
	return list, nil
}

// ListMessages devuelve los mensajes de la sesión en orden de timestamp.
func (s *SessionService) ListMessages(ctx context.Context, owner domain.Owner, sessionID string) ([]domain.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", domain.ErrValidation)
	}
	msgs, err := s.messages.ListBySessionID(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

func (s *SessionService) SubscribeSessions(ctx context.Context, owner domain.Owner) (*SessionFeed, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sub, err := s.sessions.Subscribe(ctx, owner)
	if err != nil {
		return nil, err
	}
	return newFeed(sub, repository.SessionsFromDocs, domain.SortSessions), nil
}

func (s *SessionService) SubscribeMessages(ctx context.Context, owner domain.Owner, sessionID string) (*MessageFeed, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", domain.ErrValidation)
	}
	sub, err := s.messages.Subscribe(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	decode := func(docs []docstore.Document) ([]domain.Message, error) {
		return repository.MessagesFromDocs(sessionID, docs)
	}
	return newFeed(sub, decode, domain.SortMessages), nil
}

// WithSessionFeed abre el feed, ejecuta fn y lo cierra en toda salida.
func (s *SessionService) WithSessionFeed(ctx context.Context, owner domain.Owner, fn func(*SessionFeed) error) error {
	f, err := s.SubscribeSessions(ctx, owner)
	return withFeed(f, err, fn)
}

func (s *SessionService) WithMessageFeed(ctx context.Context, owner domain.Owner, sessionID string, fn func(*MessageFeed) error) error {
	f, err := s.SubscribeMessages(ctx, owner, sessionID)
	return withFeed(f, err, fn)
}
