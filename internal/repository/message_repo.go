package repository

import (
	"context"
	"errors"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, owner domain.Owner, message domain.Message) (domain.Message, error)
	ListBySessionID(ctx context.Context, owner domain.Owner, sessionID string) ([]domain.Message, error)
	DeleteBySessionID(ctx context.Context, owner domain.Owner, sessionID string) error
	Subscribe(ctx context.Context, owner domain.Owner, sessionID string) (*docstore.Subscription, error)
}

// DocMessageRepository persiste mensajes en chats/{sessionID}/messages.
type DocMessageRepository struct {
	store docstore.Store
}

func NewDocMessageRepository(store docstore.Store) *DocMessageRepository {
	return &DocMessageRepository{store: store}
}

func (r *DocMessageRepository) Create(ctx context.Context, owner domain.Owner, message domain.Message) (domain.Message, error) {
	col, err := docstore.Collection(owner, collectionChats, message.SessionID, collectionMessages)
	if err != nil {
		return domain.Message{}, err
	}
	id, err := r.store.Create(ctx, col, messageDoc{
		Sender:     string(message.Sender),
		Text:       message.Text,
		Timestamp:  message.Timestamp,
		GraphData:  message.Chart,
		CodeOutput: message.Code,
	})
	if err != nil {
		return domain.Message{}, err
	}
	message.ID = id
	return message, nil
}

func (r *DocMessageRepository) ListBySessionID(ctx context.Context, owner domain.Owner, sessionID string) ([]domain.Message, error) {
	col, err := docstore.Collection(owner, collectionChats, sessionID, collectionMessages)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, col)
	if err != nil {
		return nil, err
	}
	return MessagesFromDocs(sessionID, docs)
}

func (r *DocMessageRepository) DeleteBySessionID(ctx context.Context, owner domain.Owner, sessionID string) error {
	col, err := docstore.Collection(owner, collectionChats, sessionID, collectionMessages)
	if err != nil {
		return err
	}
	docs, err := r.store.List(ctx, col)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := r.store.Delete(ctx, col, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (r *DocMessageRepository) Subscribe(ctx context.Context, owner domain.Owner, sessionID string) (*docstore.Subscription, error) {
	col, err := docstore.Collection(owner, collectionChats, sessionID, collectionMessages)
	if err != nil {
		return nil, err
	}
	return r.store.Subscribe(ctx, col)
}

// MessagesFromDocs decodifica mensajes de una sesión (sin ordenar).
func MessagesFromDocs(sessionID string, docs []docstore.Document) ([]domain.Message, error) {
	return decodeDocs(docs, func(id string, d messageDoc) domain.Message {
		return domain.Message{
			ID:        id,
			SessionID: sessionID,
			Sender:    domain.Sender(d.Sender),
			Text:      d.Text,
			Timestamp: d.Timestamp,
			Chart:     d.GraphData,
			Code:      d.CodeOutput,
		}
	})
}
