package repository

import (
	"context"
	"encoding/json"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, owner domain.Owner, session domain.Session) (domain.Session, error)
	GetByID(ctx context.Context, owner domain.Owner, id string) (domain.Session, error)
	List(ctx context.Context, owner domain.Owner) ([]domain.Session, error)
	UpdateTitle(ctx context.Context, owner domain.Owner, id, title string) error
	Delete(ctx context.Context, owner domain.Owner, id string) error
	Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error)
}

// DocSessionRepository persiste sesiones en artifacts/{app}/users/{uid}/chats.
type DocSessionRepository struct {
	store docstore.Store
}

func NewDocSessionRepository(store docstore.Store) *DocSessionRepository {
	return &DocSessionRepository{store: store}
}

func (r *DocSessionRepository) Create(ctx context.Context, owner domain.Owner, session domain.Session) (domain.Session, error) {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return domain.Session{}, err
	}
	id, err := r.store.Create(ctx, col, sessionDoc{
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		Model:     session.Model,
	})
	if err != nil {
		return domain.Session{}, err
	}
	session.ID = id
	return session, nil
}

func (r *DocSessionRepository) GetByID(ctx context.Context, owner domain.Owner, id string) (domain.Session, error) {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return domain.Session{}, err
	}
	doc, err := r.store.Get(ctx, col, id)
	if err != nil {
		return domain.Session{}, translate(err, "session", id)
	}
	var d sessionDoc
	if err := json.Unmarshal(doc.Data, &d); err != nil {
		return domain.Session{}, err
	}
	return toSession(doc.ID, d), nil
}

func (r *DocSessionRepository) List(ctx context.Context, owner domain.Owner) ([]domain.Session, error) {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, col)
	if err != nil {
		return nil, err
	}
	return SessionsFromDocs(docs)
}

func (r *DocSessionRepository) UpdateTitle(ctx context.Context, owner domain.Owner, id, title string) error {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return err
	}
	return translate(r.store.Update(ctx, col, id, map[string]any{"title": title}), "session", id)
}

func (r *DocSessionRepository) Delete(ctx context.Context, owner domain.Owner, id string) error {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return err
	}
	return translate(r.store.Delete(ctx, col, id), "session", id)
}

func (r *DocSessionRepository) Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error) {
	col, err := docstore.Collection(owner, collectionChats)
	if err != nil {
		return nil, err
	}
	return r.store.Subscribe(ctx, col)
}

// SessionsFromDocs decodifica documentos de la colección chats (sin ordenar).
func SessionsFromDocs(docs []docstore.Document) ([]domain.Session, error) {
	return decodeDocs(docs, toSession)
}

func toSession(id string, d sessionDoc) domain.Session {
	return domain.Session{ID: id, Title: d.Title, CreatedAt: d.CreatedAt, Model: d.Model}
}
