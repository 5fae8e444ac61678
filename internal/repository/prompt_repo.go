package repository

import (
	"context"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
)

type PromptRepository interface {
	Create(ctx context.Context, owner domain.Owner, prompt domain.CustomPrompt) (domain.CustomPrompt, error)
	List(ctx context.Context, owner domain.Owner) ([]domain.CustomPrompt, error)
	Delete(ctx context.Context, owner domain.Owner, id string) error
	Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error)
}

type DocPromptRepository struct {
	store docstore.Store
}

func NewDocPromptRepository(store docstore.Store) *DocPromptRepository {
	return &DocPromptRepository{store: store}
}

func (r *DocPromptRepository) Create(ctx context.Context, owner domain.Owner, prompt domain.CustomPrompt) (domain.CustomPrompt, error) {
	col, err := docstore.Collection(owner, collectionPrompts)
	if err != nil {
		return domain.CustomPrompt{}, err
	}
	id, err := r.store.Create(ctx, col, promptDoc{Text: prompt.Text, CreatedAt: prompt.CreatedAt})
	if err != nil {
		return domain.CustomPrompt{}, err
	}
	prompt.ID = id
	return prompt, nil
}

func (r *DocPromptRepository) List(ctx context.Context, owner domain.Owner) ([]domain.CustomPrompt, error) {
	col, err := docstore.Collection(owner, collectionPrompts)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, col)
	if err != nil {
		return nil, err
	}
	return PromptsFromDocs(docs)
}

func (r *DocPromptRepository) Delete(ctx context.Context, owner domain.Owner, id string) error {
	col, err := docstore.Collection(owner, collectionPrompts)
	if err != nil {
		return err
	}
	return translate(r.store.Delete(ctx, col, id), "prompt", id)
}

func (r *DocPromptRepository) Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error) {
	col, err := docstore.Collection(owner, collectionPrompts)
	if err != nil {
		return nil, err
	}
	return r.store.Subscribe(ctx, col)
}

func PromptsFromDocs(docs []docstore.Document) ([]domain.CustomPrompt, error) {
	return decodeDocs(docs, func(id string, d promptDoc) domain.CustomPrompt {
		return domain.CustomPrompt{ID: id, Text: d.Text, CreatedAt: d.CreatedAt}
	})
}
