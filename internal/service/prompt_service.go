package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centone-chat/internal/domain"
	"centone-chat/internal/repository"
)

var ErrPromptServiceNotConfigured = errors.New("prompt service not configured")

type PromptFeed = Feed[domain.CustomPrompt]

// PromptGroup agrupa prompts sugeridos por categoria.
type PromptGroup struct {
	Category string   `json:"category"`
	Prompts  []string `json:"prompts"`
}

// CustomCategory es la categoria bajo la que se listan los prompts del usuario.
const CustomCategory = "Custom"

var builtinPrompts = []PromptGroup{
	{Category: "General", Prompts: []string{
		"Explain the concept of AI ethics.",
		"What is the capital of Australia?",
	}},
	{Category: "Creative", Prompts: []string{
		"Write a haiku about a rainy day.",
		"Draft a short story opening about a detective in a futuristic city.",
	}},
	{Category: "Technical", Prompts: []string{
		"How does blockchain technology work?",
		"Provide a simple Python function for calculating Fibonacci numbers.",
		"What are the main differences between SQL and NoSQL databases?",
	}},
}

type PromptService struct {
	repo repository.PromptRepository
	now  func() time.Time
}

func NewPromptService(repo repository.PromptRepository) *PromptService {
	return &PromptService{repo: repo, now: time.Now}
}

func (s *PromptService) ready(owner domain.Owner) error {
	if s == nil || s.repo == nil {
		return ErrPromptServiceNotConfigured
	}
	return owner.Validate()
}

func (s *PromptService) Add(ctx context.Context, owner domain.Owner, text string) (domain.CustomPrompt, error) {
	if err := s.ready(owner); err != nil {
		return domain.CustomPrompt{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.CustomPrompt{}, fmt.Errorf("%w: prompt text is empty", domain.ErrValidation)
	}
	return s.repo.Create(ctx, owner, domain.CustomPrompt{Text: text, CreatedAt: s.now().UTC()})
}

func (s *PromptService) Remove(ctx context.Context, owner domain.Owner, id string) error {
	if err := s.ready(owner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, owner, id)
}

func (s *PromptService) List(ctx context.Context, owner domain.Owner) ([]domain.CustomPrompt, error) {
	if err := s.ready(owner); err != nil {
		return nil, err
	}
	prompts, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	domain.SortPrompts(prompts)
	return prompts, nil
}

func (s *PromptService) Subscribe(ctx context.Context, owner domain.Owner) (*PromptFeed, error) {
	if err := s.ready(owner); err != nil {
		return nil, err
	}
	sub, err := s.repo.Subscribe(ctx, owner)
	if err != nil {
		return nil, err
	}
	return newFeed(sub, repository.PromptsFromDocs, domain.SortPrompts), nil
}

// Catalog combina el catalogo fijo con los prompts del usuario (si tiene).
func (s *PromptService) Catalog(ctx context.Context, owner domain.Owner) ([]PromptGroup, error) {
	custom, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]PromptGroup, 0, len(builtinPrompts)+1)
	for _, g := range builtinPrompts {
		out = append(out, PromptGroup{Category: g.Category, Prompts: append([]string(nil), g.Prompts...)})
	}
	if len(custom) > 0 {
		group := PromptGroup{Category: CustomCategory, Prompts: make([]string, 0, len(custom))}
		for _, p := range custom {
			group.Prompts = append(group.Prompts, p.Text)
		}
		out = append(out, group)
	}
	return out, nil
}
