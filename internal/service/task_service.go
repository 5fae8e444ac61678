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

var ErrTaskServiceNotConfigured = errors.New("task service not configured")

type TaskFeed = Feed[domain.Task]

// TaskService es el tablero de tareas del owner.
type TaskService struct {
	repo repository.TaskRepository
	now  func() time.Time
}

func NewTaskService(repo repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo, now: time.Now}
}

func (s *TaskService) ready(owner domain.Owner) error {
	if s == nil || s.repo == nil {
		return ErrTaskServiceNotConfigured
	}
	return owner.Validate()
}

func (s *TaskService) Add(ctx context.Context, owner domain.Owner, description string) (domain.Task, error) {
	if err := s.ready(owner); err != nil {
		return domain.Task{}, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.Task{}, fmt.Errorf("%w: task description is empty", domain.ErrValidation)
	}
	return s.repo.Create(ctx, owner, domain.Task{Description: description, CreatedAt: s.now().UTC()})
}

// Toggle invierte Completed y devuelve la tarea actualizada.
func (s *TaskService) Toggle(ctx context.Context, owner domain.Owner, id string) (domain.Task, error) {
	if err := s.ready(owner); err != nil {
		return domain.Task{}, err
	}
	task, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.Completed = !task.Completed
	if err := s.repo.SetCompleted(ctx, owner, id, task.Completed); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *TaskService) Remove(ctx context.Context, owner domain.Owner, id string) error {
	if err := s.ready(owner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, owner, id)
}

func (s *TaskService) List(ctx context.Context, owner domain.Owner) ([]domain.Task, error) {
	if err := s.ready(owner); err != nil {
		return nil, err
	}
	tasks, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	domain.SortTasks(tasks)
	return tasks, nil
}

func (s *TaskService) Subscribe(ctx context.Context, owner domain.Owner) (*TaskFeed, error) {
	if err := s.ready(owner); err != nil {
		return nil, err
	}
	sub, err := s.repo.Subscribe(ctx, owner)
	if err != nil {
		return nil, err
	}
	return newFeed(sub, repository.TasksFromDocs, domain.SortTasks), nil
}

// AcceptCandidates agrega como tareas pendientes los candidatos seleccionados.
// El Completed que propuso el modelo no se copia. No deduplica contra tareas existentes.
func (s *TaskService) AcceptCandidates(ctx context.Context, owner domain.Owner, candidates []domain.TaskCandidate) ([]domain.Task, error) {
	if err := s.ready(owner); err != nil {
		return nil, err
	}
	created := make([]domain.Task, 0, len(candidates))
	for _, c := range candidates {
		desc := strings.TrimSpace(c.Description)
		if !c.Selected || desc == "" {
			continue
		}
		task, err := s.repo.Create(ctx, owner, domain.Task{
			Description: desc,
			CreatedAt:   s.now().UTC(),
		})
		if err != nil {
			return created, fmt.Errorf("accept task %q: %w", desc, err)
		}
		created = append(created, task)
	}
	return created, nil
}
