package repository

import (
	"context"
	"encoding/json"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, owner domain.Owner, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, owner domain.Owner, id string) (domain.Task, error)
	List(ctx context.Context, owner domain.Owner) ([]domain.Task, error)
	SetCompleted(ctx context.Context, owner domain.Owner, id string, completed bool) error
	Delete(ctx context.Context, owner domain.Owner, id string) error
	Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error)
}

type DocTaskRepository struct {
	store docstore.Store
}

func NewDocTaskRepository(store docstore.Store) *DocTaskRepository {
	return &DocTaskRepository{store: store}
}

func (r *DocTaskRepository) Create(ctx context.Context, owner domain.Owner, task domain.Task) (domain.Task, error) {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := r.store.Create(ctx, col, taskDoc{
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
	})
	if err != nil {
		return domain.Task{}, err
	}
	task.ID = id
	return task, nil
}

func (r *DocTaskRepository) GetByID(ctx context.Context, owner domain.Owner, id string) (domain.Task, error) {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return domain.Task{}, err
	}
	doc, err := r.store.Get(ctx, col, id)
	if err != nil {
		return domain.Task{}, translate(err, "task", id)
	}
	var d taskDoc
	if err := json.Unmarshal(doc.Data, &d); err != nil {
		return domain.Task{}, err
	}
	return toTask(doc.ID, d), nil
}

func (r *DocTaskRepository) List(ctx context.Context, owner domain.Owner) ([]domain.Task, error) {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, col)
	if err != nil {
		return nil, err
	}
	return TasksFromDocs(docs)
}

func (r *DocTaskRepository) SetCompleted(ctx context.Context, owner domain.Owner, id string, completed bool) error {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return err
	}
	return translate(r.store.Update(ctx, col, id, map[string]any{"completed": completed}), "task", id)
}

func (r *DocTaskRepository) Delete(ctx context.Context, owner domain.Owner, id string) error {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return err
	}
	return translate(r.store.Delete(ctx, col, id), "task", id)
}

func (r *DocTaskRepository) Subscribe(ctx context.Context, owner domain.Owner) (*docstore.Subscription, error) {
	col, err := docstore.Collection(owner, collectionTasks)
	if err != nil {
		return nil, err
	}
	return r.store.Subscribe(ctx, col)
}

func TasksFromDocs(docs []docstore.Document) ([]domain.Task, error) {
	return decodeDocs(docs, toTask)
}

func toTask(id string, d taskDoc) domain.Task {
	return domain.Task{ID: id, Description: d.Description, Completed: d.Completed, CreatedAt: d.CreatedAt}
}
