package docstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory implementa Store en proceso. Util para tests y para la CLI sin base de datos.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	subscribers map[string]map[*feed]struct{}
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Document),
		subscribers: make(map[string]map[*feed]struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Create(ctx context.Context, collection string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validCollection(collection) {
		return "", ErrInvalidPath
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	doc := Document{ID: uuid.NewString(), Data: raw, UpdatedAt: m.now()}

	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	col[doc.ID] = doc
	m.notifyLocked(collection, Change{Kind: ChangeAdded, Doc: doc})
	return doc.ID, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(collection), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergeFields(doc.Data, fields)
	if err != nil {
		return err
	}
	doc.Data = merged
	doc.UpdatedAt = m.now()
	m.collections[collection][id] = doc
	m.notifyLocked(collection, Change{Kind: ChangeModified, Doc: doc})
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	m.notifyLocked(collection, Change{Kind: ChangeRemoved, Doc: doc})
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}

	m.mu.Lock()
	initial := m.listLocked(collection)
	var sub *Subscription
	sub = newSubscription(ctx, initial, func() {
		m.mu.Lock()
		delete(m.subscribers[collection], sub.feed)
		m.mu.Unlock()
	})
	if m.subscribers[collection] == nil {
		m.subscribers[collection] = make(map[*feed]struct{})
	}
	m.subscribers[collection][sub.feed] = struct{}{}
	m.mu.Unlock()
	sub.start()

	return sub, nil
}

// SubscriberCount expone cuantas suscripciones siguen abiertas en una colección.
func (m *Memory) SubscriberCount(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[collection])
}

func (m *Memory) listLocked(collection string) []Document {
	col := m.collections[collection]
	docs := make([]Document, 0, len(col))
	for _, d := range col {
		docs = append(docs, d)
	}
	return docs
}

func (m *Memory) notifyLocked(collection string, change Change) {
	for f := range m.subscribers[collection] {
		f.push(change)
	}
}

var _ Store = (*Memory)(nil)
