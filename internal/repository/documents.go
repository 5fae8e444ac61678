package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
)

// Nombres de colecciones bajo artifacts/{app}/users/{uid}.
const (
	collectionChats    = "chats"
	collectionMessages = "messages"
	collectionTasks    = "tasks"
	collectionPrompts  = "userPrompts"
)

// Formas persistidas; los nombres de campo siguen el esquema del store.
type sessionDoc struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Model     string    `json:"model"`
}

type messageDoc struct {
	Sender     string                        `json:"sender"`
	Text       string                        `json:"text"`
	Timestamp  time.Time                     `json:"timestamp"`
	GraphData  *domain.ChartPayload          `json:"graphData,omitempty"`
	CodeOutput *domain.CodeSimulationPayload `json:"codeOutput,omitempty"`
}

type taskDoc struct {
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

type promptDoc struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func decodeDocs[D any, T any](docs []docstore.Document, convert func(id string, d D) T) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var d D
		if err := json.Unmarshal(doc.Data, &d); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
		out = append(out, convert(doc.ID, d))
	}
	return out, nil
}

func translate(err error, kind, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return err
}
