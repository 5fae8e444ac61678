// Package docstore modela el store remoto de documentos: colecciones jerarquicas,
// escrituras por id y suscripciones que emiten un snapshot completo seguido de cambios.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"centone-chat/internal/domain"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid collection path")
	ErrClosed      = errors.New("store closed")
)

// Document es un documento crudo; Data es JSON.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

type Change struct {
	Kind ChangeKind `json:"kind"`
	Doc  Document   `json:"doc"`
}

// Snapshot contiene el estado completo de la colección y los cambios desde la emisión anterior.
// El orden de Docs no esta garantizado: cada consumidor debe reordenar.
type Snapshot struct {
	Docs    []Document
	Changes []Change
}

// Store define el contrato del store remoto.
type Store interface {
	Create(ctx context.Context, collection string, data any) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	// Update hace merge de campos de primer nivel sobre el documento existente.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Collection arma rutas del estilo artifacts/{app}/users/{uid}/{parts...}.
func Collection(owner domain.Owner, parts ...string) (string, error) {
	if err := owner.Validate(); err != nil {
		return "", err
	}
	segments := []string{"artifacts", owner.AppID, "users", owner.UserID}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(p, "/") {
			return "", ErrInvalidPath
		}
		segments = append(segments, p)
	}
	return strings.Join(segments, "/"), nil
}

func validCollection(collection string) bool {
	collection = strings.TrimSpace(collection)
	return collection != "" && !strings.HasPrefix(collection, "/") && !strings.HasSuffix(collection, "/")
}

func mergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	current := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &current); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		current[k] = raw
	}
	return json.Marshal(current)
}
