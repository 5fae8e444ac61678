package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const notifyChannel = "docstore_changes"

// Schema crea la tabla de documentos y el trigger que publica cada cambio via pg_notify.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE OR REPLACE FUNCTION docstore_notify() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('docstore_changes', json_build_object('collection', rec.collection, 'id', rec.id, 'op', TG_OP)::text);
	RETURN rec;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
	AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION docstore_notify();
`

// Postgres implementa Store sobre pgxpool; las suscripciones se alimentan con LISTEN/NOTIFY.
// Listen debe estar corriendo para que los suscriptores reciban cambios.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]map[*feed]struct{}
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		pool:        pool,
		logger:      logger,
		subscribers: make(map[string]map[*feed]struct{}),
	}
}

// EnsureSchema aplica Schema; es idempotente.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply docstore schema: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, collection string, data any) (string, error) {
	if !validCollection(collection) {
		return "", ErrInvalidPath
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	const query = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	id := uuid.NewString()
	if _, err := p.pool.Exec(ctx, query, collection, id, raw, time.Now().UTC()); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	const query = `
		SELECT id, data, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	var (
		doc Document
		raw []byte
	)
	err := p.pool.QueryRow(ctx, query, collection, id).Scan(&doc.ID, &raw, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.Data = raw
	return doc, nil
}

func (p *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	const query = `
		SELECT id, data, updated_at
		FROM documents
		WHERE collection = $1
	`
	rows, err := p.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc Document
			raw []byte
		)
		if err := rows.Scan(&doc.ID, &raw, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Data = raw
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	const query = `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2
	`
	tag, err := p.pool.Exec(ctx, query, collection, id, patch, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	tag, err := p.pool.Exec(ctx, query, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}

	// Registramos antes de listar: un cambio duplicado se absorbe en el feed, uno perdido no.
	pending := newFeed(nil)
	p.register(collection, pending)

	initial, err := p.List(ctx, collection)
	if err != nil {
		p.unregister(collection, pending)
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	var sub *Subscription
	sub = newSubscription(ctx, initial, func() {
		p.unregister(collection, sub.feed)
	})
	p.register(collection, sub.feed)
	p.unregister(collection, pending)
	// Reenviamos lo que llegó mientras se armaba el snapshot inicial.
	sub.feed.push(pending.drain()...)
	sub.start()
	return sub, nil
}

// Listen bloquea escuchando notificaciones hasta que se cancela ctx.
func (p *Postgres) Listen(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}
	p.logger.Info("docstore listener started", zap.String("channel", notifyChannel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		p.dispatch(ctx, n.Payload)
	}
}

type notification struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         string `json:"op"`
}

func parseNotification(payload string) (notification, Change, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return notification{}, Change{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.Collection == "" || n.ID == "" {
		return notification{}, Change{}, fmt.Errorf("incomplete notification: %q", payload)
	}
	change := Change{Doc: Document{ID: n.ID}}
	switch strings.ToUpper(n.Op) {
	case "INSERT":
		change.Kind = ChangeAdded
	case "UPDATE":
		change.Kind = ChangeModified
	case "DELETE":
		change.Kind = ChangeRemoved
	default:
		return notification{}, Change{}, fmt.Errorf("unknown op %q", n.Op)
	}
	return n, change, nil
}

func (p *Postgres) dispatch(ctx context.Context, payload string) {
	n, change, err := parseNotification(payload)
	if err != nil {
		p.logger.Warn("docstore notification ignored", zap.Error(err))
		return
	}

	feeds := p.feedsFor(n.Collection)
	if len(feeds) == 0 {
		return
	}

	if change.Kind != ChangeRemoved {
		doc, err := p.Get(ctx, n.Collection, n.ID)
		if errors.Is(err, ErrNotFound) {
			return
		}
		if err != nil {
			p.logger.Warn("docstore fetch changed document failed",
				zap.Error(err),
				zap.String("collection", n.Collection),
				zap.String("id", n.ID),
			)
			return
		}
		change.Doc = doc
	}

	for _, f := range feeds {
		f.push(change)
	}
}

func (p *Postgres) register(collection string, f *feed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribers[collection] == nil {
		p.subscribers[collection] = make(map[*feed]struct{})
	}
	p.subscribers[collection][f] = struct{}{}
}

func (p *Postgres) unregister(collection string, f *feed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers[collection], f)
	if len(p.subscribers[collection]) == 0 {
		delete(p.subscribers, collection)
	}
}

func (p *Postgres) feedsFor(collection string) []*feed {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*feed, 0, len(p.subscribers[collection]))
	for f := range p.subscribers[collection] {
		out = append(out, f)
	}
	return out
}

var _ Store = (*Postgres)(nil)
