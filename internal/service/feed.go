package service

import (
	"context"
	"errors"
	"fmt"

	"centone-chat/internal/docstore"
)

// ErrFeedClosed se devuelve por Next cuando la suscripción ya no emite.
var ErrFeedClosed = errors.New("feed closed")

// Feed es una vista tipada y ordenada de una suscripción del store.
// La primera llamada a Next devuelve el snapshot completo; las siguientes, el estado tras cada cambio.
type Feed[T any] struct {
	sub    *docstore.Subscription
	decode func([]docstore.Document) ([]T, error)
	sort   func([]T)
}

func newFeed[T any](sub *docstore.Subscription, decode func([]docstore.Document) ([]T, error), sort func([]T)) *Feed[T] {
	return &Feed[T]{sub: sub, decode: decode, sort: sort}
}

// Next bloquea hasta la proxima emisión, el cierre del feed o la cancelación de ctx.
func (f *Feed[T]) Next(ctx context.Context) ([]T, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case snap, ok := <-f.sub.C:
		if !ok {
			return nil, ErrFeedClosed
		}
		items, err := f.decode(snap.Docs)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		if f.sort != nil {
			f.sort(items)
		}
		return items, nil
	}
}

// Close libera la suscripción. Idempotente.
func (f *Feed[T]) Close() {
	if f == nil {
		return
	}
	f.sub.Cancel()
}

func withFeed[T any](f *Feed[T], err error, fn func(*Feed[T]) error) error {
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}
