package service

import (
	"context"
	"sync"

	"centone-chat/internal/domain"
)

// SendGuard permite un solo envío en curso por (owner, sesión).
// Acquire devuelve domain.ErrSendInProgress si ya hay uno; release debe llamarse siempre.
type SendGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func sendGuardKey(owner domain.Owner, sessionID string) string {
	if sessionID == "" {
		sessionID = "_new"
	}
	return owner.Key() + "/" + sessionID
}

// MemorySendGuard sirve para un solo proceso.
type MemorySendGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemorySendGuard() *MemorySendGuard {
	return &MemorySendGuard{inFlight: make(map[string]struct{})}
}

func (g *MemorySendGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, domain.ErrSendInProgress
	}
	g.inFlight[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}
