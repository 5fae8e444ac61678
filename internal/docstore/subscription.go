package docstore

import (
	"context"
	"sync"
)

// Subscription entrega snapshots por C hasta que se llama Cancel o se cancela el contexto.
// Cancel debe llamarse siempre; es seguro llamarlo más de una vez.
// El hook de baja corre una sola vez, cuando termina la goroutine productora, antes de cerrar Done.
type Subscription struct {
	C <-chan Snapshot

	feed   *feed
	ctx    context.Context
	out    chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	onDone func()
}

// Cancel libera el canal y espera a que termine la goroutine productora.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done se cierra cuando la suscripción deja de emitir y ya se dio de baja.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// newSubscription arma la suscripción sin arrancarla: el store la registra y después llama start.
func newSubscription(ctx context.Context, initial []Document, onDone func()) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot)
	return &Subscription{
		C:      out,
		feed:   newFeed(initial),
		ctx:    ctx,
		out:    out,
		cancel: cancel,
		done:   make(chan struct{}),
		onDone: onDone,
	}
}

func (s *Subscription) start() {
	go func() {
		defer close(s.done)
		defer func() {
			if s.onDone != nil {
				s.onDone()
			}
		}()
		defer close(s.out)
		defer s.cancel()
		s.feed.run(s.ctx, s.out)
	}()
}

// feed aplica cambios a un estado local y los emite agrupados; push nunca bloquea al productor.
type feed struct {
	mu      sync.Mutex
	pending []Change
	signal  chan struct{}
	state   map[string]Document
	initial []Change
}

func newFeed(initial []Document) *feed {
	f := &feed{
		signal: make(chan struct{}, 1),
		state:  make(map[string]Document, len(initial)),
	}
	for _, d := range initial {
		f.state[d.ID] = d
		f.initial = append(f.initial, Change{Kind: ChangeAdded, Doc: d})
	}
	return f
}

func (f *feed) push(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, changes...)
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *feed) drain() []Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

func (f *feed) apply(changes []Change) []Change {
	applied := make([]Change, 0, len(changes))
	for _, ch := range changes {
		_, exists := f.state[ch.Doc.ID]
		switch ch.Kind {
		case ChangeRemoved:
			if !exists {
				continue
			}
			delete(f.state, ch.Doc.ID)
		default:
			if exists {
				ch.Kind = ChangeModified
			} else {
				ch.Kind = ChangeAdded
			}
			f.state[ch.Doc.ID] = ch.Doc
		}
		applied = append(applied, ch)
	}
	return applied
}

func (f *feed) snapshot(changes []Change) Snapshot {
	docs := make([]Document, 0, len(f.state))
	for _, d := range f.state {
		docs = append(docs, d)
	}
	return Snapshot{Docs: docs, Changes: changes}
}

func (f *feed) run(ctx context.Context, out chan<- Snapshot) {
	// Primer emisión: snapshot completo.
	select {
	case out <- f.snapshot(f.initial):
	case <-ctx.Done():
		return
	}
	f.initial = nil

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.signal:
		}
		applied := f.apply(f.drain())
		if len(applied) == 0 {
			continue
		}
		select {
		case out <- f.snapshot(applied):
		case <-ctx.Done():
			return
		}
	}
}
