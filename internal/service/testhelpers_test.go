package service

import (
	"testing"

	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
	"centone-chat/internal/repository"
)

var testOwner = domain.Owner{AppID: "app", UserID: "u1"}

type testServices struct {
	store    *docstore.Memory
	sessions *SessionService
	tasks    *TaskService
	prompts  *PromptService
	perf     *PerformanceTracker
	chat     *ChatService
}

func newTestServices(t *testing.T, gw llm.Gateway) testServices {
	t.Helper()
	store := docstore.NewMemory()
	sessions := NewSessionService(repository.NewDocSessionRepository(store), repository.NewDocMessageRepository(store))
	tasks := NewTaskService(repository.NewDocTaskRepository(store))
	perf, err := NewPerformanceTracker(16)
	if err != nil {
		t.Fatalf("performance tracker: %v", err)
	}
	return testServices{
		store:    store,
		sessions: sessions,
		tasks:    tasks,
		prompts:  NewPromptService(repository.NewDocPromptRepository(store)),
		perf:     perf,
		chat:     NewChatService(sessions, tasks, gw, NewMemorySendGuard(), perf, nil, ChatDefaults{Model: "deepseek-chat", Temperature: 0.7}),
	}
}
