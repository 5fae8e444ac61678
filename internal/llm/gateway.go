package llm

import (
	"context"
	"time"
)

// Roles aceptados por el endpoint de chat completions.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NoResponseText se usa cuando el endpoint responde 2xx pero sin contenido usable.
const NoResponseText = "No response from AI."

// Gateway abstrae el endpoint de inferencia.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// Completion es el resultado de una llamada. TotalTokens es nil si el proveedor no reporta usage.
type Completion struct {
	Content     string
	Model       string
	TotalTokens *int
	Degraded    bool
	Started     time.Time
	Finished    time.Time
	Duration    time.Duration
}

func clampTemperature(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
