package domain

import (
	"sort"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

type Message struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id,omitempty"`
	Sender    Sender                 `json:"sender"`
	Text      string                 `json:"text"`
	Timestamp time.Time              `json:"timestamp"`
	Chart     *ChartPayload          `json:"chart,omitempty"`
	Code      *CodeSimulationPayload `json:"code,omitempty"`
}

// SortMessages ordena por timestamp ascendente; el ID desempata.
// Nunca confiamos en el orden de entrega del store.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// SortSessions ordena por fecha de creación descendente.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
