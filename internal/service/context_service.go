package service

import (
	"fmt"
	"unicode/utf8"

	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
)

// AssembleContext arma la lista de mensajes para el gateway: historial ordenado
// por timestamp y el input pendiente al final como turno "user". El tono solo
// afecta al contenido saliente, nunca al texto persistido.
func AssembleContext(history []domain.Message, pending string, tone domain.Tone) []llm.Message {
	sorted := make([]domain.Message, len(history))
	copy(sorted, history)
	domain.SortMessages(sorted)

	out := make([]llm.Message, 0, len(sorted)+1)
	for _, m := range sorted {
		role := llm.RoleUser
		if m.Sender == domain.SenderAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return append(out, llm.Message{Role: llm.RoleUser, Content: applyTone(pending, tone)})
}

func applyTone(input string, tone domain.Tone) string {
	if tone == "" || tone == domain.ToneNeutral {
		return input
	}
	return fmt.Sprintf("Respond in a %s tone: %s", tone, input)
}

// Resultados fijos: no hay búsqueda real detras.
const webSearchResults = "\n\n[SIMULATED WEB SEARCH RESULTS: Latest news on AI, stock market trends, weather in London]"

const documentPromptMaxRunes = 2000

// DocumentPrompt arma el input para analizar un documento de texto plano.
// Corta en 2000 runas y siempre agrega la marca de truncado.
func DocumentPrompt(text string) string {
	if utf8.RuneCountInString(text) > documentPromptMaxRunes {
		text = string([]rune(text)[:documentPromptMaxRunes])
	}
	return "Analyze the following document content and provide a summary or answer questions based on it:\n\n" +
		text + "... (truncated for brevity)"
}
