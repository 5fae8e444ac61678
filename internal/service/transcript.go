package service

import (
	"strings"

	"centone-chat/internal/domain"
)

// FormatTranscript arma el texto para compartir: "USER: ..." separados por linea en blanco.
func FormatTranscript(messages []domain.Message) string {
	sorted := make([]domain.Message, len(messages))
	copy(sorted, messages)
	domain.SortMessages(sorted)

	parts := make([]string, 0, len(sorted))
	for _, m := range sorted {
		parts = append(parts, strings.ToUpper(string(m.Sender))+": "+m.Text)
	}
	return strings.Join(parts, "\n\n")
}
