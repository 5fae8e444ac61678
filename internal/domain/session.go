package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const sessionTitleMaxRunes = 50

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model"`
}

// SessionTitle deriva el título a partir del primer mensaje (50 runas + "...").
func SessionTitle(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if utf8.RuneCountInString(text) <= sessionTitleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:sessionTitleMaxRunes]) + "..."
}
