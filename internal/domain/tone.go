package domain

import "strings"

type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneFormal   Tone = "formal"
	ToneCasual   Tone = "casual"
	ToneCreative Tone = "creative"
	ToneHumorous Tone = "humorous"
)

// ParseTone normaliza el tono; vacío equivale a neutral.
func ParseTone(raw string) (Tone, bool) {
	t := Tone(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case "":
		return ToneNeutral, true
	case ToneNeutral, ToneFormal, ToneCasual, ToneCreative, ToneHumorous:
		return t, true
	}
	return "", false
}
