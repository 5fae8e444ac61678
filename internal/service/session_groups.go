package service

import (
	"time"

	"centone-chat/internal/domain"
)

// SessionGroups agrupa el historial para la barra lateral. Los grupos vacíos se omiten.
type SessionGroups struct {
	Today     []domain.Session `json:"today,omitempty"`
	Yesterday []domain.Session `json:"yesterday,omitempty"`
	Last7Days []domain.Session `json:"last_7_days,omitempty"`
	Older     []domain.Session `json:"older,omitempty"`
}

// GroupSessionsByDate clasifica por día calendario en la zona de now. Conserva el orden
// de entrada. Today es solo el día de now: una fecha futura cae en Older.
func GroupSessionsByDate(sessions []domain.Session, now time.Time) SessionGroups {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var groups SessionGroups
	for _, s := range sessions {
		created := s.CreatedAt.In(now.Location())
		switch {
		case !created.Before(tomorrow):
			groups.Older = append(groups.Older, s)
		case !created.Before(today):
			groups.Today = append(groups.Today, s)
		case !created.Before(yesterday):
			groups.Yesterday = append(groups.Yesterday, s)
		case !created.Before(weekAgo):
			groups.Last7Days = append(groups.Last7Days, s)
		default:
			groups.Older = append(groups.Older, s)
		}
	}
	return groups
}
