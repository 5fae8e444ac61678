package domain

import (
	"fmt"
	"strings"
)

// Owner aisla todos los datos a una instancia de aplicacion y una identidad de usuario.
type Owner struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
}

// Validate falla con ErrIdentityUnavailable si todavia no hay usuario resuelto.
func (o Owner) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrIdentityUnavailable
	}
	if strings.TrimSpace(o.AppID) == "" {
		return fmt.Errorf("%w: app id missing", ErrIdentityUnavailable)
	}
	return nil
}

// Key es la clave compuesta usada por caches y locks.
func (o Owner) Key() string {
	return o.AppID + "/" + o.UserID
}
