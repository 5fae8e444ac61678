package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	reFenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	reFenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

var errEmptyResponse = errors.New("empty response")

// CleanLLMJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func CleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")
	s = reFenceStart.ReplaceAllString(s, "")
	s = reFenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// decodeLLMJSON intenta, en orden: json estricto sobre el texto limpio, el primer
// fragmento balanceado, y jsonrepair del fragmento (o del texto si no hay fragmento).
func decodeLLMJSON(raw string, open byte, out any) error {
	cleaned := CleanLLMJSONResponse(raw)
	if cleaned == "" {
		return errEmptyResponse
	}

	strictErr := fmt.Errorf("expected JSON starting with %q", open)
	if cleaned[0] == open {
		if strictErr = json.Unmarshal([]byte(cleaned), out); strictErr == nil {
			return nil
		}
	}

	fragment := extractFirstJSON(cleaned, open)
	if fragment != "" && fragment != cleaned {
		if err := json.Unmarshal([]byte(fragment), out); err == nil {
			return nil
		}
	}

	candidate := fragment
	if candidate == "" {
		candidate = cleaned
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return fmt.Errorf("repair json: %w", err)
	}
	repaired = strings.TrimSpace(repaired)
	if repaired == "" || repaired[0] != open {
		return fmt.Errorf("decode json: %w", strictErr)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("decode json: %w", strictErr)
	}
	return nil
}
