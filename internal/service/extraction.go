package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"centone-chat/internal/domain"
)

// Textos del asistente producidos por la extracción.
const (
	ChartCaption          = "Here is the chart you requested:"
	codeCaptionFormat     = "Code execution simulated for %s:"
	codeParseFailedFormat = "AI failed to parse code output. Raw response: %s"
)

type ExtractedKind string

const (
	ExtractedNone  ExtractedKind = "none"
	ExtractedChart ExtractedKind = "chart"
	ExtractedCode  ExtractedKind = "code"
	ExtractedTasks ExtractedKind = "tasks"
)

// Extracted es el resultado de una estrategia. Reason describe por que no hubo payload.
type Extracted struct {
	Kind   ExtractedKind
	Chart  *domain.ChartPayload
	Code   *domain.CodeSimulationPayload
	Tasks  []domain.TaskCandidate
	Reason string
}

// ParseError describe una salida del modelo que no cumple la forma pedida.
type ParseError struct {
	Strategy string
	Raw      string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable model output: %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func none(err error) Extracted {
	return Extracted{Kind: ExtractedNone, Reason: err.Error()}
}

// WantsChart detecta intencion de gráfico en el input del usuario.
func WantsChart(input string) bool {
	lower := strings.ToLower(input)
	return strings.Contains(lower, "plot") || strings.Contains(lower, "chart") || strings.Contains(lower, "graph")
}

func ChartPrompt(input string) string {
	return fmt.Sprintf(`Generate JSON data for a chart based on the following request: "%s". `+
		`The JSON should have a 'type' (e.g., 'line', 'bar'), 'title', 'labels' (array of strings), and 'data' (array of numbers). `+
		`Example: {"type": "bar", "title": "Monthly Sales", "labels": ["Jan", "Feb"], "data": [100, 200]}. `+
		`If the request is not suitable for a graph, return an empty object {}. Respond ONLY with the JSON object.`, input)
}

// ParseChart exige type line|bar y labels/data de igual longitud no nula.
func ParseChart(raw string) Extracted {
	var payload domain.ChartPayload
	if err := decodeLLMJSON(raw, '{', &payload); err != nil {
		return none(&ParseError{Strategy: "chart", Raw: raw, Err: err})
	}
	if payload.ChartType == "" && len(payload.Labels) == 0 && len(payload.Series) == 0 {
		return Extracted{Kind: ExtractedNone, Reason: "request not suitable for a chart"}
	}
	if !payload.Valid() {
		return none(&ParseError{
			Strategy: "chart",
			Raw:      raw,
			Err:      fmt.Errorf("invalid chart: type=%q labels=%d data=%d", payload.ChartType, len(payload.Labels), len(payload.Series)),
		})
	}
	return Extracted{Kind: ExtractedChart, Chart: &payload}
}

func CodeSimulationPrompt(language, code string) string {
	return fmt.Sprintf("Simulate running the following %s code and provide the output. "+
		"Respond ONLY with a JSON object with 'language', 'code', and 'output' fields. "+
		"If there's an error, put it in the 'output' field. Code: ```%s\n%s\n```", language, language, code)
}

// ParseCodeSimulation exige language no vacío y la presencia de code y output.
// code y output pueden venir como número, bool u objeto: se guardan como texto.
func ParseCodeSimulation(raw string) Extracted {
	var tmp struct {
		Language json.RawMessage `json:"language"`
		Code     json.RawMessage `json:"code"`
		Output   json.RawMessage `json:"output"`
	}
	if err := decodeLLMJSON(raw, '{', &tmp); err != nil {
		return none(&ParseError{Strategy: "code", Raw: raw, Err: err})
	}
	lang, hasLang := scalarText(tmp.Language)
	code, hasCode := scalarText(tmp.Code)
	output, hasOutput := scalarText(tmp.Output)
	if !hasLang || strings.TrimSpace(lang) == "" || !hasCode || !hasOutput {
		return none(&ParseError{Strategy: "code", Raw: raw, Err: fmt.Errorf("missing language, code or output")})
	}
	return Extracted{Kind: ExtractedCode, Code: &domain.CodeSimulationPayload{
		Language: lang,
		Code:     code,
		Output:   output,
	}}
}

// scalarText pasa un valor JSON a texto: strings sin comillas, null vacío, el resto tal cual.
// ok es false solo si el campo no vino.
func scalarText(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", false
	}
	if bytes.Equal(v, []byte("null")) {
		return "", true
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return str, true
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, v); err == nil {
		return compact.String(), true
	}
	return string(v), true
}

// CodeCaption es el texto del asistente cuando la simulación se parsea bien.
func CodeCaption(language string) string {
	return fmt.Sprintf(codeCaptionFormat, language)
}

// CodeParseFailedText expone la salida cruda cuando no se pudo parsear.
func CodeParseFailedText(raw string) string {
	return fmt.Sprintf(codeParseFailedFormat, raw)
}

// TaskExtractionPrompt arma el prompt con la conversacion como lineas "sender: text".
func TaskExtractionPrompt(history []domain.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, m.Text))
	}
	return "From the following chat conversation, identify any actionable tasks. " +
		"Respond ONLY with a JSON array of objects, where each object has a 'description' string and a 'completed' boolean (default to false). " +
		"If no tasks are found or the conversation is not relevant for tasks, return an empty JSON array [].\n\nChat:\n" +
		strings.Join(lines, "\n")
}

// ParseTasks devuelve candidatos seleccionados. Cada entrada se decodifica por separado:
// las que no son objeto o no tienen descripcion se descartan sin perder el resto.
func ParseTasks(raw string) Extracted {
	var entries []json.RawMessage
	if err := decodeLLMJSON(raw, '[', &entries); err != nil {
		return Extracted{Kind: ExtractedTasks, Tasks: []domain.TaskCandidate{}, Reason: (&ParseError{Strategy: "tasks", Raw: raw, Err: err}).Error()}
	}
	out := make([]domain.TaskCandidate, 0, len(entries))
	for _, e := range entries {
		var entry struct {
			Description json.RawMessage `json:"description"`
			Completed   json.RawMessage `json:"completed"`
		}
		if err := json.Unmarshal(e, &entry); err != nil {
			continue
		}
		desc, _ := scalarText(entry.Description)
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		out = append(out, domain.TaskCandidate{Description: desc, Completed: truthy(entry.Completed), Selected: true})
	}
	return Extracted{Kind: ExtractedTasks, Tasks: out}
}

// truthy acepta true o "true"; cualquier otra cosa cuenta como pendiente.
func truthy(v json.RawMessage) bool {
	text, ok := scalarText(v)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	return err == nil && b
}
