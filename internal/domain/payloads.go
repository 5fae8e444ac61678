package domain

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
)

func (t ChartType) Valid() bool {
	return t == ChartLine || t == ChartBar
}

// ChartPayload solo es valido si Labels y Series tienen el mismo largo (> 0).
type ChartPayload struct {
	ChartType ChartType `json:"type"`
	Title     string    `json:"title"`
	Labels    []string  `json:"labels"`
	Series    []float64 `json:"data"`
}

func (c *ChartPayload) Valid() bool {
	if c == nil || !c.ChartType.Valid() {
		return false
	}
	return len(c.Labels) > 0 && len(c.Labels) == len(c.Series)
}

type CodeSimulationPayload struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Output   string `json:"output"`
}

// TaskCandidate es efimero: no se persiste hasta que el usuario lo acepta.
type TaskCandidate struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Selected    bool   `json:"selected"`
}
