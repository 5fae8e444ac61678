package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
)

var ErrChatServiceNotConfigured = errors.New("chat service not configured")

// Lenguajes aceptados por el modo código.
var SupportedCodeLanguages = []string{"python", "javascript"}

const defaultCodeLanguage = "python"

// ChatDefaults son los valores usados cuando el turno no trae modelo o temperatura.
type ChatDefaults struct {
	Model       string
	Temperature float64
}

type SendInput struct {
	Owner        domain.Owner
	SessionID    string
	Text         string
	Tone         domain.Tone
	Model        string
	Temperature  *float64
	CodeMode     bool
	CodeLanguage string
	// WebSearch agrega resultados de búsqueda simulados al turno saliente (fuera del modo código).
	WebSearch bool
}

// SendResult describe un turno completo. GatewayErr no es nil cuando el asistente
// respondió con el texto de error en lugar de una completion.
type SendResult struct {
	SessionID        string                    `json:"session_id"`
	UserMessage      domain.Message            `json:"user_message"`
	AssistantMessage domain.Message            `json:"assistant_message"`
	Performance      *domain.PerformanceSample `json:"performance,omitempty"`
	GatewayErr       error                     `json:"-"`
}

type TaskExtraction struct {
	Candidates []domain.TaskCandidate `json:"candidates"`
	Diagnostic string                 `json:"diagnostic,omitempty"`
}

// ChatService orquesta un envío: guard, persistencia, extracción, gateway y métricas.
type ChatService struct {
	sessions *SessionService
	tasks    *TaskService
	gateway  llm.Gateway
	guard    SendGuard
	perf     *PerformanceTracker
	logger   *zap.Logger
	defaults ChatDefaults
	clock    *monotonicClock
}

func NewChatService(
	sessions *SessionService,
	tasks *TaskService,
	gateway llm.Gateway,
	guard SendGuard,
	perf *PerformanceTracker,
	logger *zap.Logger,
	defaults ChatDefaults,
) *ChatService {
	if guard == nil {
		guard = NewMemorySendGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.Model == "" {
		defaults.Model = "deepseek-chat"
	}
	return &ChatService{
		sessions: sessions,
		tasks:    tasks,
		gateway:  gateway,
		guard:    guard,
		perf:     perf,
		logger:   logger,
		defaults: defaults,
		clock:    newMonotonicClock(time.Now),
	}
}

type reply struct {
	text       string
	chart      *domain.ChartPayload
	code       *domain.CodeSimulationPayload
	completion llm.Completion
	err        error
}

func (s *ChatService) Send(ctx context.Context, in SendInput) (SendResult, error) {
	if s == nil || s.sessions == nil || s.gateway == nil {
		return SendResult{}, ErrChatServiceNotConfigured
	}
	if err := in.Owner.Validate(); err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return SendResult{}, fmt.Errorf("%w: message text is empty", domain.ErrValidation)
	}
	tone, ok := domain.ParseTone(string(in.Tone))
	if !ok {
		return SendResult{}, fmt.Errorf("%w: unknown tone %q", domain.ErrValidation, in.Tone)
	}
	lang, err := codeLanguage(in)
	if err != nil {
		return SendResult{}, err
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.defaults.Model
	}
	temperature := s.defaults.Temperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}

	sessionID := strings.TrimSpace(in.SessionID)
	release, err := s.guard.Acquire(ctx, sendGuardKey(in.Owner, sessionID))
	if err != nil {
		return SendResult{}, err
	}
	defer release()

	var history []domain.Message
	if sessionID == "" {
		session, err := s.sessions.CreateSession(ctx, in.Owner, in.Text, model)
		if err != nil {
			return SendResult{}, err
		}
		sessionID = session.ID
	} else {
		history, err = s.sessions.ListMessages(ctx, in.Owner, sessionID)
		if err != nil {
			return SendResult{}, err
		}
	}

	result := SendResult{SessionID: sessionID}
	userMsg, err := s.sessions.AppendMessage(ctx, in.Owner, sessionID, domain.Message{
		Sender:    domain.SenderUser,
		Text:      in.Text,
		Timestamp: s.clock.Now(),
	})
	if err != nil {
		return result, err
	}
	result.UserMessage = userMsg

	// La inferencia no se cancela: si el cliente se va, el turno igual se completa y persiste.
	callCtx := context.WithoutCancel(ctx)
	req := llm.CompletionRequest{Model: model, Temperature: temperature}

	pending := in.Text
	if in.WebSearch && !in.CodeMode {
		pending += webSearchResults
	}

	var r reply
	switch {
	case in.CodeMode:
		r = s.simulateCode(callCtx, req, lang, in.Text)
	case WantsChart(in.Text):
		r = s.chart(callCtx, req, in.Text)
		if r.chart == nil {
			r = s.complete(callCtx, req, history, pending, tone)
		}
	default:
		r = s.complete(callCtx, req, history, pending, tone)
	}

	assistant, err := s.sessions.AppendMessage(callCtx, in.Owner, sessionID, domain.Message{
		Sender:    domain.SenderAssistant,
		Text:      r.text,
		Timestamp: s.clock.Now(),
		Chart:     r.chart,
		Code:      r.code,
	})
	if err != nil {
		return result, err
	}
	result.AssistantMessage = assistant

	if r.err != nil {
		result.GatewayErr = r.err
		return result, nil
	}
	if s.perf != nil {
		version := r.completion.Model
		if version == "" {
			version = model
		}
		sample := s.perf.Record(in.Owner, r.completion.Started, r.completion.Finished, r.completion.TotalTokens, version)
		result.Performance = &sample
	}
	return result, nil
}

func codeLanguage(in SendInput) (string, error) {
	if !in.CodeMode {
		return "", nil
	}
	lang := strings.ToLower(strings.TrimSpace(in.CodeLanguage))
	if lang == "" {
		return defaultCodeLanguage, nil
	}
	for _, l := range SupportedCodeLanguages {
		if l == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported code language %q", domain.ErrValidation, in.CodeLanguage)
}

func gatewayErrorText(err error) string {
	return "Error: " + err.Error()
}

func (s *ChatService) complete(ctx context.Context, req llm.CompletionRequest, history []domain.Message, text string, tone domain.Tone) reply {
	req.Messages = AssembleContext(history, text, tone)
	c, err := s.gateway.Complete(ctx, req)
	if err != nil {
		s.logger.Warn("completion failed", zap.String("model", req.Model), zap.Error(err))
		return reply{text: gatewayErrorText(err), err: err}
	}
	return reply{text: c.Content, completion: c}
}

func (s *ChatService) chart(ctx context.Context, req llm.CompletionRequest, text string) reply {
	req.Messages = []llm.Message{{Role: llm.RoleUser, Content: ChartPrompt(text)}}
	c, err := s.gateway.Complete(ctx, req)
	if err != nil {
		s.logger.Info("chart request failed, falling back to completion", zap.Error(err))
		return reply{}
	}
	ext := ParseChart(c.Content)
	if ext.Kind != ExtractedChart {
		s.logger.Debug("no chart extracted", zap.String("reason", ext.Reason))
		return reply{}
	}
	return reply{text: ChartCaption, chart: ext.Chart, completion: c}
}

func (s *ChatService) simulateCode(ctx context.Context, req llm.CompletionRequest, lang, code string) reply {
	req.Messages = []llm.Message{{Role: llm.RoleUser, Content: CodeSimulationPrompt(lang, code)}}
	c, err := s.gateway.Complete(ctx, req)
	if err != nil {
		s.logger.Warn("code simulation failed", zap.String("language", lang), zap.Error(err))
		return reply{text: gatewayErrorText(err), err: err}
	}
	ext := ParseCodeSimulation(c.Content)
	if ext.Kind != ExtractedCode {
		return reply{text: CodeParseFailedText(c.Content), completion: c}
	}
	return reply{text: CodeCaption(lang), code: ext.Code, completion: c}
}

// ExtractTasks propone tareas a partir del historial de la sesión. No persiste nada.
func (s *ChatService) ExtractTasks(ctx context.Context, owner domain.Owner, sessionID, model string, temperature *float64) (TaskExtraction, error) {
	if s == nil || s.sessions == nil || s.gateway == nil {
		return TaskExtraction{}, ErrChatServiceNotConfigured
	}
	history, err := s.sessions.ListMessages(ctx, owner, sessionID)
	if err != nil {
		return TaskExtraction{}, err
	}
	if len(history) == 0 {
		return TaskExtraction{}, fmt.Errorf("%w: session has no messages", domain.ErrValidation)
	}
	req := llm.CompletionRequest{
		Model:       strings.TrimSpace(model),
		Temperature: s.defaults.Temperature,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: TaskExtractionPrompt(history)}},
	}
	if req.Model == "" {
		req.Model = s.defaults.Model
	}
	if temperature != nil {
		req.Temperature = *temperature
	}
	c, err := s.gateway.Complete(ctx, req)
	if err != nil {
		return TaskExtraction{}, fmt.Errorf("extract tasks: %w", err)
	}
	ext := ParseTasks(c.Content)
	if ext.Reason != "" {
		s.logger.Info("task extraction unparseable", zap.String("session_id", sessionID), zap.String("reason", ext.Reason))
	}
	return TaskExtraction{Candidates: ext.Tasks, Diagnostic: ext.Reason}, nil
}

func (s *ChatService) AcceptTasks(ctx context.Context, owner domain.Owner, candidates []domain.TaskCandidate) ([]domain.Task, error) {
	if s == nil || s.tasks == nil {
		return nil, ErrChatServiceNotConfigured
	}
	return s.tasks.AcceptCandidates(ctx, owner, candidates)
}

func (s *ChatService) LatestPerformance(owner domain.Owner) (domain.PerformanceSample, bool) {
	if s == nil || s.perf == nil {
		return domain.PerformanceSample{}, false
	}
	return s.perf.Latest(owner)
}
