package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"centone-chat/internal/config"
	"centone-chat/internal/db"
	"centone-chat/internal/docstore"
	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
	"centone-chat/internal/repository"
	"centone-chat/internal/service"
)

type options struct {
	userID      string
	sessionID   string
	tone        string
	model       string
	temperature float64
	codeLang    string
	webSearch   bool
}

func main() {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "cli_chat",
		Short: "Chat interactivo contra el modelo configurado",
		Long: `REPL sobre los mismos servicios que la API.

Comandos dentro del REPL:
  /new           empieza una sesion nueva
  /sessions      lista sesiones agrupadas por fecha
  /code <lang>   activa modo codigo (python|javascript); /code off lo apaga
  /tone <tono>   cambia el tono
  /search on|off agrega resultados de busqueda simulados
  /doc <archivo> envia un documento .txt para analizar
  /tasks         extrae tareas de la sesion y las acepta
  /board         muestra el tablero de tareas
  /perf          muestra la ultima muestra de rendimiento
  /transcript    imprime la conversacion
  /quit          sale`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "cli-user", "user id del owner")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "sesion existente a continuar")
	cmd.Flags().StringVar(&opts.tone, "tone", string(domain.ToneNeutral), "tono: neutral|formal|casual|creative|humorous")
	cmd.Flags().StringVar(&opts.model, "model", "", "modelo (default LLM_MODEL)")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", -1, "temperatura (default LLM_TEMPERATURE)")
	cmd.Flags().StringVar(&opts.codeLang, "code", "", "arranca en modo codigo con el lenguaje dado")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type repl struct {
	out      io.Writer
	owner    domain.Owner
	opts     *options
	sessions *service.SessionService
	tasks    *service.TaskService
	chat     *service.ChatService
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := zap.NewExample()
	defer logger.Sync()

	var store docstore.Store = docstore.NewMemory()
	if !cfg.UsesMemoryStore() {
		pool, pgStore, err := db.OpenDocumentStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgStore
	}

	perf, err := service.NewPerformanceTracker(cfg.PerformanceCacheSize)
	if err != nil {
		return err
	}
	gateway := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout(), logger)
	sessions := service.NewSessionService(repository.NewDocSessionRepository(store), repository.NewDocMessageRepository(store))
	tasks := service.NewTaskService(repository.NewDocTaskRepository(store))
	chat := service.NewChatService(sessions, tasks, gateway, service.NewMemorySendGuard(), perf, logger, service.ChatDefaults{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
	})

	r := &repl{
		out:      out,
		owner:    domain.Owner{AppID: cfg.AppID, UserID: opts.userID},
		opts:     opts,
		sessions: sessions,
		tasks:    tasks,
		chat:     chat,
	}
	return r.loop(ctx, bufio.NewScanner(in))
}

func (r *repl) loop(ctx context.Context, scanner *bufio.Scanner) error {
	fmt.Fprintln(r.out, "===== Chat ===== (/quit para salir)")
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := r.send(ctx, line); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *repl) send(ctx context.Context, text string) error {
	in := service.SendInput{
		Owner:        r.owner,
		SessionID:    r.opts.sessionID,
		Text:         text,
		Tone:         domain.Tone(r.opts.tone),
		Model:        r.opts.model,
		CodeMode:     r.opts.codeLang != "",
		CodeLanguage: r.opts.codeLang,
		WebSearch:    r.opts.webSearch,
	}
	if r.opts.temperature >= 0 {
		t := r.opts.temperature
		in.Temperature = &t
	}
	res, err := r.chat.Send(ctx, in)
	if err != nil {
		return err
	}
	r.opts.sessionID = res.SessionID

	a := res.AssistantMessage
	fmt.Fprintf(r.out, "assistant: %s\n", a.Text)
	if a.Chart != nil {
		fmt.Fprintf(r.out, "  [%s] %s\n", a.Chart.ChartType, a.Chart.Title)
		for i, label := range a.Chart.Labels {
			fmt.Fprintf(r.out, "    %-12s %g\n", label, a.Chart.Series[i])
		}
	}
	if a.Code != nil {
		fmt.Fprintf(r.out, "  %s:\n%s\n  output:\n%s\n", a.Code.Language, a.Code.Code, a.Code.Output)
	}
	return nil
}

func (r *repl) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		r.opts.sessionID = ""
		fmt.Fprintln(r.out, "nueva sesion")
	case "/tone":
		if _, ok := domain.ParseTone(arg); !ok {
			return false, fmt.Errorf("tono desconocido %q", arg)
		}
		r.opts.tone = arg
	case "/code":
		if arg == "off" {
			r.opts.codeLang = ""
		} else {
			r.opts.codeLang = arg
		}
	case "/search":
		switch arg {
		case "on":
			r.opts.webSearch = true
		case "off":
			r.opts.webSearch = false
		default:
			return false, errors.New("uso: /search on|off")
		}
	case "/doc":
		text, err := readDocument(strings.TrimSpace(strings.TrimPrefix(line, "/doc")))
		if err != nil {
			return false, err
		}
		return false, r.send(ctx, service.DocumentPrompt(text))
	case "/sessions":
		return false, r.listSessions(ctx)
	case "/tasks":
		return false, r.extractTasks(ctx)
	case "/board":
		return false, r.board(ctx)
	case "/perf":
		sample, ok := r.chat.LatestPerformance(r.owner)
		if !ok {
			fmt.Fprintf(r.out, "latency=%s tokens=%s model=%s\n", domain.NotAvailable, domain.NotAvailable, domain.NotAvailable)
			return false, nil
		}
		fmt.Fprintf(r.out, "latency=%s tokens=%s model=%s\n", sample.LatencyLabel(), sample.TokenUsageLabel(), sample.ModelVersion)
	case "/transcript":
		if r.opts.sessionID == "" {
			return false, errors.New("no hay sesion activa")
		}
		msgs, err := r.sessions.ListMessages(ctx, r.owner, r.opts.sessionID)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, service.FormatTranscript(msgs))
	default:
		return false, fmt.Errorf("comando desconocido %s", fields[0])
	}
	return false, nil
}

func (r *repl) listSessions(ctx context.Context) error {
	list, err := r.sessions.ListSessions(ctx, r.owner)
	if err != nil {
		return err
	}
	groups := service.GroupSessionsByDate(list, timeNow())
	for _, g := range []struct {
		name     string
		sessions []domain.Session
	}{
		{"Hoy", groups.Today},
		{"Ayer", groups.Yesterday},
		{"Ultimos 7 dias", groups.Last7Days},
		{"Anteriores", groups.Older},
	} {
		if len(g.sessions) == 0 {
			continue
		}
		fmt.Fprintf(r.out, "%s:\n", g.name)
		for _, s := range g.sessions {
			fmt.Fprintf(r.out, "  %s  %s\n", s.ID, s.Title)
		}
	}
	return nil
}

func (r *repl) extractTasks(ctx context.Context) error {
	if r.opts.sessionID == "" {
		return errors.New("no hay sesion activa")
	}
	var temp *float64
	if r.opts.temperature >= 0 {
		temp = &r.opts.temperature
	}
	ext, err := r.chat.ExtractTasks(ctx, r.owner, r.opts.sessionID, r.opts.model, temp)
	if err != nil {
		return err
	}
	if len(ext.Candidates) == 0 {
		fmt.Fprintln(r.out, "no se encontraron tareas")
		if ext.Diagnostic != "" {
			fmt.Fprintf(r.out, "  (%s)\n", ext.Diagnostic)
		}
		return nil
	}
	created, err := r.chat.AcceptTasks(ctx, r.owner, ext.Candidates)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%d tareas agregadas\n", len(created))
	return r.board(ctx)
}

func (r *repl) board(ctx context.Context) error {
	list, err := r.tasks.List(ctx, r.owner)
	if err != nil {
		return err
	}
	for _, t := range list {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(r.out, "  [%s] %s\n", mark, t.Description)
	}
	return nil
}

// readDocument solo acepta texto plano, igual que /chat/document.
func readDocument(path string) (string, error) {
	if path == "" {
		return "", errors.New("uso: /doc <archivo.txt>")
	}
	if mt := mime.TypeByExtension(filepath.Ext(path)); !strings.HasPrefix(mt, "text/plain") {
		return "", fmt.Errorf("%s: solo se aceptan documentos text/plain", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var timeNow = time.Now
