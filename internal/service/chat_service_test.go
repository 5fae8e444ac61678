package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
)

func intPtr(v int) *int { return &v }

func okCompletion(content string) llm.Completion {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return llm.Completion{
		Content:     content,
		Model:       "deepseek-chat",
		TotalTokens: intPtr(42),
		Started:     start,
		Finished:    start.Add(120 * time.Millisecond),
	}
}

func TestChatService_SendPlainCompletion(t *testing.T) {
	gw := &llm.MockClient{Response: okCompletion("Hola, que tal?")}
	ts := newTestServices(t, gw)
	ctx := context.Background()

	res, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "hola"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.SessionID == "" || res.AssistantMessage.Text != "Hola, que tal?" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Performance == nil || res.Performance.LatencyLabel() != "120ms" || res.Performance.TokenUsageLabel() != "42 tokens" {
		t.Fatalf("unexpected performance %+v", res.Performance)
	}

	msgs, err := ts.sessions.ListMessages(ctx, testOwner, res.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Sender != domain.SenderUser || msgs[1].Sender != domain.SenderAssistant {
		t.Fatalf("unexpected persisted messages %+v", msgs)
	}
	if !msgs[0].Timestamp.Before(msgs[1].Timestamp) {
		t.Fatalf("assistant must be stamped after user")
	}

	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Model != "deepseek-chat" || calls[0].Temperature != 0.7 {
		t.Fatalf("unexpected gateway calls %+v", calls)
	}
}

func TestChatService_FormalToneOnlyAffectsOutgoing(t *testing.T) {
	gw := &llm.MockClient{Response: okCompletion("Good day.")}
	ts := newTestServices(t, gw)

	res, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "hello", Tone: domain.ToneFormal})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := gw.Calls()
	last := calls[0].Messages[len(calls[0].Messages)-1]
	if last.Content != "Respond in a formal tone: hello" {
		t.Fatalf("unexpected outgoing content %q", last.Content)
	}
	if res.UserMessage.Text != "hello" {
		t.Fatalf("stored text must be verbatim, got %q", res.UserMessage.Text)
	}
}

func TestChatService_WebSearchOnlyAffectsOutgoing(t *testing.T) {
	gw := &llm.MockClient{Responses: []llm.Completion{okCompletion("Noticias."), okCompletion(`{"language":"python","code":"x","output":"1"}`)}}
	ts := newTestServices(t, gw)
	ctx := context.Background()

	res, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "news", Tone: domain.ToneFormal, WebSearch: true})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := gw.Calls()
	last := calls[0].Messages[len(calls[0].Messages)-1]
	if last.Content != "Respond in a formal tone: news"+webSearchResults {
		t.Fatalf("unexpected outgoing content %q", last.Content)
	}
	if res.UserMessage.Text != "news" {
		t.Fatalf("stored text must be verbatim, got %q", res.UserMessage.Text)
	}

	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "x", CodeMode: true, WebSearch: true}); err != nil {
		t.Fatalf("send code: %v", err)
	}
	calls = gw.Calls()
	code := calls[1].Messages[len(calls[1].Messages)-1].Content
	if strings.Contains(code, "SIMULATED WEB SEARCH") {
		t.Fatalf("code mode must ignore web search, got %q", code)
	}
}

func TestChatService_IncludesHistoryInOrder(t *testing.T) {
	gw := &llm.MockClient{Responses: []llm.Completion{okCompletion("uno"), okCompletion("dos")}}
	ts := newTestServices(t, gw)
	ctx := context.Background()

	first, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "primero"})
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, SessionID: first.SessionID, Text: "segundo"}); err != nil {
		t.Fatalf("second send: %v", err)
	}

	msgs := gw.Calls()[1].Messages
	want := []string{"primero", "uno", "segundo"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d context messages, got %d", len(want), len(msgs))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Fatalf("context %d: got %q want %q", i, msgs[i].Content, w)
		}
	}
}

func TestChatService_BarChart(t *testing.T) {
	gw := &llm.MockClient{Response: okCompletion(`{"type":"bar","title":"Monthly Sales","labels":["Jan","Feb"],"data":[100,200]}`)}
	ts := newTestServices(t, gw)

	res, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "Plot monthly sales for Jan and Feb"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	a := res.AssistantMessage
	if a.Text != ChartCaption {
		t.Fatalf("unexpected assistant text %q", a.Text)
	}
	if a.Chart == nil || a.Chart.ChartType != domain.ChartBar || len(a.Chart.Labels) != 2 {
		t.Fatalf("unexpected chart %+v", a.Chart)
	}
	if n := len(gw.Calls()); n != 1 {
		t.Fatalf("expected a single gateway call, got %d", n)
	}
}

func TestChatService_ChartFallsThroughToCompletion(t *testing.T) {
	gw := &llm.MockClient{Responses: []llm.Completion{
		okCompletion(`{"type":"bar","labels":["Jan","Feb"],"data":[100]}`),
		okCompletion("No puedo graficar eso, pero..."),
	}}
	ts := newTestServices(t, gw)

	res, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "chart something"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.AssistantMessage.Chart != nil {
		t.Fatalf("mismatched chart must not attach a payload")
	}
	if res.AssistantMessage.Text != "No puedo graficar eso, pero..." {
		t.Fatalf("unexpected text %q", res.AssistantMessage.Text)
	}
}

func TestChatService_EndpointErrorPersistsAndSkipsPerformance(t *testing.T) {
	gw := &llm.MockClient{Err: &llm.EndpointError{StatusCode: 500, Message: "Unknown error"}}
	ts := newTestServices(t, gw)
	ctx := context.Background()

	res, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "hola"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.AssistantMessage.Text != "Error: API error: 500 - Unknown error" {
		t.Fatalf("unexpected assistant text %q", res.AssistantMessage.Text)
	}
	var ee *llm.EndpointError
	if !errors.As(res.GatewayErr, &ee) {
		t.Fatalf("expected gateway error on result, got %v", res.GatewayErr)
	}
	if res.Performance != nil {
		t.Fatalf("failed exchanges must not record performance")
	}
	if _, ok := ts.perf.Latest(testOwner); ok {
		t.Fatalf("tracker must stay untouched")
	}
	msgs, _ := ts.sessions.ListMessages(ctx, testOwner, res.SessionID)
	if len(msgs) != 2 || msgs[1].Text != res.AssistantMessage.Text {
		t.Fatalf("error reply must be persisted, got %+v", msgs)
	}
}

func TestChatService_CodeMode(t *testing.T) {
	t.Run("simulacion valida", func(t *testing.T) {
		gw := &llm.MockClient{Response: okCompletion(`{"language":"python","code":"print(1)","output":"1"}`)}
		ts := newTestServices(t, gw)
		res, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "print(1)", CodeMode: true, CodeLanguage: "python"})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if res.AssistantMessage.Text != "Code execution simulated for python:" || res.AssistantMessage.Code == nil {
			t.Fatalf("unexpected reply %+v", res.AssistantMessage)
		}
		if res.AssistantMessage.Code.Output != "1" {
			t.Fatalf("unexpected output %q", res.AssistantMessage.Code.Output)
		}
	})

	t.Run("salida no parseable", func(t *testing.T) {
		gw := &llm.MockClient{Response: okCompletion("it prints 1")}
		ts := newTestServices(t, gw)
		res, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "print(1)", CodeMode: true})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if res.AssistantMessage.Text != "AI failed to parse code output. Raw response: it prints 1" || res.AssistantMessage.Code != nil {
			t.Fatalf("unexpected reply %+v", res.AssistantMessage)
		}
	})

	t.Run("lenguaje no soportado", func(t *testing.T) {
		ts := newTestServices(t, &llm.MockClient{})
		_, err := ts.chat.Send(context.Background(), SendInput{Owner: testOwner, Text: "x", CodeMode: true, CodeLanguage: "cobol"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestChatService_SendValidation(t *testing.T) {
	ts := newTestServices(t, &llm.MockClient{})
	ctx := context.Background()

	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "   "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank text, got %v", err)
	}
	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "hola", Tone: "sarcastic"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown tone, got %v", err)
	}
	if _, err := ts.chat.Send(ctx, SendInput{Owner: domain.Owner{AppID: "app"}, Text: "hola"}); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, SessionID: "missing", Text: "hola"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	g.entered <- struct{}{}
	<-g.release
	return okCompletion("listo"), nil
}

func TestChatService_OneSendInFlightPerSession(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}, 1), release: make(chan struct{})}
	ts := newTestServices(t, gw)
	ctx := context.Background()
	s, err := ts.sessions.CreateSession(ctx, testOwner, "hola", "m")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, SessionID: s.ID, Text: "primero"})
		done <- err
	}()
	<-gw.entered

	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, SessionID: s.ID, Text: "segundo"}); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}

	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}

	go func() { <-gw.entered }()
	if _, err := ts.chat.Send(ctx, SendInput{Owner: testOwner, SessionID: s.ID, Text: "tercero"}); err != nil {
		t.Fatalf("send after release: %v", err)
	}
}

func TestChatService_InferenceSurvivesCallerCancel(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}, 1), release: make(chan struct{})}
	ts := newTestServices(t, gw)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan SendResult, 1)
	go func() {
		res, _ := ts.chat.Send(ctx, SendInput{Owner: testOwner, Text: "hola"})
		done <- res
	}()
	<-gw.entered
	cancel()
	close(gw.release)

	res := <-done
	if res.AssistantMessage.Text != "listo" {
		t.Fatalf("expected completion persisted despite cancel, got %+v", res.AssistantMessage)
	}
}

func TestChatService_ExtractTasks(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, ts testServices) string {
		t.Helper()
		s, err := ts.sessions.CreateSession(ctx, testOwner, "remind me to buy milk", "m")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := ts.sessions.AppendMessage(ctx, testOwner, s.ID, domain.Message{Sender: domain.SenderUser, Text: "remind me to buy milk", Timestamp: time.Now()}); err != nil {
			t.Fatalf("append: %v", err)
		}
		return s.ID
	}

	t.Run("buy milk aceptada", func(t *testing.T) {
		ts := newTestServices(t, &llm.MockClient{Response: okCompletion(`[{"description":"Buy milk","completed":false}]`)})
		sid := seed(t, ts)

		ext, err := ts.chat.ExtractTasks(ctx, testOwner, sid, "", nil)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(ext.Candidates) != 1 || !ext.Candidates[0].Selected {
			t.Fatalf("unexpected candidates %+v", ext.Candidates)
		}
		if tasks, _ := ts.tasks.List(ctx, testOwner); len(tasks) != 0 {
			t.Fatalf("extraction must not persist tasks")
		}

		created, err := ts.chat.AcceptTasks(ctx, testOwner, ext.Candidates)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		tasks, _ := ts.tasks.List(ctx, testOwner)
		if len(created) != 1 || len(tasks) != 1 || tasks[0].Description != "Buy milk" || tasks[0].Completed {
			t.Fatalf("unexpected tasks %+v", tasks)
		}
	})

	t.Run("respuesta no json", func(t *testing.T) {
		ts := newTestServices(t, &llm.MockClient{Response: okCompletion("Nothing actionable here.")})
		sid := seed(t, ts)

		ext, err := ts.chat.ExtractTasks(ctx, testOwner, sid, "", nil)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(ext.Candidates) != 0 || ext.Diagnostic == "" {
			t.Fatalf("expected empty candidates with diagnostic, got %+v", ext)
		}
		msgs, _ := ts.sessions.ListMessages(ctx, testOwner, sid)
		if len(msgs) != 1 {
			t.Fatalf("diagnostic must not be persisted as a message")
		}
	})

	t.Run("error del gateway", func(t *testing.T) {
		ts := newTestServices(t, &llm.MockClient{Err: &llm.TransportError{Err: errors.New("dial")}})
		sid := seed(t, ts)
		_, err := ts.chat.ExtractTasks(ctx, testOwner, sid, "", nil)
		var te *llm.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected transport error, got %v", err)
		}
	})

	t.Run("historial vacio", func(t *testing.T) {
		ts := newTestServices(t, &llm.MockClient{})
		s, _ := ts.sessions.CreateSession(ctx, testOwner, "x", "m")
		if _, err := ts.chat.ExtractTasks(ctx, testOwner, s.ID, "", nil); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
