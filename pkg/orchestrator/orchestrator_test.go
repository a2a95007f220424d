package orchestrator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/spaceagent/pkg/llm"
	"github.com/jllopis/spaceagent/pkg/planner"
	"github.com/jllopis/spaceagent/pkg/tool"
)

type echoParams struct {
	Message string `json:"message"`
}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	echo := tool.Func(func(_ context.Context, args tool.Args) (tool.Result, error) {
		var p echoParams
		if err := args.Bind(&p, "message"); err != nil {
			return tool.Result{}, err
		}
		return tool.OK("echo: " + p.Message), nil
	})
	fail := tool.Func(func(context.Context, tool.Args) (tool.Result, error) {
		return tool.Err("sensor offline"), nil
	})
	reg, err := tool.NewRegistry(tool.NewGroup("probe").
		Add("echo", echo, tool.WithDescription("Echoes a message"), tool.WithParams(&echoParams{})).
		Add("fail", fail, tool.WithDescription("Always fails")))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, opts ...Option) *Orchestrator {
	t.Helper()
	reg := testRegistry(t)
	exec := planner.NewExecutor(tool.NewDispatcher(nil, reg))
	return New(provider, reg.Catalog(), exec, opts...)
}

const answerReply = `{"result": {"type": "answer", "content": {"message": "Paris.", "reason": "General knowledge."}}}`

func TestProcessDirectAnswer(t *testing.T) {
	rec := llm.NewRecordingProvider(llm.NewScriptedMockProvider(answerReply))
	clock := func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	o := newTestOrchestrator(t, rec, WithModel("test-model"), WithClock(clock), WithAgentName("Orion"))

	got := o.Process(context.Background(), "What is the capital of France?")
	want := &Response{
		Type:    TypeAnswer,
		Content: Content{Message: "Paris.", Reason: "General knowledge."},
		Process: EmptyProcess(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}

	reqs := rec.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Model != "test-model" || !req.JSON {
		t.Fatalf("unexpected request settings: model=%q json=%v", req.Model, req.JSON)
	}
	system := req.Messages[0].Content
	for _, want := range []string{"Your name is Orion", "2026-03-02 Monday", "probe-echo", "Echoes a message"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
	if req.Messages[1].Content != "What is the capital of France?" {
		t.Fatalf("unexpected user message %q", req.Messages[1].Content)
	}
}

func TestProcessAnswerShapeIsStable(t *testing.T) {
	o := newTestOrchestrator(t, llm.NewScriptedMockProvider("```json\n{\"type\":\"answer\",\"content\":{\"message\":\"hi\"}}\n```"))
	resp := o.Process(context.Background(), "hello")

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Process map[string]json.RawMessage `json:"process"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for key, want := range map[string]string{
		"tools_used":        "[]",
		"steps_taken":       "[]",
		"execution_summary": "[]",
		"reasoning":         `""`,
	} {
		if got := string(decoded.Process[key]); got != want {
			t.Fatalf("process.%s = %s, want %s", key, got, want)
		}
	}
}

func TestProcessPlanThenAnswer(t *testing.T) {
	plan := `{"result": {"type": "plan", "content": {"steps": [
		{"step": 1, "tool": "probe-echo", "input": "first", "reason": "gather", "required_for_response": false},
		{"step": 2, "tool": "probe-echo", "input": {"message": "Using {{1}}"}, "reason": "use it", "required_for_response": true}
	]}}}`
	final := `{"result": {"type": "answer", "content": {"message": "done", "reason": "from results"}}}`
	rec := llm.NewRecordingProvider(llm.NewScriptedMockProvider(plan, final))

	var states []TurnState
	o := newTestOrchestrator(t, rec, WithStateHook(func(_ context.Context, _ string, s TurnState) {
		states = append(states, s)
	}))
	got := o.Process(context.Background(), "echo twice")

	want := &Response{
		Type:    TypeAnswer,
		Content: Content{Message: "done", Reason: "from results"},
		Process: ProcessInfo{
			ToolsUsed: []string{"probe-echo"},
			Reasoning: "Plan executed with results",
			StepsTaken: []StepRecord{
				{Step: 1, Tool: "probe-echo", Input: "first", Output: "Step 1: echo: first", Status: StatusCompleted, Reason: "gather"},
				{Step: 2, Tool: "probe-echo", Input: map[string]any{"message": "Using {{1}}"}, Output: "Step 2: echo: Using echo: first", Status: StatusCompleted, Reason: "use it"},
			},
			ExecutionSummary: []string{
				"Plan execution completed successfully.",
				"Step 1 (probe-echo): Step 1: echo: first",
				"Step 2 (probe-echo): Step 2: echo: Using echo: first",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}

	wantStates := []TurnState{StateReceived, StatePlanningOrAnswering, StatePlanReceived, StateExecuting, StateSynthesizing, StateAnswered}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}

	reqs := rec.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(reqs))
	}
	second := reqs[1].Messages[0].Content
	if !strings.Contains(second, "- Step 2 (probe-echo): Step 2: echo: Using echo: first") {
		t.Fatalf("answer prompt does not carry execution results:\n%s", second)
	}
	if reqs[1].Messages[1].Content != "echo twice" {
		t.Fatalf("answer call lost the original query: %q", reqs[1].Messages[1].Content)
	}
}

func TestProcessFailedPlanRecordsNotExecuted(t *testing.T) {
	plan := `{"type": "plan", "content": {"steps": [
		{"step": 1, "tool": "probe-echo", "input": "ping", "reason": "a"},
		{"step": 2, "tool": "probe-fail", "input": {}, "reason": "b", "required_for_response": true},
		{"step": 3, "tool": "probe-echo", "input": "{{2}}", "reason": "c"}
	]}}`
	o := newTestOrchestrator(t, llm.NewScriptedMockProvider(plan, answerReply))
	got := o.Process(context.Background(), "scan")

	if got.Type != TypeAnswer || got.Content.Message != "Paris." {
		t.Fatalf("unexpected final answer: %+v", got.Content)
	}
	p := got.Process
	if diff := cmp.Diff([]string{"probe-echo", "probe-fail"}, p.ToolsUsed); diff != "" {
		t.Fatalf("tools_used mismatch (-want +got):\n%s", diff)
	}
	statuses := make([]string, 0, len(p.StepsTaken))
	for _, s := range p.StepsTaken {
		statuses = append(statuses, s.Status)
	}
	if diff := cmp.Diff([]string{StatusCompleted, StatusFailed, StatusNotExecuted}, statuses); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if p.StepsTaken[2].Output != nil || p.StepsTaken[2].Step != 3 {
		t.Fatalf("skipped step should have no output: %+v", p.StepsTaken[2])
	}
	wantSummary := []string{
		"Plan execution failed at step 2.",
		"Step 1 (probe-echo): Step 1: echo: ping",
		"Step 2 (probe-fail): Step 2: Error: sensor offline (Failed)",
		"Step 3 (probe-echo): Not executed",
	}
	if diff := cmp.Diff(wantSummary, p.ExecutionSummary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessUnknownToolHaltsPlan(t *testing.T) {
	plan := `{"type": "plan", "content": {"steps": [{"step": 1, "tool": "x-y", "input": {}}]}}`
	o := newTestOrchestrator(t, llm.NewScriptedMockProvider(plan, answerReply))
	got := o.Process(context.Background(), "q")

	want := []string{
		"Plan execution failed at step 1.",
		"Step 1 (x-y): Step 1: Error: Tool 'x-y' not found (Failed)",
	}
	if diff := cmp.Diff(want, got.Process.ExecutionSummary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessModelFailure(t *testing.T) {
	provider := &llm.ScriptedMockProvider{Err: stderrors.New("connection refused")}
	o := newTestOrchestrator(t, provider)
	got := o.Process(context.Background(), "q")

	if got.Type != TypeAnswer {
		t.Fatalf("expected answer, got %q", got.Type)
	}
	if !strings.HasPrefix(got.Content.Message, "Error generating response: ") ||
		!strings.Contains(got.Content.Message, "connection refused") {
		t.Fatalf("unexpected message %q", got.Content.Message)
	}
	if got.Content.Reason != "Error during response generation" {
		t.Fatalf("unexpected reason %q", got.Content.Reason)
	}
	if diff := cmp.Diff(EmptyProcess(), got.Process); diff != "" {
		t.Fatalf("process should be empty (-want +got):\n%s", diff)
	}
}

func TestProcessMalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I think the answer is 42."},
		{name: "unknown type", reply: `{"type": "poem", "content": {}}`},
		{name: "truncated", reply: `{"result": {"type": "answer", "content": {"message": "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, llm.NewScriptedMockProvider(tt.reply))
			got := o.Process(context.Background(), "q")
			if got.Type != TypeAnswer || !strings.HasPrefix(got.Content.Message, "Error generating response: ") {
				t.Fatalf("expected error answer, got %+v", got)
			}
			if len(got.Process.StepsTaken) != 0 {
				t.Fatalf("expected empty process, got %+v", got.Process)
			}
		})
	}
}

func TestProcessRejectsStructurallyInvalidPlan(t *testing.T) {
	tests := []struct {
		name string
		plan string
	}{
		{name: "empty steps", plan: `{"type": "plan", "content": {"steps": []}}`},
		{name: "missing tool", plan: `{"type": "plan", "content": {"steps": [{"step": 1, "input": "x"}]}}`},
		{name: "no content", plan: `{"type": "plan"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llm.NewScriptedMockProvider(tt.plan, answerReply)
			o := newTestOrchestrator(t, provider)
			got := o.Process(context.Background(), "q")

			if got.Type != TypeAnswer || !strings.HasPrefix(got.Content.Message, "Error executing plan: ") {
				t.Fatalf("expected rejected plan answer, got %+v", got.Content)
			}
			if diff := cmp.Diff([]string{"Plan execution failed or did not occur."}, got.Process.ExecutionSummary); diff != "" {
				t.Fatalf("summary mismatch (-want +got):\n%s", diff)
			}
			if provider.CallCount != 1 {
				t.Fatalf("rejected plan must not reach the answer call, got %d calls", provider.CallCount)
			}
		})
	}
}

func TestProcessSynthesisFailureKeepsProcess(t *testing.T) {
	plan := `{"type": "plan", "content": {"steps": [{"step": 1, "tool": "probe-echo", "input": "hi"}]}}`
	provider := llm.NewScriptedMockProvider(plan)
	provider.Errs = []error{nil, stderrors.New("model overloaded")}
	o := newTestOrchestrator(t, provider)
	got := o.Process(context.Background(), "q")

	if !strings.Contains(got.Content.Message, "model overloaded") {
		t.Fatalf("expected synthesis error in message, got %q", got.Content.Message)
	}
	if diff := cmp.Diff([]string{"probe-echo"}, got.Process.ToolsUsed); diff != "" {
		t.Fatalf("execution process should be attached (-want +got):\n%s", diff)
	}
}

func TestCustomSynthesizer(t *testing.T) {
	plan := `{"type": "plan", "content": {"steps": [{"step": 1, "tool": "probe-echo", "input": "hi"}]}}`
	var gotSummary []string
	synth := SynthesizerFunc(func(_ context.Context, query string, summary []string) (Content, error) {
		gotSummary = summary
		return Content{Message: "synth: " + query}, nil
	})
	o := newTestOrchestrator(t, llm.NewScriptedMockProvider(plan), WithSynthesizer(synth))
	got := o.Process(context.Background(), "q")

	if got.Content.Message != "synth: q" {
		t.Fatalf("unexpected message %q", got.Content.Message)
	}
	if len(gotSummary) != 2 || gotSummary[0] != "Plan execution completed successfully." {
		t.Fatalf("unexpected summary %v", gotSummary)
	}
}

func TestTextSynthesizer(t *testing.T) {
	rec := llm.NewRecordingProvider(&llm.MockProvider{Response: "  New Terra is 12 ly away.\n"})
	s := NewTextSynthesizer(rec, "answer-model")
	got, err := s.Synthesize(context.Background(), "How far?", []string{"Plan execution completed successfully."})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.Message != "New Terra is 12 ly away." {
		t.Fatalf("unexpected message %q", got.Message)
	}
	req := rec.Requests()[0]
	if req.Model != "answer-model" || !strings.Contains(req.Messages[0].Content, "Question: How far?") {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestPredictUsesFirstMessage(t *testing.T) {
	rec := llm.NewRecordingProvider(llm.NewScriptedMockProvider(answerReply))
	o := newTestOrchestrator(t, rec)
	o.Predict(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleUser, Content: "second"},
	})
	if got := rec.Requests()[0].Messages[1].Content; got != "first" {
		t.Fatalf("expected first message as query, got %q", got)
	}
}

func TestProcessConcurrentTurns(t *testing.T) {
	provider := llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: answerReply}, nil
	})
	o := newTestOrchestrator(t, provider)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := o.Process(context.Background(), "q"); got.Content.Message != "Paris." {
				t.Errorf("unexpected message %q", got.Content.Message)
			}
		}()
	}
	wg.Wait()
}
