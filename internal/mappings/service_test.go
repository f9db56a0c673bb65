package mappings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/llm"
)

const safeVerdict = `{"is_safe_for_processing": true, "safety_flags": [], "pii_detections": []}`

type scriptedReply struct {
	raw string
	err error
}

// scriptedClient returns canned replies in order, one per GenerateJSON call.
type scriptedClient struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   int
}

func (c *scriptedClient) GenerateJSON(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.replies) {
		return "", fmt.Errorf("unexpected call %d", c.calls+1)
	}
	reply := c.replies[c.calls]
	c.calls++
	return reply.raw, reply.err
}

// blockingClient holds its first call open until release is closed,
// then returns the canned reply. Later calls fail.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
	first   scriptedReply
	mu      sync.Mutex
	calls   int
}

func (c *blockingClient) GenerateJSON(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()
	if n > 0 {
		return "", fmt.Errorf("unexpected call %d", n+1)
	}
	c.started <- struct{}{}
	<-c.release
	return c.first.raw, c.first.err
}

func (c *blockingClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestService(replies ...scriptedReply) *Service {
	return &Service{
		Library:     testFrameworkLibrary(),
		Catalog:     testCatalog(),
		LLM:         &scriptedClient{replies: replies},
		Sessions:    NewStore(),
		Validator:   &Validator{},
		CallTimeout: time.Second,
	}
}

func waitForState(t *testing.T, s *Service, id string, want ...State) *Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		session, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		for _, state := range want {
			if session.State == state {
				return session
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	session, _ := s.Get(context.Background(), id)
	t.Fatalf("session never reached %v, stuck in %q (error %q)", want, session.State, session.ErrorDetail)
	return nil
}

func startInput() StartInput {
	return StartInput{
		RoleID:     "physician_associate",
		Reflection: "I escalated a deteriorating patient to the registrar after recognising the limits of my own competence.",
	}
}

func TestServiceHappyPath(t *testing.T) {
	svc := newTestService(
		scriptedReply{raw: safeVerdict},
		scriptedReply{raw: goodAnalysisJSON},
	)

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.State != StateAwaitingSafety {
		t.Fatalf("initial state = %q", session.State)
	}
	if session.LevelKey != config.LevelGraduate {
		t.Errorf("level defaulted to %q, want graduate", session.LevelKey)
	}

	final := waitForState(t, svc, session.ID, StateComplete, StateFailed, StateHalted)
	if final.State != StateComplete {
		t.Fatalf("final state = %q (error %q)", final.State, final.ErrorDetail)
	}
	if final.Result == nil || len(final.Result.AssessedCompetencies) != 1 {
		t.Fatalf("result = %+v", final.Result)
	}
	if final.Safety == nil || !final.Safety.IsSafeForProcessing {
		t.Fatalf("safety verdict not recorded: %+v", final.Safety)
	}
}

func TestServiceSafetyHalt(t *testing.T) {
	svc := newTestService(scriptedReply{
		raw: `{"is_safe_for_processing": false, "safety_flags": ["USER_DISTRESS_SELF_HARM"], "pii_detections": []}`,
	})

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForState(t, svc, session.ID, StateHalted, StateComplete, StateFailed)
	if final.State != StateHalted {
		t.Fatalf("final state = %q", final.State)
	}
	if final.Result != nil {
		t.Errorf("halted session should carry no result")
	}
	if len(final.Safety.SafetyFlags) != 1 {
		t.Errorf("safety flags = %v", final.Safety.SafetyFlags)
	}
}

func TestServicePIIAcknowledgeFlow(t *testing.T) {
	svc := newTestService(
		scriptedReply{raw: `{"is_safe_for_processing": true, "safety_flags": [], "pii_detections": [{"flag": "full_name_or_title", "text": "Dr Evans", "explanation": "Names a colleague."}]}`},
		scriptedReply{raw: goodAnalysisJSON},
	)

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	paused := waitForState(t, svc, session.ID, StateAwaitingPIIAck, StateComplete, StateFailed)
	if paused.State != StateAwaitingPIIAck {
		t.Fatalf("state = %q, want awaiting_pii_ack", paused.State)
	}
	if len(paused.Safety.PIIDetections) != 1 {
		t.Fatalf("detections = %+v", paused.Safety.PIIDetections)
	}

	if _, err := svc.AcknowledgePII(context.Background(), "req-2", session.ID); err != nil {
		t.Fatalf("AcknowledgePII: %v", err)
	}
	final := waitForState(t, svc, session.ID, StateComplete, StateFailed)
	if final.State != StateComplete {
		t.Fatalf("final state = %q (error %q)", final.State, final.ErrorDetail)
	}

	// A second acknowledgement must be rejected.
	if _, err := svc.AcknowledgePII(context.Background(), "req-3", session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("repeat ack err = %v, want ErrInvalidTransition", err)
	}
}

func TestServiceAckRejectedWhileSafetyPending(t *testing.T) {
	client := &blockingClient{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		first:   scriptedReply{raw: `{"is_safe_for_processing": false, "safety_flags": ["USER_DISTRESS_SELF_HARM"], "pii_detections": []}`},
	}
	svc := &Service{
		Library:     testFrameworkLibrary(),
		Catalog:     testCatalog(),
		LLM:         client,
		Sessions:    NewStore(),
		Validator:   &Validator{},
		CallTimeout: time.Second,
	}

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-client.started:
	case <-time.After(2 * time.Second):
		t.Fatal("safety call never started")
	}

	// The screening verdict is still pending; the acknowledgement must
	// not be allowed to skip ahead to analysis.
	if _, err := svc.AcknowledgePII(context.Background(), "req-2", session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("early ack err = %v, want ErrInvalidTransition", err)
	}
	mid, err := svc.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if mid.State != StateAwaitingSafety {
		t.Fatalf("state after early ack = %q, want awaiting_safety", mid.State)
	}

	close(client.release)
	final := waitForState(t, svc, session.ID, StateHalted, StateComplete, StateFailed)
	if final.State != StateHalted {
		t.Fatalf("final state = %q, want halted", final.State)
	}
	if got := client.callCount(); got != 1 {
		t.Errorf("model calls = %d, analysis must not run on an unsafe reflection", got)
	}
}

func TestServiceTransportFailure(t *testing.T) {
	svc := newTestService(scriptedReply{
		err: &llm.TransportError{Err: errors.New("connection reset")},
	})

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForState(t, svc, session.ID, StateFailed, StateComplete, StateHalted)
	if final.State != StateFailed {
		t.Fatalf("final state = %q", final.State)
	}
	if final.ErrorCode != CodeTransportError {
		t.Errorf("error code = %q", final.ErrorCode)
	}
	if final.ErrorMessage == "" || final.ErrorMessage == final.ErrorDetail {
		t.Errorf("user message should not expose the raw error: %q", final.ErrorMessage)
	}
}

func TestServiceSchemaFailure(t *testing.T) {
	svc := newTestService(
		scriptedReply{raw: safeVerdict},
		scriptedReply{raw: `{"overall_summary": "", "assessed_competencies": []}`},
	)

	session, err := svc.Start(context.Background(), "req-1", startInput())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForState(t, svc, session.ID, StateFailed, StateComplete)
	if final.ErrorCode != CodeSchemaValidationError {
		t.Fatalf("error code = %q (state %q)", final.ErrorCode, final.State)
	}
}

func TestServiceStartValidation(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name string
		in   StartInput
	}{
		{"unknown role", StartInput{RoleID: "plumber", Reflection: startInput().Reflection}},
		{"unknown level", StartInput{RoleID: "physician_associate", LevelKey: "expert", Reflection: startInput().Reflection}},
		{"short reflection", StartInput{RoleID: "physician_associate", Reflection: "too short"}},
		{"framework not allowed", StartInput{RoleID: "physician_associate", FrameworkCodes: []string{"RPS-2021"}, Reflection: startInput().Reflection}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(context.Background(), "req-1", tc.in)
			var badReq *BadRequestError
			if !errors.As(err, &badReq) {
				t.Fatalf("err = %v, want BadRequestError", err)
			}
		})
	}
}
