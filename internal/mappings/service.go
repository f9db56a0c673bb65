package mappings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/frameworks"
	"portfolio-mapper-backend/internal/llm"
	"portfolio-mapper-backend/internal/shared/metrics"
	"portfolio-mapper-backend/internal/shared/telemetry"
)

// BadRequestError marks a client-side validation failure so the handler
// can map it to a 400 instead of a 500.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// Service orchestrates the mapping lifecycle: validation, the safety
// screening call, the PII acknowledgement gate, and the analysis call.
type Service struct {
	Library     frameworks.Library
	Catalog     *config.Catalog
	LLM         llm.Client
	Sessions    *Store
	Validator   *Validator
	CallTimeout time.Duration
}

// StartInput is the request to begin a new mapping session. LevelKey and
// FrameworkCodes are optional; the role supplies defaults.
type StartInput struct {
	RoleID         string
	LevelKey       config.LevelKey
	FrameworkCodes []string
	Reflection     string
}

// Start validates the request, creates a session, and kicks off the
// safety screening in the background. It returns immediately with the
// session in awaiting_safety.
func (s *Service) Start(ctx context.Context, requestID string, in StartInput) (*Session, error) {
	role, ok := s.Catalog.Roles[in.RoleID]
	if !ok {
		return nil, badRequest("unknown role %q", in.RoleID)
	}

	levelKey := in.LevelKey
	if levelKey == "" {
		levelKey = role.DefaultAcademicLevel
	}
	if !config.ValidLevelKey(levelKey) {
		return nil, badRequest("unknown academic level %q", in.LevelKey)
	}

	reflection := strings.TrimSpace(in.Reflection)
	if len(reflection) < s.Catalog.App.MinReflectionLength {
		return nil, badRequest("reflection must be at least %d characters", s.Catalog.App.MinReflectionLength)
	}

	allowed := frameworks.ResolveAllowed(role.DisplayName, role.AllowedFrameworkCodes, s.Library)
	selected := in.FrameworkCodes
	if len(selected) == 0 {
		selected = frameworks.SortedCodes(allowed)
	}
	for _, code := range selected {
		if _, ok := allowed[code]; !ok {
			return nil, badRequest("framework %q is not available for role %q", code, in.RoleID)
		}
	}
	required := frameworks.ResolveRequired(selected, s.Library)

	now := time.Now().UTC()
	session := &Session{
		ID:             uuid.NewString(),
		RoleID:         in.RoleID,
		LevelKey:       levelKey,
		FrameworkCodes: required,
		ReflectionText: reflection,
		State:          StateIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	session, err := s.Sessions.Transition(ctx, session.ID, StateAwaitingSafety, nil)
	if err != nil {
		return nil, err
	}

	metrics.IncMappingStarted()
	telemetry.Info("mapping.started", map[string]any{
		"requestId":  requestID,
		"mappingId":  session.ID,
		"role":       in.RoleID,
		"level":      string(levelKey),
		"frameworks": required,
	})

	go s.runSafety(requestID, session.ID)
	return session, nil
}

// Get returns a copy of the session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.Sessions.Get(ctx, id)
}

// AcknowledgePII resumes a session paused on detected personal
// information and kicks off the analysis call in the background. The
// session must already hold a screening verdict: an acknowledgement
// sent while the safety call is still in flight is rejected rather
// than allowed to skip the verdict.
func (s *Service) AcknowledgePII(ctx context.Context, requestID, id string) (*Session, error) {
	session, err := s.Sessions.TransitionFrom(ctx, id, StateAwaitingPIIAck, StateRunningAnalysis, nil)
	if err != nil {
		return nil, err
	}
	telemetry.Info("mapping.pii_acknowledged", map[string]any{
		"requestId": requestID,
		"mappingId": id,
	})
	go s.runAnalysis(requestID, id)
	return session, nil
}

func (s *Service) runSafety(requestID, id string) {
	ctx := context.Background()
	session, err := s.Sessions.Get(ctx, id)
	if err != nil {
		telemetry.Error("mapping.safety.load", map[string]any{"requestId": requestID, "mappingId": id, "error": err.Error()})
		return
	}

	prompt, err := AssembleSafetyPrompt(session.ReflectionText, s.Catalog.Prompts[config.PromptSafetyCheck])
	if err != nil {
		s.fail(requestID, id, err)
		return
	}
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		s.fail(requestID, id, err)
		return
	}
	safety, err := s.Validator.Safety(raw)
	if err != nil {
		s.fail(requestID, id, err)
		return
	}

	switch {
	case !safety.IsSafeForProcessing:
		_, err = s.Sessions.Transition(ctx, id, StateHalted, func(sess *Session) {
			sess.Safety = safety
		})
		if err == nil {
			metrics.IncMappingHalted()
			telemetry.Warn("mapping.halted", map[string]any{
				"requestId": requestID,
				"mappingId": id,
				"flags":     safety.SafetyFlags,
			})
		}
	case len(safety.PIIDetections) > 0:
		_, err = s.Sessions.Transition(ctx, id, StateAwaitingPIIAck, func(sess *Session) {
			sess.Safety = safety
		})
		if err == nil {
			telemetry.Info("mapping.pii_detected", map[string]any{
				"requestId":  requestID,
				"mappingId":  id,
				"detections": len(safety.PIIDetections),
			})
		}
	default:
		_, err = s.Sessions.Transition(ctx, id, StateRunningAnalysis, func(sess *Session) {
			sess.Safety = safety
		})
		if err == nil {
			s.runAnalysis(requestID, id)
		}
	}
	if err != nil {
		telemetry.Error("mapping.safety.transition", map[string]any{"requestId": requestID, "mappingId": id, "error": err.Error()})
	}
}

func (s *Service) runAnalysis(requestID, id string) {
	ctx := context.Background()
	session, err := s.Sessions.Get(ctx, id)
	if err != nil {
		telemetry.Error("mapping.analysis.load", map[string]any{"requestId": requestID, "mappingId": id, "error": err.Error()})
		return
	}

	selected := make(map[string]*frameworks.FrameworkFile, len(session.FrameworkCodes))
	for _, code := range session.FrameworkCodes {
		fw, ok := s.Library[code]
		if !ok {
			s.fail(requestID, id, fmt.Errorf("framework %q missing from library", code))
			return
		}
		selected[code] = fw
	}

	prompt, err := AssembleAnalysisPrompt(AnalysisPromptInput{
		Role:       s.Catalog.Roles[session.RoleID],
		Level:      s.Catalog.Levels[session.LevelKey],
		LevelKey:   session.LevelKey,
		Reflection: session.ReflectionText,
		Frameworks: selected,
		Prompt:     s.Catalog.Prompts[config.PromptPortfolioAnalysis],
		Catalog:    s.Catalog,
		DebugMode:  s.Catalog.App.DebugMode,
	})
	if err != nil {
		s.fail(requestID, id, err)
		return
	}
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		s.fail(requestID, id, err)
		return
	}
	result, err := s.Validator.Analysis(raw)
	if err != nil {
		s.fail(requestID, id, err)
		return
	}

	updated, err := s.Sessions.Transition(ctx, id, StateComplete, func(sess *Session) {
		sess.Result = result
	})
	if err != nil {
		telemetry.Error("mapping.analysis.transition", map[string]any{"requestId": requestID, "mappingId": id, "error": err.Error()})
		return
	}
	metrics.IncMappingCompleted()
	metrics.ObserveMappingDurationMs(metrics.ElapsedMs(updated.CreatedAt))
	telemetry.Info("mapping.complete", map[string]any{
		"requestId":    requestID,
		"mappingId":    id,
		"competencies": len(result.AssessedCompetencies),
	})
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.LLM == nil {
		return "", &llm.TransportError{Err: errors.New("no model client configured")}
	}
	callCtx := ctx
	if s.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		defer cancel()
	}
	gen := s.Catalog.Gemini.Generation
	return s.LLM.GenerateJSON(callCtx, prompt, llm.GenerationConfig{
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
		TopK:        gen.TopK,
	})
}

// fail moves a session to failed with a user-safe message and a stable
// code; the raw error stays server-side in ErrorDetail.
func (s *Service) fail(requestID, id string, cause error) {
	code := CodeInternalError
	message := "An unexpected error occurred during analysis."

	var parseErr *ParseError
	var schemaErr *SchemaError
	switch {
	case llm.IsTransport(cause):
		code = CodeTransportError
		message = "The analysis service could not be reached. Please try again."
	case errors.As(cause, &parseErr):
		code = CodeParseError
		message = "The analysis service returned an unreadable response. Please try again."
	case errors.As(cause, &schemaErr):
		code = CodeSchemaValidationError
		message = "The analysis service returned an unexpected response. Please try again."
	}

	_, err := s.Sessions.Transition(context.Background(), id, StateFailed, func(sess *Session) {
		sess.ErrorCode = code
		sess.ErrorMessage = message
		sess.ErrorDetail = cause.Error()
	})
	if err != nil {
		telemetry.Error("mapping.fail.transition", map[string]any{"requestId": requestID, "mappingId": id, "error": err.Error()})
		return
	}
	metrics.IncMappingFailed()
	telemetry.Error("mapping.failed", map[string]any{
		"requestId": requestID,
		"mappingId": id,
		"code":      code,
		"error":     cause.Error(),
	})
}
