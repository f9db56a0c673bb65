package mappings

import (
	"context"
	"sync"
	"time"

	"portfolio-mapper-backend/internal/config"
)

// State is the lifecycle stage of a mapping session.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingSafety  State = "awaiting_safety"
	StateAwaitingPIIAck  State = "awaiting_pii_ack"
	StateRunningAnalysis State = "running_analysis"
	StateComplete        State = "complete"
	StateHalted          State = "halted"
	StateFailed          State = "failed"
)

// validTransitions is the full lifecycle graph. Terminal states have no
// outgoing edges.
var validTransitions = map[State][]State{
	StateIdle:            {StateAwaitingSafety},
	StateAwaitingSafety:  {StateAwaitingPIIAck, StateRunningAnalysis, StateHalted, StateFailed},
	StateAwaitingPIIAck:  {StateRunningAnalysis, StateFailed},
	StateRunningAnalysis: {StateComplete, StateFailed},
}

func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is one end-to-end mapping run for a single reflection.
type Session struct {
	ID             string          `json:"id"`
	RoleID         string          `json:"roleId"`
	LevelKey       config.LevelKey `json:"levelKey"`
	FrameworkCodes []string        `json:"frameworkCodes"`
	ReflectionText string          `json:"-"`
	State          State           `json:"state"`
	Safety         *SafetyAnalysis `json:"safety,omitempty"`
	Result         *AnalysisResult `json:"result,omitempty"`
	ErrorCode      string          `json:"errorCode,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	ErrorDetail    string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (s *Session) clone() *Session {
	dup := *s
	dup.FrameworkCodes = append([]string(nil), s.FrameworkCodes...)
	if s.Safety != nil {
		safety := *s.Safety
		safety.SafetyFlags = append([]string(nil), s.Safety.SafetyFlags...)
		safety.PIIDetections = append([]PIIDetection(nil), s.Safety.PIIDetections...)
		dup.Safety = &safety
	}
	if s.Result != nil {
		result := *s.Result
		result.AssessedCompetencies = append([]AssessedCompetency(nil), s.Result.AssessedCompetencies...)
		dup.Result = &result
	}
	return &dup
}

// Store is an in-memory session repository guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create stores a new session. The stored copy is detached from the
// caller's pointer.
func (st *Store) Create(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s.clone()
	return nil
}

// Get returns a copy of the session or ErrNotFound.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Transition moves a session into a new state, applying mutate under the
// store lock before the state check commits. Returns the updated copy.
func (st *Store) Transition(ctx context.Context, id string, to State, mutate func(*Session)) (*Session, error) {
	return st.transition(ctx, id, "", to, mutate)
}

// TransitionFrom is Transition with the added requirement that the
// session currently be in from. Use it when the edge is only legal in
// response to a specific prior state, such as the PII acknowledgement.
func (st *Store) TransitionFrom(ctx context.Context, id string, from, to State, mutate func(*Session)) (*Session, error) {
	return st.transition(ctx, id, from, to, mutate)
}

func (st *Store) transition(ctx context.Context, id string, from, to State, mutate func(*Session)) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if from != "" && s.State != from {
		return nil, ErrInvalidTransition
	}
	if !canTransition(s.State, to) {
		return nil, ErrInvalidTransition
	}
	if mutate != nil {
		mutate(s)
	}
	s.State = to
	s.UpdatedAt = time.Now().UTC()
	return s.clone(), nil
}
