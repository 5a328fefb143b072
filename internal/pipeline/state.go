package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State is a stage of one analysis request.
type State string

const (
	StateIdle        State = "idle"
	StateNormalizing State = "normalizing"
	StateDetecting   State = "detecting"
	StateAggregating State = "aggregating"
	StateAugmenting  State = "augmenting"
	StateDegraded    State = "degraded"
	StateComplete    State = "complete"
)

// StateDefinition lists the states reachable from a state.
type StateDefinition struct {
	Name State
	Next []State
}

// StateRegistry is the request state machine.
var StateRegistry = map[State]StateDefinition{
	StateIdle:        {Name: StateIdle, Next: []State{StateNormalizing}},
	StateNormalizing: {Name: StateNormalizing, Next: []State{StateDetecting}},
	StateDetecting:   {Name: StateDetecting, Next: []State{StateAggregating}},
	StateAggregating: {Name: StateAggregating, Next: []State{StateAugmenting, StateComplete}},
	StateAugmenting:  {Name: StateAugmenting, Next: []State{StateDegraded, StateComplete}},
	StateDegraded:    {Name: StateDegraded, Next: []State{StateComplete}},
	StateComplete:    {Name: StateComplete},
}

// CanTransition reports whether to may follow s.
func (s State) CanTransition(to State) bool {
	def, ok := StateRegistry[s]
	if !ok {
		return false
	}
	for _, next := range def.Next {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a request.
func (s State) Terminal() bool {
	return len(StateRegistry[s].Next) == 0
}

// Transition is reported to Options.OnTransition on every state change.
type Transition struct {
	RequestID string    `json:"request_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	// Reason is set when entering StateDegraded.
	Reason string `json:"reason,omitempty"`
}

// TransitionFunc observes state changes.
type TransitionFunc func(Transition)

// tracker drives one request through the state machine, opening a span per
// state under the request span.
type tracker struct {
	requestID string
	state     State
	now       func() time.Time
	notify    TransitionFunc
	logger    *zap.Logger
	tracer    trace.Tracer

	ctx  context.Context // request span context
	span trace.Span      // current state span
}

func newTracker(ctx context.Context, requestID string, e *Engine) *tracker {
	return &tracker{
		requestID: requestID,
		state:     StateIdle,
		now:       e.now,
		notify:    e.opts.OnTransition,
		logger:    e.logger,
		tracer:    e.tracer,
		ctx:       ctx,
	}
}

// to moves to next. Moving to the current state is a no-op.
func (t *tracker) to(next State, reason string) error {
	if next == t.state {
		return nil
	}
	if !t.state.CanTransition(next) {
		return &TransitionError{From: t.state, To: next}
	}

	tr := Transition{RequestID: t.requestID, From: t.state, To: next, At: t.now(), Reason: reason}
	if t.span != nil {
		t.span.End()
	}
	t.state = next
	if !next.Terminal() {
		_, t.span = t.tracer.Start(t.ctx, "ats."+string(next),
			trace.WithAttributes(attribute.String("ats.request_id", t.requestID)))
		if reason != "" {
			t.span.SetAttributes(attribute.String("ats.degraded_reason", reason))
		}
	} else {
		t.span = nil
	}

	t.logger.Debug("state transition",
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("reason", reason),
	)
	if t.notify != nil {
		t.notify(tr)
	}
	return nil
}

// fail ends the current state span with err.
func (t *tracker) fail(err error) {
	if t.span == nil {
		return
	}
	t.span.RecordError(err)
	t.span.SetStatus(codes.Error, err.Error())
	t.span.End()
	t.span = nil
}
