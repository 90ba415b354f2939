package dialog

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/domain"
	"github.com/maazq/expensebot/internal/session"
)

// introPattern catches self-introductions so greetings can address the
// user by name later.
var introPattern = regexp.MustCompile(`(?i)\b(?:i am|i'm|my name is|this is)\s+([a-zA-Z]+)`)

// Orchestrator sequences one message-processing cycle: fetch context,
// classify, route, execute, render, persist. It holds the user's lock for
// the whole cycle so messages from one user can never race on pending
// state, and it never lets a failure escape to the transport layer.
type Orchestrator struct {
	sessions *session.Store
	oracle   domain.Oracle
	renderer domain.Renderer
	handlers *Handlers
	router   *Router
	log      zerolog.Logger

	historyDepth int
	now          func() time.Time
}

// NewOrchestrator wires the dialogue manager. historyDepth is the number
// of recent turns passed to the oracle as context.
func NewOrchestrator(
	sessions *session.Store,
	oracle domain.Oracle,
	renderer domain.Renderer,
	handlers *Handlers,
	log zerolog.Logger,
	historyDepth int,
) *Orchestrator {
	if historyDepth <= 0 {
		historyDepth = 3
	}
	return &Orchestrator{
		sessions:     sessions,
		oracle:       oracle,
		renderer:     renderer,
		handlers:     handlers,
		router:       NewRouter(),
		log:          log,
		historyDepth: historyDepth,
		now:          time.Now,
	}
}

// WithClock overrides the orchestrator clock.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Reply is the boundary contract exposed upward to the webhook.
type Reply struct {
	Text   string
	Intent domain.Intent
}

// HandleMessage processes one inbound message synchronously and returns
// the rendered response. It always returns something user-facing; every
// internal failure degrades to an apologetic reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string) Reply {
	o.sessions.Lock(userID)
	defer o.sessions.Unlock(userID)

	sess := o.sessions.GetOrCreate(userID)
	pending := o.sessions.Pending(userID)

	if m := introPattern.FindStringSubmatch(text); m != nil {
		o.sessions.SetPreference(userID, "name", m[1])
	}

	history := sess.History()
	if len(history) > o.historyDepth {
		history = history[len(history)-o.historyDepth:]
	}

	ext, err := o.oracle.Extract(ctx, domain.ExtractRequest{
		UserID:  userID,
		Message: text,
		History: history,
		Pending: pending,
	})
	if err != nil || ext == nil {
		// Oracle unavailable: degrade to clarification, touch no state.
		o.log.Warn().Err(err).Str("user_id", userID).Msg("Oracle extraction failed")
		ext = &domain.Extraction{Intent: domain.IntentClarification}
	}

	decision := o.router.Route(userID, text, ext, pending)
	result := o.execute(ctx, userID, text, decision)
	o.persistPending(userID, decision, result)

	reply := o.render(ctx, decision.Intent, result)

	o.sessions.RecordTurn(userID, domain.ConversationTurn{
		Timestamp:   o.now(),
		UserMessage: text,
		BotResponse: reply,
		Intent:      decision.Intent,
		Confidence:  ext.Confidence,
	})

	o.log.Info().
		Str("user_id", userID).
		Str("operation", string(decision.Op)).
		Str("status", string(result.Status)).
		Msg("Message processed")

	return Reply{Text: reply, Intent: decision.Intent}
}

func (o *Orchestrator) execute(ctx context.Context, userID, text string, d *domain.RoutingDecision) *domain.OperationResult {
	switch d.Op {
	case domain.OpLogExpense:
		return o.handlers.LogExpense(ctx, userID, d.Slots)
	case domain.OpLogMultiExpense:
		return o.handlers.LogMultiExpense(ctx, userID, d.Multi)
	case domain.OpQuery:
		return o.handlers.Query(ctx, userID, text)
	case domain.OpTotal:
		return o.handlers.Total(ctx, userID, text)
	case domain.OpGreeting:
		return o.handlers.Greeting(o.sessions.Preference(userID, "name"))
	default:
		return o.handlers.Clarify()
	}
}

// persistPending applies the slot-state transition the handler decided on.
// Rules, in order: a clarification that judged the message unrelated
// clears pending; a logging operation replaces pending with whatever the
// result carries (nil on success, the merged slots on incomplete AND on
// store error, so progress survives a transient failure); every other
// operation leaves pending untouched.
func (o *Orchestrator) persistPending(userID string, d *domain.RoutingDecision, result *domain.OperationResult) {
	if d.ClearPending {
		o.sessions.SetPending(userID, nil)
		return
	}

	if d.Op != domain.OpLogExpense {
		return
	}

	switch result.Status {
	case domain.StatusSuccess:
		o.sessions.SetPending(userID, nil)
	case domain.StatusIncomplete, domain.StatusError:
		if result.Pending != nil {
			o.sessions.SetPending(userID, result.Pending)
		}
	}
}

func (o *Orchestrator) render(ctx context.Context, intent domain.Intent, result *domain.OperationResult) string {
	text, err := o.renderer.Render(ctx, intent, result)
	if err != nil || text == "" {
		if err != nil {
			o.log.Warn().Err(err).Msg("Renderer failed, using deterministic reply")
		}
		text = result.Reply
	}
	if text == "" {
		text = "Sorry, I couldn't process your request. Please try again."
	}
	return text
}
