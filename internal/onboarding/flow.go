package onboarding

import (
	"context"
	"sync"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/common/metrics"
)

// Phase is the controller lifecycle state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FinalizeMode selects the durable persistence strategy.
type FinalizeMode string

const (
	FinalizeAggregate   FinalizeMode = "aggregate"
	FinalizePerQuestion FinalizeMode = "per_question"
)

// Controller is the onboarding state machine: it owns the current-question
// pointer and the in-memory answer bag for one user session. It is the sole
// mutator of the bag; durable writes happen only through explicit Finalize
// and the optional legacy autosave.
type Controller struct {
	mu      sync.Mutex
	phase   Phase
	current string
	answers AnswerBag

	cfg      *Config
	loader   *Loader
	store    *AnswerStore
	startID  string
	maxHops  int
	autosave bool
	log      logger.Logger
}

type ControllerOptions struct {
	StartID  string
	MaxHops  int // resume-walk hop bound; cycle guard, not a timeout
	Autosave bool
}

func NewController(loader *Loader, store *AnswerStore, opts ControllerOptions, log logger.Logger) *Controller {
	if opts.MaxHops <= 0 {
		opts.MaxHops = 100
	}
	return &Controller{
		phase:    PhaseLoading,
		answers:  AnswerBag{},
		loader:   loader,
		store:    store,
		startID:  opts.StartID,
		maxHops:  opts.MaxHops,
		autosave: opts.Autosave,
		log:      log.WithFields(map[string]interface{}{"component": "onboarding.flow"}),
	}
}

// Start loads the config and previously persisted answers, computes the
// resume point and enters Ready. A config failure is terminal for the
// session; an answer-history failure is not, the session starts empty.
func (c *Controller) Start(ctx context.Context) error {
	cfg, err := c.loader.Load(ctx)
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseFailed
		c.mu.Unlock()
		return err
	}

	bag, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("answer history unavailable, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		bag = AnswerBag{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.answers = bag
	c.current = c.computeResumeID()
	c.phase = PhaseReady
	metrics.OnboardingSessionsStarted.Inc()

	c.log.Info("onboarding session ready", map[string]interface{}{
		"resumeId":      c.current,
		"knownAnswers":  len(bag),
		"configVersion": cfg.Version,
	})
	return nil
}

// Phase returns the controller lifecycle state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// CurrentID returns the question the UI should render; "" once complete.
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentQuestion returns the definition for the current pointer.
func (c *Controller) CurrentQuestion() (QuestionDef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return QuestionDef{}, false
	}
	q, ok := c.cfg.Questions[c.current]
	return q, ok
}

// Answers returns a copy of the in-memory bag.
func (c *Controller) Answers() AnswerBag {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(AnswerBag, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

// SetLocalAnswer stores one answer in the in-memory bag. No durable write
// unless the legacy autosave mode is on. A no-op outside Ready.
func (c *Controller) SetLocalAnswer(ctx context.Context, id string, value interface{}) {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return
	}
	c.answers[id] = value
	c.mu.Unlock()

	if c.autosave {
		if err := c.store.Autosave(ctx, id, value); err != nil {
			c.log.Warn("autosave failed", map[string]interface{}{
				"questionId": id,
				"error":      err.Error(),
			})
		}
	}
}

// GoNextFrom advances the pointer from id using the router. done reports that
// the flow finished; finalization stays a separate, caller-triggered step.
//
// Calls are serialized, and a submission whose id no longer matches the
// pointer (a rapid double-tap of "next": the first call already advanced) is
// dropped rather than advancing past a node.
func (c *Controller) GoNextFrom(id string) (next string, done bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseReady {
		return "", false, apperrors.NewFlowNotReadyError("next before flow ready")
	}
	if id != c.current {
		return c.current, false, nil
	}

	nextID, ok := c.advanceFrom(id)
	if !ok {
		c.current = ""
		c.phase = PhaseComplete
		metrics.OnboardingSessionsCompleted.Inc()
		return "", true, nil
	}
	c.current = nextID
	return nextID, false, nil
}

// JumpTo moves the pointer directly, bypassing routing. Used by the
// edit-from-summary UX so editing an answered question does not re-trigger
// routing until the user advances again.
func (c *Controller) JumpTo(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady && c.phase != PhaseComplete {
		return apperrors.NewFlowNotReadyError("jump before flow ready")
	}
	c.current = id
	c.phase = PhaseReady
	return nil
}

// Finalize commits the bag durably. The in-memory state is untouched on
// failure, so a retry resubmits the identical payload.
func (c *Controller) Finalize(ctx context.Context, mode FinalizeMode) error {
	c.mu.Lock()
	bag := make(AnswerBag, len(c.answers))
	for k, v := range c.answers {
		bag[k] = v
	}
	cfg := c.cfg
	c.mu.Unlock()

	if cfg == nil {
		return apperrors.NewFlowNotReadyError("finalize before flow ready")
	}

	switch mode {
	case FinalizePerQuestion:
		return c.store.FinalizePerQuestion(ctx, bag, cfg)
	default:
		return c.store.FinalizeAggregate(ctx, bag)
	}
}

// advanceFrom computes the next renderable question after id. Ids absent from
// the question map are pass-through nodes: skipped silently, never an error.
// Bounded by maxHops as a cycle guard.
func (c *Controller) advanceFrom(id string) (string, bool) {
	current := id
	for hops := 0; hops < c.maxHops; hops++ {
		next, ok := NextID(current, c.cfg, c.answers)
		if !ok {
			return "", false
		}
		if _, known := c.cfg.Questions[next]; known {
			return next, true
		}
		c.log.Warn("routing target missing from question map, skipping", map[string]interface{}{
			"from": current,
			"to":   next,
		})
		current = next
	}
	return "", false
}

// computeResumeID walks already-answered questions forward through the router
// and stops at the first unanswered one. On exceeding the hop bound (a cycle
// in the routing graph, or stored answers inconsistent with a changed config)
// it falls back to the start id.
func (c *Controller) computeResumeID() string {
	current := c.startID
	for hops := 0; hops < c.maxHops; hops++ {
		if _, answered := c.answers[current]; !answered {
			return current
		}
		next, ok := NextID(current, c.cfg, c.answers)
		if !ok {
			// Everything on the path is answered; resume at the last node.
			return current
		}
		if _, answered := c.answers[next]; !answered {
			return next
		}
		current = next
	}
	c.log.Warn("resume walk exceeded hop bound, resuming at start", map[string]interface{}{
		"startId": c.startID,
		"maxHops": c.maxHops,
	})
	return c.startID
}
