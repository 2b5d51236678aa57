// Package engine implements the narration controller: the single dispatch
// loop that owns the player, the recognizer and the loaded recipe, and
// keeps speech output and command listening from ever overlapping.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/ottoread/internal/conversation"
	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
	"github.com/hammamikhairi/ottoread/internal/metrics"
	"github.com/hammamikhairi/ottoread/internal/narration"
	"github.com/hammamikhairi/ottoread/internal/recipe"
	"github.com/hammamikhairi/ottoread/internal/voice"
)

// Option configures the engine.
type Option func(*Engine)

// WithNotifier sets where one-shot user messages go.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMicrophone sets the microphone grant the recognizer acquires.
func WithMicrophone(mic domain.Microphone) Option {
	return func(e *Engine) {
		e.mic = mic
	}
}

// WithPrompt overrides the prompt spoken after every segment.
func WithPrompt(text string) Option {
	return func(e *Engine) {
		e.prompt = text
	}
}

// WithRules replaces the command keyword table.
func WithRules(rules ...conversation.Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithStatusHook registers a function called with every published status.
// It runs on the dispatch goroutine and must not block.
func WithStatusHook(fn func(domain.Status)) Option {
	return func(e *Engine) {
		e.onStatus = fn
	}
}

// Engine is the narration controller. Every state change happens on the
// goroutine running Run; exported methods post work onto the same queue
// and wait for it.
type Engine struct {
	queue    *Queue
	recipes  domain.RecipeSource
	synth    domain.Synthesizer
	log      *logger.Logger
	notifier domain.Notifier
	metrics  *metrics.Metrics
	mic      domain.Microphone
	prompt   string
	rules    []conversation.Rule
	onStatus func(domain.Status)

	catalog    *voice.Catalog
	rate       *voice.Rate
	router     *conversation.Router
	player     *narration.Player
	recognizer *narration.Recognizer

	// Owned by the dispatch goroutine.
	recipe   *domain.Recipe
	segments []string
	session  *domain.Session
	reported map[string]bool

	status   atomic.Pointer[domain.Status]
	running  atomic.Bool
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a narration engine. recognition may be nil when the runtime
// has no speech recognition; the engine then runs in speech-output-only
// mode.
func New(queue *Queue, recipes domain.RecipeSource, synth domain.Synthesizer, recognition domain.RecognitionCapability, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		queue:    queue,
		recipes:  recipes,
		synth:    synth,
		log:      log,
		prompt:   narration.DefaultPrompt,
		rules:    conversation.DefaultRules,
		reported: make(map[string]bool),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.catalog = voice.NewCatalog(log.Named("voices"))
	e.rate = voice.NewRate()
	e.router = conversation.NewRouter(log.Named("router"), conversation.WithRules(e.rules...))

	e.player = narration.NewPlayer(synth, e.rate, e.catalog, log.Named("player"),
		narration.WithPrompt(e.prompt),
		narration.WithDispatchHook(e.onDispatch),
	)

	var recOpts []narration.RecognizerOption
	if e.mic != nil {
		recOpts = append(recOpts, narration.WithMicrophone(e.mic))
	}
	recOpts = append(recOpts, narration.WithRestartHook(e.onRestart))
	e.recognizer = narration.NewRecognizer(recognition, log.Named("recognizer"), recOpts...)

	e.publish()
	return e
}

// ── Loop ──

// request is a unit of work posted by an exported method.
type request struct {
	fn   func(ctx context.Context) error
	done chan error
}

func (request) EventName() string { return "request" }

// Emit posts a capability event onto the dispatch queue.
func (e *Engine) Emit(ev domain.Event) {
	e.queue.Emit(ev)
}

// Run starts listening and processes events until ctx is cancelled or the
// engine is closed. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return domain.ErrAlreadyStarted
	}
	defer e.stopOnce.Do(func() { close(e.stopped) })

	e.log.Info("engine: started")
	e.startListening(ctx)
	e.publish()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.queue.done:
			e.shutdown()
			return nil
		case ev := <-e.queue.ch:
			e.handle(ctx, ev)
			e.publish()
		}
	}
}

// Close stops the loop, silences speech and releases the microphone.
func (e *Engine) Close() {
	e.queue.Close()
	if e.running.Load() {
		<-e.stopped
	}
}

// do runs fn on the dispatch goroutine and returns its error.
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	if !e.queue.post(req) {
		return domain.ErrEngineStopped
	}
	select {
	case err := <-req.done:
		return err
	case <-e.stopped:
		return domain.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) handle(ctx context.Context, ev domain.Event) {
	switch ev := ev.(type) {
	case request:
		err := ev.fn(ctx)
		e.publish()
		ev.done <- err

	case domain.PhraseRecognized:
		text, ok := e.recognizer.HandlePhrase(ev)
		if !ok {
			return
		}
		e.log.Debug("engine: heard %q", text)
		e.dispatch(ctx, e.router.Route(conversation.Normalize(text)))

	case domain.UtteranceEnded:
		if e.player.HandleUtteranceEnd(ev.ID) {
			e.startListening(ctx)
		}

	case domain.RecognitionFailed:
		if e.metrics != nil {
			e.metrics.RecognitionErrors.WithLabelValues(ev.Code).Inc()
		}
		if err := e.recognizer.HandleError(ev.Code); err != nil {
			e.reportOnce(ctx, err)
		}

	case domain.RecognitionEnded:
		if err := e.recognizer.HandleEnd(); err != nil {
			e.reportOnce(ctx, err)
		}

	case domain.VoicesChanged:
		e.catalog.Refresh(ev.Voices)

	default:
		e.log.Warn("engine: unhandled event %s", ev.EventName())
	}
}

func (e *Engine) shutdown() {
	e.player.Stop()
	e.recognizer.Close()
	e.endSession()
	e.publish()
	e.log.Info("engine: stopped")
}

// ── Commands ──

func (e *Engine) dispatch(ctx context.Context, cmd domain.Command) {
	if cmd == domain.CommandNone {
		e.log.Debug("engine: no command matched")
		return
	}
	if e.metrics != nil {
		e.metrics.Commands.WithLabelValues(cmd.String()).Inc()
	}
	e.log.Info("engine: command %s", cmd)

	switch cmd {
	case domain.CommandPlay:
		e.recognizer.Stop()
		if err := e.play(ctx); err != nil {
			e.notify(ctx, "Load a recipe before saying play.")
		}

	case domain.CommandStop:
		e.player.Stop()
		e.recognizer.Stop()
		e.endSession()
		return

	case domain.CommandContinue, domain.CommandRepeat, domain.CommandStartOver:
		if e.session == nil {
			e.log.Debug("engine: %s ignored, nothing is playing", cmd)
			return
		}
		e.recognizer.Stop()
		switch cmd {
		case domain.CommandContinue:
			e.player.Advance()
		case domain.CommandRepeat:
			e.player.Repeat()
		case domain.CommandStartOver:
			if err := e.player.Restart(); err != nil {
				e.log.Warn("engine: start over: %v", err)
			}
		}
	}

	// Nothing was spoken (narration finished or nothing to repeat): keep
	// listening so the user can still say play or start over.
	if e.player.State() == domain.PlayerIdle {
		e.startListening(ctx)
	}
}

// play starts a new narration session from the first segment.
func (e *Engine) play(ctx context.Context) error {
	if len(e.segments) == 0 {
		return domain.ErrNoRecipe
	}

	e.session = &domain.Session{
		ID:        newSessionID(),
		RecipeID:  e.recipe.ID,
		Segments:  e.segments,
		StartedAt: time.Now(),
	}
	e.log.Info("engine: session %s started for %q (%d segments)", e.session.ID, e.recipe.Name, len(e.segments))

	e.prefetch(ctx)
	return e.player.Play(0)
}

func (e *Engine) endSession() {
	if e.session == nil {
		return
	}
	e.log.Info("engine: session %s ended at segment %d/%d", e.session.ID, e.player.Cursor()+1, e.player.Len())
	e.session = nil
}

func (e *Engine) prefetch(ctx context.Context) {
	p, ok := e.synth.(domain.Prefetcher)
	if !ok {
		return
	}
	var voiceID string
	if v, ok := e.catalog.Selected(); ok {
		voiceID = v.ID
	}
	texts := append(append([]string(nil), e.segments...), e.prompt)
	p.Prefetch(ctx, voiceID, e.rate.Value(), texts...)
}

func (e *Engine) startListening(ctx context.Context) {
	if err := e.recognizer.Start(ctx); err != nil {
		e.reportOnce(ctx, err)
	}
}

// ── Notifications ──

// reportOnce tells the user about a recognition failure the first time
// each kind occurs.
func (e *Engine) reportOnce(ctx context.Context, err error) {
	kind, msg := describe(err)
	if e.reported[kind] {
		e.log.Debug("engine: %s already reported: %v", kind, err)
		return
	}
	e.reported[kind] = true
	e.log.Warn("engine: %v", err)

	if e.notifier == nil {
		return
	}
	if nerr := e.notifier.NotifyUrgent(ctx, msg); nerr != nil {
		e.log.Error("engine: notify: %v", nerr)
	}
}

func (e *Engine) notify(ctx context.Context, msg string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, msg); err != nil {
		e.log.Error("engine: notify: %v", err)
	}
}

func describe(err error) (kind, msg string) {
	var rerr *domain.RecognitionError
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission", "Microphone access was denied. Voice commands are off; use the typed commands instead."
	case errors.Is(err, domain.ErrRecognitionUnsupported):
		return "unsupported", "Speech recognition is not available. Voice commands are off; use the typed commands instead."
	case errors.As(err, &rerr):
		return rerr.Code, fmt.Sprintf("Voice commands paused (%s). They resume after the next prompt.", rerr.Code)
	default:
		return "recognition", fmt.Sprintf("Voice commands paused: %v", err)
	}
}

// ── Hooks ──

func (e *Engine) onDispatch(u domain.Utterance) {
	if e.metrics != nil {
		e.metrics.Utterances.WithLabelValues(u.Kind.String()).Inc()
	}
}

func (e *Engine) onRestart() {
	if e.metrics != nil {
		e.metrics.RecognizerRestarts.Inc()
	}
}

// ── Status ──

func (e *Engine) publish() {
	st := domain.Status{
		Rate:        e.rate.Value(),
		Recognition: e.recognizer.State(),
		VoiceInput:  e.recognizer.Disabled() == nil,
		Player:      e.player.State(),
		Cursor:      e.player.Cursor(),
		Total:       e.player.Len(),
		Voices:      e.catalog.Voices(),
	}
	if v, ok := e.catalog.Selected(); ok {
		st.Voice = v.Name
	}
	if e.recipe != nil {
		st.RecipeName = e.recipe.Name
		st.Categories = append([]string(nil), e.recipe.Categories...)
	}
	if e.session != nil {
		st.SessionID = e.session.ID
	}
	e.status.Store(&st)

	if e.metrics != nil {
		e.metrics.Rate.Set(st.Rate)
		e.metrics.PlayerState.Set(float64(st.Player))
	}
	if e.onStatus != nil {
		e.onStatus(st)
	}
}

// Status returns the most recently published status snapshot.
func (e *Engine) Status() domain.Status {
	if st := e.status.Load(); st != nil {
		return *st
	}
	return domain.Status{Rate: voice.DefaultRate}
}

// ── Operations ──

// LoadRecipe fetches a recipe and builds its segments. A running
// narration is stopped. Fetch failures are returned and leave the
// previous recipe in place.
func (e *Engine) LoadRecipe(ctx context.Context, id string) error {
	start := time.Now()
	r, err := e.recipes.Get(ctx, id)
	if err != nil {
		e.observeFetch("error", start)
		return fmt.Errorf("loading recipe %s: %w", id, err)
	}

	cats, err := e.recipes.Categories(ctx, id)
	if err != nil {
		e.log.Warn("engine: categories of %s: %v", id, err)
	}
	r.Categories = cats
	e.observeFetch("ok", start)

	segs := recipe.Segments(r)
	if len(segs) == 0 {
		return fmt.Errorf("loading recipe %s: %w", id, domain.ErrNoSegments)
	}

	return e.do(ctx, func(ctx context.Context) error {
		e.install(ctx, r, segs)
		return nil
	})
}

// install replaces the loaded recipe, ending any running session.
func (e *Engine) install(ctx context.Context, r *domain.Recipe, segs []string) {
	e.player.Stop()
	e.endSession()

	e.recipe = r
	e.segments = segs
	e.player.Load(segs)
	e.log.Info("engine: loaded %q by %s (%d segments)", r.Name, r.Chef, len(segs))

	e.startListening(ctx)
}

// PlayRecipe starts narrating the loaded recipe from the beginning.
func (e *Engine) PlayRecipe(ctx context.Context) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.recognizer.Stop()
		if err := e.play(ctx); err != nil {
			e.startListening(ctx)
			return err
		}
		return nil
	})
}

// StopNarration cancels narration and listening.
func (e *Engine) StopNarration(ctx context.Context) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.dispatch(ctx, domain.CommandStop)
		return nil
	})
}

// HandleInput routes typed text through the command table. It returns the
// command that was dispatched.
func (e *Engine) HandleInput(ctx context.Context, text string) (domain.Command, error) {
	cmd := e.router.Route(text)
	err := e.do(ctx, func(ctx context.Context) error {
		e.dispatch(ctx, cmd)
		return nil
	})
	return cmd, err
}

// IncreaseRate raises the speech rate by one step and returns it.
func (e *Engine) IncreaseRate(ctx context.Context) (float64, error) {
	var v float64
	err := e.do(ctx, func(context.Context) error {
		v = e.rate.Increase()
		e.log.Info("engine: rate %.1f", v)
		return nil
	})
	return v, err
}

// DecreaseRate lowers the speech rate by one step and returns it.
func (e *Engine) DecreaseRate(ctx context.Context) (float64, error) {
	var v float64
	err := e.do(ctx, func(context.Context) error {
		v = e.rate.Decrease()
		e.log.Info("engine: rate %.1f", v)
		return nil
	})
	return v, err
}

// SelectVoice picks the voice for the next utterance. The result is false
// when no voices are known (or the engine is not running).
func (e *Engine) SelectVoice(ctx context.Context, locale, genderHint string) (domain.Voice, bool) {
	var (
		v  domain.Voice
		ok bool
	)
	if err := e.do(ctx, func(context.Context) error {
		v, ok = e.catalog.Select(locale, genderHint)
		return nil
	}); err != nil {
		return domain.Voice{}, false
	}
	return v, ok
}

// ListRecipes returns what the recipe source offers.
func (e *Engine) ListRecipes(ctx context.Context) ([]domain.RecipeSummary, error) {
	return e.recipes.List(ctx)
}

func (e *Engine) observeFetch(result string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecipeFetch.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}
