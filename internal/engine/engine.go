// Package engine runs glossary extraction. It filters the corpus, splits the
// backlog into chunks, fans the chunks out to the model in rounds, and
// consolidates the candidates once the backlog is empty or the round budget
// is spent.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/glossary"
	"github.com/Veraticus/the-glossary-must-flow/internal/llm"
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/observe"
	"github.com/Veraticus/the-glossary-must-flow/internal/prompt"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Worker pool sizes used when no concurrency is configured.
const (
	DefaultPoolSize = 8
	RPMOnlyPoolSize = 2048
)

const probeTimeout = 5 * time.Second

// Result is the outcome of one Extract call.
type Result struct {
	Outcome   model.Outcome
	State     model.RunState
	Items     []model.TextItem
	Remaining []model.TextItem
	Glossary  []model.GlossaryEntry
	Filter    text.FilterStats
}

// ExtractRequest selects the items to work on.
type ExtractRequest struct {
	// Items is the freshly read corpus. It is ignored when Resume finds a
	// usable checkpoint.
	Items  []model.TextItem
	Resume bool
}

// resetter is implemented by senders that cache per-run state.
type resetter interface {
	Reset()
}

// Engine owns the item arena and run state for one platform configuration.
type Engine struct {
	sessionStart time.Time
	sender       llm.Sender
	tokenizer    text.Tokenizer
	prompts      *prompt.Builder
	cleaner      *text.Cleaner
	filter       *text.Filter
	checkpoint   *storage.CheckpointStore
	metrics      *observe.Metrics
	logger       *slog.Logger
	probe        SlotProbe
	now          func() time.Time
	stopSubmit   context.CancelFunc
	listeners    []Listener
	items        []model.TextItem
	rules        text.Rules
	state        model.RunState
	cfg          config.Run
	elapsedBase  float64
	status       model.RunStatus
	mu           sync.Mutex
}

// New creates an Engine. cfg is validated here; a bad configuration is the
// only error that stops a run before it starts.
func New(cfg config.Run, sender llm.Sender, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: nil sender", common.ErrInvalidConfig)
	}

	e := &Engine{cfg: cfg, sender: sender, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = common.LoggerOrDefault(e.logger)
	if e.prompts == nil {
		e.prompts = prompt.NewBuilder()
	}
	if e.tokenizer == nil {
		e.tokenizer = text.NewBPETokenizer(e.logger)
	}
	if e.checkpoint == nil {
		copts := []storage.CheckpointOption{storage.WithCheckpointLogger(e.logger)}
		if cfg.SaveInterval > 0 {
			copts = append(copts, storage.WithSaveInterval(cfg.SaveInterval))
		}
		e.checkpoint = storage.NewCheckpointStore(copts...)
	}
	if e.probe == nil {
		e.probe = func(ctx context.Context, baseURL string) (int, error) {
			return llm.ProbeSlots(ctx, nil, baseURL)
		}
	}

	var err error
	if e.cleaner, err = text.NewCleaner(e.rules); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if e.filter, err = text.NewFilter(e.rules, cfg.SourceLanguage); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return e, nil
}

// Status returns the current run status.
func (e *Engine) Status() model.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Stop asks a running extraction to stop submitting chunks. In-flight chunks
// finish, a checkpoint is written, and Extract returns. It reports whether a
// run was active.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != model.RunExtracting {
		return false
	}
	e.status = model.RunStopping
	e.stopSubmit()
	e.logger.Info("Stop requested")
	return true
}

// Extract runs rounds until the backlog is empty, the round budget is spent,
// or Stop is called. Canceling ctx also aborts in-flight requests.
func (e *Engine) Extract(ctx context.Context, req ExtractRequest) (Result, error) {
	if !config.ExtractsTerms(e.cfg.Platform) {
		return Result{}, fmt.Errorf("%w: platform %q serves a line translation model and cannot extract glossary terms",
			common.ErrInvalidConfig, e.cfg.Platform.Base().Name)
	}

	submitCtx, err := e.begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer e.finish()

	stats, err := e.prepare(req)
	if err != nil {
		e.emitError(err)
		return Result{}, err
	}

	stopTicker := e.checkpoint.Start(ctx, e.snapshot)
	outcome := e.runRounds(ctx, submitCtx)
	stopTicker()

	return e.complete(outcome, stats), nil
}

func (e *Engine) begin(ctx context.Context) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != model.RunIdle {
		return nil, fmt.Errorf("%w: %s", common.ErrEngineBusy, e.status)
	}
	e.status = model.RunExtracting
	submitCtx, cancel := context.WithCancel(ctx)
	e.stopSubmit = cancel
	return submitCtx, nil
}

func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopSubmit != nil {
		e.stopSubmit()
	}
	e.status = model.RunIdle
}

// prepare loads or initializes the run and marks non-candidates.
func (e *Engine) prepare(req ExtractRequest) (text.FilterStats, error) {
	if r, ok := e.sender.(resetter); ok {
		r.Reset()
	}
	e.prompts.Reset()

	items := req.Items
	var state model.RunState
	resumed := false
	if req.Resume {
		if cp, ok := e.checkpoint.Load(e.cfg.OutputDir); ok && len(cp.Items) > 0 {
			items, state, resumed = cp.Items, cp.State, true
		} else {
			e.logger.Info("No usable checkpoint, starting a fresh run", "dir", e.cfg.OutputDir)
		}
	}
	if len(items) == 0 {
		return text.FilterStats{}, common.ErrNoItems
	}

	arena := make([]model.TextItem, len(items))
	copy(arena, items)
	for i := range arena {
		arena[i].ID = i
		if arena[i].Status == "" {
			arena[i].Status = model.ItemUnprocessed
		}
	}
	stats := e.filter.Apply(arena)

	now := e.now()
	if !resumed {
		state = model.RunState{StartTime: now}
	}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	counts := model.CountByStatus(arena)
	state.TotalLineCount = counts[model.ItemUnprocessed] + counts[model.ItemProcessed]
	state.ProcessedLineCount = counts[model.ItemProcessed]

	e.mu.Lock()
	e.items = arena
	e.state = state
	e.elapsedBase = state.ElapsedSeconds
	e.sessionStart = now
	e.mu.Unlock()

	e.logger.Info("Run prepared",
		"run_id", state.RunID,
		"resumed", resumed,
		"items", len(arena),
		"total", state.TotalLineCount,
		"processed", state.ProcessedLineCount,
		"rule_excluded", stats.RuleExcluded,
		"language_excluded", stats.LanguageExcluded,
		"duplicated", stats.Duplicated)
	return stats, nil
}

// thresholdFor halves the base threshold once per round after the first.
func thresholdFor(base, round int) int {
	t := base
	for i := 0; i < round && t > 1; i++ {
		t /= 2
	}
	return max(t, 1)
}

func (e *Engine) runRounds(ctx, submitCtx context.Context) model.Outcome {
	pool := e.poolSize(ctx)
	limiter := llm.NewRateLimiter(e.cfg.Concurrency, e.cfg.RPM)
	e.logger.Info("Worker pool sized", "workers", pool, "rate", limiter.Rate())

	for {
		e.mu.Lock()
		round := e.state.Round
		backlog := e.backlogLocked()
		e.mu.Unlock()

		if len(backlog) == 0 {
			return model.OutcomeDone
		}
		if submitCtx.Err() != nil {
			return model.OutcomeStopped
		}
		if round >= e.cfg.MaxRounds {
			return model.OutcomeFailed
		}

		threshold := thresholdFor(e.cfg.TokenThreshold, round)
		chunks := Chunk(backlog, threshold, e.tokenizer)
		e.logger.Info("Round started",
			"round", round,
			"threshold", threshold,
			"backlog", len(backlog),
			"chunks", len(chunks))

		e.runRound(ctx, submitCtx, chunks, pool, limiter)

		if submitCtx.Err() != nil {
			// The interrupted round is redone on resume.
			return model.OutcomeStopped
		}
		e.mu.Lock()
		e.state.Round++
		e.mu.Unlock()
		e.checkpoint.RequestSave(e.cfg.OutputDir)
	}
}

// runRound submits every chunk and waits for the pool to drain.
func (e *Engine) runRound(ctx, submitCtx context.Context, chunks [][]model.TextItem, pool int, limiter *llm.RateLimiter) {
	var g errgroup.Group
	g.SetLimit(pool)

	for _, chunk := range chunks {
		if submitCtx.Err() != nil {
			break
		}
		if err := limiter.Acquire(submitCtx); err != nil {
			break
		}
		task := e.newTask(chunk)
		g.Go(func() error {
			// Stop may arrive while waiting for a free worker.
			if submitCtx.Err() != nil {
				return nil
			}
			e.execute(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) newTask(chunk []model.TextItem) *Task {
	return &Task{
		sender:         e.sender,
		prompts:        e.prompts,
		cleaner:        e.cleaner,
		logger:         e.logger,
		sourceLanguage: e.cfg.SourceLanguage,
		targetLanguage: e.cfg.TargetLanguage,
		items:          chunk,
	}
}

// execute runs one task and applies its result. A panic leaves the chunk's
// items unprocessed for the next round.
func (e *Engine) execute(ctx context.Context, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("chunk task panicked: %v", r)
			e.logger.Error("Chunk task panicked", "panic", r, "items", len(task.items))
			e.emitError(err)
		}
	}()

	result := task.Run(ctx)
	e.apply(ctx, result)
}

func (e *Engine) apply(ctx context.Context, res TaskResult) {
	e.mu.Lock()
	for _, id := range res.ItemIDs {
		item := &e.items[id]
		if !item.Eligible() {
			continue
		}
		if res.Processed {
			item.Status = model.ItemProcessed
			item.Degraded = false
			e.state.ProcessedLineCount++
			continue
		}
		item.RetryCount++
		if res.Degraded {
			item.Degraded = true
		}
	}
	e.state.Candidates = append(e.state.Candidates, res.Candidates...)
	e.state.TotalInputTokens += int64(res.InputTokens)
	e.state.TotalOutputTokens += int64(res.OutputTokens)
	e.state.ElapsedSeconds = e.elapsedLocked()
	snapshot := e.state.Clone()
	e.mu.Unlock()

	e.checkpoint.RequestSave(e.cfg.OutputDir)
	if res.Processed {
		e.metrics.RecordChunk(ctx, len(res.ItemIDs))
	}
	e.emitProgress(snapshot)
}

// complete checkpoints, consolidates and notifies listeners.
func (e *Engine) complete(outcome model.Outcome, stats text.FilterStats) Result {
	e.mu.Lock()
	e.state.ElapsedSeconds = e.elapsedLocked()
	items := append([]model.TextItem(nil), e.items...)
	state := e.state.Clone()
	e.mu.Unlock()

	if err := e.checkpoint.SaveNow(items, state, e.cfg.OutputDir); err != nil {
		e.logger.Error("Final checkpoint failed", "error", err)
		e.emitError(err)
	}

	var remaining []model.TextItem
	for _, item := range items {
		if item.Eligible() {
			remaining = append(remaining, item)
		}
	}

	result := Result{
		Outcome:   outcome,
		State:     state,
		Items:     items,
		Remaining: remaining,
		Glossary:  Consolidate(items, state.Candidates),
		Filter:    stats,
	}

	if outcome == model.OutcomeFailed {
		e.emitError(fmt.Errorf("%w: %d items remain", common.ErrRoundsExhaust, len(remaining)))
	}
	e.logger.Info("Run finished",
		"outcome", outcome,
		"processed", state.ProcessedLineCount,
		"total", state.TotalLineCount,
		"remaining", len(remaining),
		"entries", len(result.Glossary),
		"input_tokens", state.TotalInputTokens,
		"output_tokens", state.TotalOutputTokens)
	e.emitDone(result)
	return result
}

// Consolidate builds the glossary from candidates, searching the covered
// items for context.
func Consolidate(items []model.TextItem, candidates []model.GlossaryCandidate) []model.GlossaryEntry {
	var corpus []string
	for _, item := range items {
		if item.Status.Covered() {
			corpus = append(corpus, text.StripRuby(item.SourceText))
		}
	}
	return glossary.Consolidate(candidates, corpus, glossary.Options{})
}

// poolSize picks the worker count: explicit concurrency, a large pool when
// only RPM is set, the local server's slot count, or the default.
func (e *Engine) poolSize(ctx context.Context) int {
	switch {
	case e.cfg.Concurrency > 0:
		return e.cfg.Concurrency
	case e.cfg.RPM > 0:
		return RPMOnlyPoolSize
	}

	url := e.cfg.Platform.Base().URL
	if llm.IsLocalURL(url) {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		n, err := e.probe(probeCtx, url)
		if err == nil && n > 0 {
			return n
		}
		e.logger.Debug("Slot probe failed, using default pool", "url", url, "error", err)
	}
	return DefaultPoolSize
}

func (e *Engine) backlogLocked() []model.TextItem {
	var backlog []model.TextItem
	for _, item := range e.items {
		if item.Eligible() {
			backlog = append(backlog, item)
		}
	}
	return backlog
}

func (e *Engine) elapsedLocked() float64 {
	return e.elapsedBase + e.now().Sub(e.sessionStart).Seconds()
}

// snapshot copies the arena and state for the checkpoint ticker.
func (e *Engine) snapshot() ([]model.TextItem, model.RunState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ElapsedSeconds = e.elapsedLocked()
	return append([]model.TextItem(nil), e.items...), e.state.Clone()
}

func (e *Engine) emitProgress(state model.RunState) {
	for _, l := range e.listeners {
		if l.OnProgress != nil {
			l.OnProgress(state)
		}
	}
}

func (e *Engine) emitDone(r Result) {
	for _, l := range e.listeners {
		if l.OnDone != nil {
			l.OnDone(r)
		}
	}
}

func (e *Engine) emitError(err error) {
	for _, l := range e.listeners {
		if l.OnError != nil {
			l.OnError(err)
		}
	}
}

// sampleLines are short probes used by TestPlatform.
var sampleLines = map[string]string{
	"ja": "「エリカ、王都の騎士団へようこそ」",
	"zh": "「艾莉卡，欢迎来到王都骑士团」",
	"ko": "「에리카, 왕도 기사단에 온 것을 환영한다」",
	"en": "\"Erika, welcome to the Royal Knights of the capital.\"",
}

// TestPlatform sends one short extraction request and returns the reply.
// Translation-only platforms get a translation request instead. It fails when
// the engine is busy or the request was skipped.
func (e *Engine) TestPlatform(ctx context.Context) (llm.Response, error) {
	e.mu.Lock()
	if e.status != model.RunIdle {
		status := e.status
		e.mu.Unlock()
		return llm.Response{}, fmt.Errorf("%w: %s", common.ErrEngineBusy, status)
	}
	e.status = model.RunTesting
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.status = model.RunIdle
		e.mu.Unlock()
	}()

	line, ok := sampleLines[e.cfg.SourceLanguage]
	if !ok {
		line = sampleLines["en"]
	}

	kind := llm.KindTest
	var system, user string
	if config.ExtractsTerms(e.cfg.Platform) {
		var err error
		if system, err = e.prompts.System(e.cfg.SourceLanguage, e.cfg.TargetLanguage); err != nil {
			return llm.Response{}, err
		}
		user = prompt.User([]string{line})
	} else {
		kind = llm.KindTranslation
		system, user = prompt.Translation(e.cfg.SourceLanguage, e.cfg.TargetLanguage, []string{line})
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
	resp := e.sender.Send(ctx, messages, kind)
	if resp.Skip {
		return resp, fmt.Errorf("platform %q did not answer the test request", e.cfg.Platform.Base().Name)
	}
	e.logger.Info("Platform test passed",
		"platform", e.cfg.Platform.Base().Name,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens)
	return resp, nil
}
