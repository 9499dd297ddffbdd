package tracker

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/esptrack/esptrack/internal/imelog"
	"github.com/esptrack/esptrack/internal/rules"
)

const (
	// DefaultPollInterval is how often the engine looks for new log bytes.
	DefaultPollInterval = 100 * time.Millisecond

	// maxSimulationDelay bounds the per-line pacing wait in replay mode so
	// a single large gap in a captured log cannot stall the replay.
	maxSimulationDelay = 2 * time.Second

	// errorBackoff follows a recovered failure of a full polling pass.
	errorBackoff = 1 * time.Second

	// stopTimeout bounds how long Stop waits for the polling goroutine.
	stopTimeout = 3 * time.Second
)

// MatchRecorder receives every pattern match for diagnostics. Optional.
type MatchRecorder interface {
	Record(sourceFile, ruleID, rawLine string)
}

// Config wires an Engine.
type Config struct {
	// LogDir is the agent log directory; environment variables are expanded.
	LogDir string
	// Patterns are filename globs for the log family. Defaults to
	// imelog.DefaultPatterns.
	Patterns []string
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Registry supplies the compiled matcher sets.
	Registry *rules.Registry
	// Sink receives emitted events. Defaults to NopSink.
	Sink EventSink
	// MatchLog, when non-nil, records every rule match.
	MatchLog MatchRecorder
	// Simulation enables replay pacing from log timestamps.
	Simulation bool
	// SpeedFactor divides simulated gaps; 0 means 1 (real time).
	SpeedFactor float64
	// Logger may be nil.
	Logger *slog.Logger
}

// Engine tails the agent log family and drives the app state store from
// rule matches. One background goroutine does all reading and state
// mutation; Start and Stop bound its lifetime.
type Engine struct {
	cfg       Config
	log       *slog.Logger
	store     *AppStore
	gate      *PhaseGate
	positions *imelog.PositionTracker
	sink      EventSink

	phaseCh  chan string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	// Touched only by the polling goroutine.
	completionFired bool
	lastLineTime    time.Time
}

// NewEngine validates cfg and returns a stopped engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if cfg.LogDir == "" {
		return nil, fmt.Errorf("log directory cannot be empty")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SpeedFactor <= 0 {
		cfg.SpeedFactor = 1
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.LogDir = imelog.ExpandLogDir(cfg.LogDir)

	return &Engine{
		cfg:       cfg,
		log:       logger.With("component", "tracker"),
		store:     NewAppStore(),
		gate:      NewPhaseGate(),
		positions: imelog.NewPositionTracker(),
		sink:      cfg.Sink,
		phaseCh:   make(chan string, 8),
		stopCh:    make(chan struct{}),
	}, nil
}

// Store exposes the live app store for host-side reporting. Readers get
// eventually consistent snapshots.
func (e *Engine) Store() *AppStore {
	return e.store
}

// OnPhaseDetected feeds an externally detected provisioning phase into the
// engine. Safe to call from any goroutine; the signal is handled on the
// next polling tick. The same path serves phases matched from log lines.
func (e *Engine) OnPhaseDetected(phase string) {
	select {
	case e.phaseCh <- phase:
	default:
		// A full queue means a burst of identical signals; dropping is
		// harmless because phase observation is idempotent.
	}
}

// Start launches the polling loop.
func (e *Engine) Start() error {
	if e.started {
		return fmt.Errorf("engine already started")
	}
	e.started = true

	e.wg.Add(1)
	go e.run()
	return nil
}

// Stop signals the loop and waits briefly for it to exit. Safe to call
// more than once. Best effort: a loop stuck in file I/O past the timeout
// is abandoned, not an error.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopCh) })

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		e.log.Warn("polling loop did not exit before timeout")
	}
	return nil
}

func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if !e.pollOnce() {
				// A recovered failure: back off before the next pass so a
				// persistent fault cannot spin the loop.
				select {
				case <-e.stopCh:
					return
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

// pollOnce runs one full polling pass. Returns false when the pass
// panicked and was recovered.
func (e *Engine) pollOnce() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("polling pass failed", "panic", r)
			ok = false
		}
	}()

	e.drainPhaseSignals()

	files, err := imelog.FindLogFiles(e.cfg.LogDir, e.cfg.Patterns)
	if err != nil {
		e.log.Warn("log enumeration failed", "dir", e.cfg.LogDir, "error", err)
		return true
	}

	for i, path := range files {
		if e.stopped() {
			return true
		}
		if err := e.readFile(path, i == len(files)-1); err != nil {
			// Transient: file locked, vanished mid-read. Next tick retries.
			e.log.Debug("skipping log file this tick", "file", path, "error", err)
		}
	}
	return true
}

func (e *Engine) drainPhaseSignals() {
	for {
		select {
		case phase := <-e.phaseCh:
			e.handlePhase(phase)
		default:
			return
		}
	}
}

func (e *Engine) stopped() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

// readFile consumes new complete lines from path starting at the last safe
// offset. For the live file the offset advances only past lines that ended
// in a newline; a partial trailing line is left for the next tick once the
// writer finishes it. Rotated archives never gain the missing newline, so
// their final partial line is consumed as-is.
func (e *Engine) readFile(path string, live bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	offset := e.positions.SafePosition(path, info.Size())
	if info.Size() == offset {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return err
		}
	}

	reader := bufio.NewReader(f)
	consumed := offset
	for {
		if e.stopped() {
			break
		}
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			if line != "" && !live {
				consumed += int64(len(line))
				e.processLine(path, strings.TrimRight(line, "\r\n"))
			}
			// On the live file the agent is mid-write. Re-read next tick.
			break
		}
		if err != nil {
			e.positions.SetPosition(path, consumed)
			return err
		}
		consumed += int64(len(line))
		e.processLine(path, strings.TrimRight(line, "\r\n"))
	}

	e.positions.SetPosition(path, consumed)
	return nil
}

func (e *Engine) processLine(path, raw string) {
	if raw == "" {
		return
	}

	message := raw
	var ts time.Time
	if entry, ok := imelog.ParseLine(raw); ok {
		message = entry.Message
		ts = entry.Timestamp
	}

	if e.cfg.Simulation && !ts.IsZero() {
		e.pace(ts)
	}

	for _, rule := range e.cfg.Registry.ActiveSet(e.gate.CurrentActive()) {
		match := rule.Regex.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		if e.cfg.MatchLog != nil {
			e.cfg.MatchLog.Record(path, rule.ID, raw)
		}
		e.dispatch(rule, match, ts)
	}
}

// pace sleeps proportionally to the gap between consecutive timestamped
// lines, compressed by the speed factor and capped so one large gap cannot
// stall a replay. Cancellable so Stop returns promptly.
func (e *Engine) pace(ts time.Time) {
	defer func() { e.lastLineTime = ts }()

	if e.lastLineTime.IsZero() || !ts.After(e.lastLineTime) {
		return
	}

	delay := time.Duration(float64(ts.Sub(e.lastLineTime)) / e.cfg.SpeedFactor)
	if delay > maxSimulationDelay {
		delay = maxSimulationDelay
	}
	if delay <= 0 {
		return
	}

	select {
	case <-e.stopCh:
	case <-time.After(delay):
	}
}

func (e *Engine) dispatch(rule *rules.CompiledRule, match []string, ts time.Time) {
	switch rule.Action {
	case rules.ActionSetCurrentApp:
		e.handleSetCurrentApp(rule, match)
	case rules.ActionAppState:
		e.handleAppState(rule, match)
	case rules.ActionDownloadProgress:
		e.handleDownloadProgress(rule, match)
	case rules.ActionPhaseDetected:
		e.handlePhase(e.phaseName(rule, match))
	case rules.ActionAgentStarted:
		e.handleAgentStarted(ts)
	case rules.ActionAgentVersion:
		e.handleAgentVersion(rule, match)
	case rules.ActionPoliciesReceived:
		e.handlePoliciesReceived(rule, match)
	case rules.ActionCancelCurrentApp:
		e.handleCancelCurrentApp(rule, match)
	default:
		// Rule sets may be newer than this engine. Skip, never crash.
		e.log.Warn("rule names unknown action", "rule", rule.ID, "action", rule.ActionName)
	}
}

func (e *Engine) handleSetCurrentApp(rule *rules.CompiledRule, match []string) {
	id := rule.AppID(match)
	if id == "" {
		return
	}
	e.store.SetCurrent(id)
	if name := group(rule, match, "name"); name != "" {
		e.store.SetName(id, name)
	}
}

func (e *Engine) handleAppState(rule *rules.CompiledRule, match []string) {
	stateName := rule.Parameters["state"]
	newState, ok := ParseState(stateName)
	if !ok {
		e.log.Warn("rule names unknown state", "rule", rule.ID, "state", stateName)
		return
	}

	id := rule.AppID(match)
	if id == "" {
		id = e.store.CurrentID()
	}
	if id == "" {
		return
	}

	e.applyState(id, newState)
}

func (e *Engine) applyState(id string, newState State) {
	oldState := e.store.GetOrCreate(id).State
	app, changed := e.store.UpdateState(id, newState)
	if !changed {
		return
	}
	e.sink.AppStateChanged(app, oldState, newState)
	e.checkCompletion()
}

func (e *Engine) handleDownloadProgress(rule *rules.CompiledRule, match []string) {
	id := rule.AppID(match)
	if id == "" {
		id = e.store.CurrentID()
	}
	if id == "" {
		return
	}

	downloaded := groupInt(rule, match, "downloaded")
	total := groupInt(rule, match, "total")

	oldState := e.store.GetOrCreate(id).State
	app, changed := e.store.UpdateDownloadProgress(id, downloaded, total)
	if changed {
		e.sink.AppStateChanged(app, oldState, StateDownloading)
	}
}

func (e *Engine) phaseName(rule *rules.CompiledRule, match []string) string {
	if p := rule.Parameters["phase"]; p != "" {
		return p
	}
	return group(rule, match, "phase")
}

// handlePhase applies a phase observation. A boundary silences every app
// known so far: the agent re-reports the previous phase's installs at the
// start of the next phase, and those must not register as new work.
func (e *Engine) handlePhase(phase string) {
	if phase == "" {
		return
	}
	recognized, changed, boundary := e.gate.Observe(phase)
	if !recognized || !changed {
		return
	}
	if boundary {
		e.store.IgnoreAllAndClear()
		e.completionFired = false
	}
	e.log.Info("provisioning phase detected", "phase", phase, "boundary", boundary)
	e.sink.PhaseChanged(phase)
}

func (e *Engine) handleAgentStarted(ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	e.sink.AgentStarted(ts)
}

func (e *Engine) handleAgentVersion(rule *rules.CompiledRule, match []string) {
	version := group(rule, match, "version")
	if version == "" {
		version = rule.Parameters["version"]
	}
	if version != "" {
		e.sink.AgentVersion(version)
	}
}

func (e *Engine) handlePoliciesReceived(rule *rules.CompiledRule, match []string) {
	payload := group(rule, match, "payload")
	if payload == "" {
		return
	}
	decls, err := ParsePolicyPayload(payload)
	if err != nil {
		// Data error: skip this declaration, keep tracking.
		e.log.Warn("malformed policy payload", "rule", rule.ID, "error", err)
		return
	}

	var filter func(PolicyDeclaration) bool
	if e.gate.CurrentActive() {
		filter = DevicePhaseFilter
	}
	tracked := e.store.BulkUpsert(decls, filter)
	e.sink.PoliciesReceived(len(decls), tracked)
}

// handleCancelCurrentApp closes out a stuck current app before the cursor
// moves on: an active, unfinished app is marked Skipped, then the cursor is
// reassigned to the newly matched id if the rule captured one.
func (e *Engine) handleCancelCurrentApp(rule *rules.CompiledRule, match []string) {
	if cur, ok := e.store.Current(); ok && cur.Active && !cur.State.Terminal() {
		e.applyState(cur.ID, StateSkipped)
	}
	if id := rule.AppID(match); id != "" {
		e.store.SetCurrent(id)
	}
}

// checkCompletion fires the all-apps-completed callback exactly once per
// phase; the one-shot resets when a phase boundary clears the store.
func (e *Engine) checkCompletion() {
	if e.completionFired || !e.store.AllCompleted() {
		return
	}
	e.completionFired = true
	e.sink.AllAppsCompleted(e.store.Snapshot())
}

func group(rule *rules.CompiledRule, match []string, name string) string {
	idx := rule.Regex.SubexpIndex(name)
	if idx < 0 || idx >= len(match) {
		return ""
	}
	return match[idx]
}

func groupInt(rule *rules.CompiledRule, match []string, name string) int64 {
	s := group(rule, match, name)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
