// Package service provides the core business service that implements
// the dependencies required by the HTTP API: interview lifecycle,
// message intake, the decision loop, timeouts and evaluations.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/eventstore"
	eventqueue "github.com/okian/parley/internal/adapters/mq/queue"
	workerpool "github.com/okian/parley/internal/adapters/mq/worker"
	"github.com/okian/parley/internal/adapters/textgen"
	"github.com/okian/parley/internal/domain/decision"
	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/judge"
	"github.com/okian/parley/internal/domain/keyedcache"
	"github.com/okian/parley/internal/domain/schema"
	"github.com/okian/parley/internal/domain/signals"
	"github.com/okian/parley/internal/domain/state"
	"github.com/okian/parley/pkg/logger"
	"github.com/okian/parley/pkg/metrics"
)

// Known evaluation versions.
const (
	// VersionSignals is the deterministic regex-and-formula path.
	VersionSignals = "signals-v1"
	// VersionJudge is the two-stage external judge path.
	VersionJudge = "judge-v1"
)

// defaultRubric is sent with every judge call so both stages score
// against the same instructions.
const defaultRubric = "Assess the candidate's technical depth, concrete reasoning and " +
	"responsiveness to follow-up questions. Scores are fractions in [0,1]."

// cacheDimension namespaces evaluation outputs in the keyed cache.
const cacheDimension = "evaluation"

// Snapshot is the client-facing view of an interview: the reduced
// state plus the events past the caller's cursor.
type Snapshot struct {
	InterviewID string
	State       state.State
	Events      []event.Event
}

// SubmitResult reports the stored position of a submitted event.
type SubmitResult struct {
	Seq       int64
	Duplicate bool
}

// Service implements the API dependencies for the interview system.
type Service struct {
	mu sync.RWMutex

	// Core components
	events      eventstore.Store
	evals       evalstore.Store
	engine      *decision.Engine
	schema      *schema.Schema
	gen         textgen.Generator
	judgeClient judge.Client
	mapper      *judge.Mapper
	cache       keyedcache.Cache

	// Async evaluation pipeline
	queue      eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	rubric      string
	now         func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the evaluation job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJudgeClient wires the external judge used by judge evaluations.
func WithJudgeClient(client judge.Client) Option {
	return func(s *Service) {
		s.judgeClient = client
	}
}

// WithRubric overrides the judge rubric text.
func WithRubric(rubric string) Option {
	return func(s *Service) {
		if rubric != "" {
			s.rubric = rubric
		}
	}
}

// WithCache overrides the evaluation output cache.
func WithCache(c keyedcache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over its stores and ports.
func New(sch *schema.Schema, events eventstore.Store, evals evalstore.Store, gen textgen.Generator, opts ...Option) *Service {
	s := &Service{
		events:      events,
		evals:       evals,
		engine:      decision.New(sch.Tunables),
		schema:      sch,
		gen:         gen,
		cache:       keyedcache.New(),
		workerCount: 2,
		queueSize:   1024,
		rubric:      defaultRubric,
		now:         time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.judgeClient != nil {
		s.mapper = judge.NewMapper(sch, s.judgeClient, s.rubric)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start launches the asynchronous evaluation pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s, s.evals)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "interview service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the evaluation pipeline.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "interview service stopped")
}

// CreateInterview records a new interview against the service schema
// and returns its id.
func (s *Service) CreateInterview(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: id,
		ActorType:   event.ActorSystem,
		Type:        event.TypeInterviewCreated,
		Payload:     event.InterviewCreated{SchemaVersion: s.schema.Version},
	})
	if err != nil {
		return "", fmt.Errorf("create interview: %w", err)
	}
	metrics.RecordInterviewCreated()
	s.logger.Info(ctx, "interview created", logger.String("interviewID", id))
	return id, nil
}

// StartInterview transitions an interview to in-progress, opens the
// first section and surfaces its opening prompt.
func (s *Service) StartInterview(ctx context.Context, interviewID string) error {
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return err
	}
	if st.Ended() {
		return ErrInterviewEnded
	}
	if st.Status == state.StatusInProgress {
		// Starting twice is a no-op, not an error.
		return nil
	}

	if _, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorSystem,
		Type:        event.TypeInterviewStarted,
		Payload:     event.InterviewStarted{},
	}); err != nil {
		return fmt.Errorf("start interview: %w", err)
	}

	first := s.schema.First()
	if err := s.openSection(ctx, interviewID, first); err != nil {
		return err
	}
	return s.drive(ctx, interviewID)
}

// Terminate ends an interview early with a recorded reason.
func (s *Service) Terminate(ctx context.Context, interviewID, reason string) error {
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return err
	}
	if st.Ended() {
		return ErrInterviewEnded
	}
	if _, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorOps,
		Type:        event.TypeInterviewTerminated,
		Payload:     event.InterviewTerminated{Reason: reason},
	}); err != nil {
		return fmt.Errorf("terminate interview: %w", err)
	}
	metrics.RecordInterviewFinished("terminated")
	s.logger.Info(ctx, "interview terminated",
		logger.String("interviewID", interviewID),
		logger.String("reason", reason),
	)
	return nil
}

// SubmitMessage appends a candidate message and runs the decision loop.
// Idempotent by clientEventID: a replayed message is absorbed without a
// second decision pass.
func (s *Service) SubmitMessage(ctx context.Context, interviewID, clientEventID, text string) (SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return SubmitResult{}, fmt.Errorf("%w: empty message", eventstore.ErrBadRequest)
	}
	if _, err := s.CheckTimeout(ctx, interviewID); err != nil {
		return SubmitResult{}, err
	}

	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return SubmitResult{}, err
	}
	if st.Ended() {
		return SubmitResult{}, ErrInterviewEnded
	}
	if st.Status != state.StatusInProgress {
		return SubmitResult{}, ErrNotStarted
	}

	res, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID:   interviewID,
		ActorType:     event.ActorCandidate,
		Type:          event.TypeCandidateMessage,
		Payload:       event.CandidateMessage{Text: text},
		ClientEventID: clientEventID,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit message: %w", err)
	}
	if res.Duplicate {
		return SubmitResult{Seq: res.Seq, Duplicate: true}, nil
	}

	// A message supersedes any saved draft.
	s.cache.Delete(ctx, keyedcache.Key{SubjectID: interviewID, Dimension: "draft"})

	if err := s.drive(ctx, interviewID); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Seq: res.Seq}, nil
}

// SubmitCode appends a code submission for the coding section.
func (s *Service) SubmitCode(ctx context.Context, interviewID, clientEventID, problemID, language, code string) (SubmitResult, error) {
	if _, err := s.CheckTimeout(ctx, interviewID); err != nil {
		return SubmitResult{}, err
	}
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return SubmitResult{}, err
	}
	if st.Ended() {
		return SubmitResult{}, ErrInterviewEnded
	}
	if st.Status != state.StatusInProgress {
		return SubmitResult{}, ErrNotStarted
	}

	res, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID:   interviewID,
		ActorType:     event.ActorCandidate,
		Type:          event.TypeCodeSubmitted,
		Payload:       event.CodeSubmitted{ProblemID: problemID, Language: language, Code: code},
		ClientEventID: clientEventID,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit code: %w", err)
	}
	return SubmitResult{Seq: res.Seq, Duplicate: res.Duplicate}, nil
}

// RecordTestResults appends aggregated sandbox results for a submission.
func (s *Service) RecordTestResults(ctx context.Context, interviewID, clientEventID, problemID string, passed, total int, errMsg string) (SubmitResult, error) {
	res, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID:   interviewID,
		ActorType:     event.ActorSystem,
		Type:          event.TypeCodeTestsResult,
		Payload:       event.CodeTestsResult{ProblemID: problemID, Passed: passed, Total: total, Error: errMsg},
		ClientEventID: clientEventID,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("record test results: %w", err)
	}
	return SubmitResult{Seq: res.Seq, Duplicate: res.Duplicate}, nil
}

// Connected records the candidate's client connecting.
func (s *Service) Connected(ctx context.Context, interviewID, clientInfo string) error {
	_, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorCandidate,
		Type:        event.TypeCandidateConnected,
		Payload:     event.CandidateConnected{ClientInfo: clientInfo},
	})
	return err
}

// Disconnected records the candidate's client dropping.
func (s *Service) Disconnected(ctx context.Context, interviewID, cause string) error {
	_, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorCandidate,
		Type:        event.TypeCandidateDisconnected,
		Payload:     event.CandidateDisconnected{Cause: cause},
	})
	return err
}

// Snapshot returns the reduced state and the events past sinceSeq.
// Timeouts are applied lazily first, so a poll after the deadline
// observes the section transition it caused.
func (s *Service) Snapshot(ctx context.Context, interviewID string, sinceSeq int64) (Snapshot, error) {
	if _, err := s.CheckTimeout(ctx, interviewID); err != nil && !errors.Is(err, eventstore.ErrNotFound) {
		return Snapshot{}, err
	}
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return Snapshot{}, err
	}
	since, err := s.events.EventsSince(ctx, interviewID, sinceSeq)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{InterviewID: interviewID, State: st, Events: since}, nil
}

// SaveDraft stores the candidate's in-progress answer text.
func (s *Service) SaveDraft(ctx context.Context, interviewID, text string) {
	s.cache.Set(ctx, keyedcache.Key{SubjectID: interviewID, Dimension: "draft"}, text)
}

// Draft returns the candidate's saved draft, if any.
func (s *Service) Draft(ctx context.Context, interviewID string) (string, bool) {
	return s.cache.Get(ctx, keyedcache.Key{SubjectID: interviewID, Dimension: "draft"})
}

// CheckTimeout applies the lazy deadline check: when the current
// section's deadline has passed, the section is ended with the timeout
// reason and the interview advances. Returns true when a transition
// happened.
func (s *Service) CheckTimeout(ctx context.Context, interviewID string) (bool, error) {
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return false, err
	}
	if st.Status != state.StatusInProgress || st.CurrentSectionID == "" {
		return false, nil
	}
	if st.SectionDeadline.IsZero() || !s.now().After(st.SectionDeadline) {
		return false, nil
	}

	metrics.RecordSectionTimeout()
	s.logger.Info(ctx, "section deadline passed",
		logger.String("interviewID", interviewID),
		logger.String("sectionID", st.CurrentSectionID),
	)
	if err := s.endSection(ctx, interviewID, st.CurrentSectionID, event.EndReasonTimeout); err != nil {
		return false, err
	}
	return true, nil
}

// drive runs the decision engine against the fresh history and applies
// its verdict. It recurses through section transitions so a satisfied
// section immediately surfaces the next section's opening prompt.
func (s *Service) drive(ctx context.Context, interviewID string) error {
	events, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return err
	}

	action := s.engine.Decide(s.schema, st, events)
	metrics.RecordDecision(string(action.Kind))

	switch action.Kind {
	case decision.KindNone:
		return nil

	case decision.KindAskInitial:
		return s.presentPrompt(ctx, interviewID, event.PromptPresented{
			PromptID: action.Prompt.ID,
			Kind:     event.PromptInitial,
			Text:     action.Prompt.Text,
		})

	case decision.KindAskFollowup:
		return s.askFollowup(ctx, interviewID, action.SectionID, events)

	case decision.KindMarkSatisfied:
		return s.endSection(ctx, interviewID, action.SectionID, event.EndReasonSatisfied)
	}
	return nil
}

// askFollowup requests a generated follow-up and applies the
// non-repetition guard and refusal override before presenting it.
func (s *Service) askFollowup(ctx context.Context, interviewID, sectionID string, events []event.Event) error {
	prior := decision.PriorQuestions(events, sectionID)
	answer, _ := decision.LastAnswer(events, sectionID)
	refused := decision.IsRefusal(strings.ToLower(answer))

	question, err := s.gen.Followup(ctx, textgen.Request{
		SectionID:       sectionID,
		LastAnswer:      answer,
		RecentQuestions: prior,
		PriorTranscript: s.renderPriorSections(events, sectionID),
	})
	if err != nil {
		s.logger.Warn(ctx, "follow-up generation failed",
			logger.String("interviewID", interviewID),
			logger.Error(err),
		)
		question = ""
	}

	switch {
	case question == "":
		metrics.RecordFollowupSuppressed("empty")
	case decision.IsDuplicateQuestion(prior, question, s.schema.Tunables.OverlapThreshold):
		metrics.RecordFollowupSuppressed("duplicate")
		question = ""
	}

	if question == "" {
		if refused {
			// The generator has nothing, but a refusal must not end the
			// section; re-engage instead.
			metrics.RecordRefusalOverride()
			question = decision.ReengagementPrompt
		} else {
			return s.endSection(ctx, interviewID, sectionID, event.EndReasonSatisfied)
		}
	}

	return s.presentPrompt(ctx, interviewID, event.PromptPresented{
		PromptID: "fu-" + uuid.NewString(),
		Kind:     event.PromptFollowup,
		Text:     question,
	})
}

func (s *Service) presentPrompt(ctx context.Context, interviewID string, p event.PromptPresented) error {
	if _, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorInterviewer,
		Type:        event.TypePromptPresented,
		Payload:     p,
	}); err != nil {
		return fmt.Errorf("present prompt: %w", err)
	}
	return nil
}

// endSection closes a section and either opens the next one or
// completes the interview.
func (s *Service) endSection(ctx context.Context, interviewID, sectionID string, reason event.EndReason) error {
	if _, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorSystem,
		Type:        event.TypeSectionEnded,
		Payload:     event.SectionEnded{SectionID: sectionID, Reason: reason},
	}); err != nil {
		return fmt.Errorf("end section: %w", err)
	}

	next, ok := s.schema.Next(sectionID)
	if !ok {
		if _, err := s.events.Append(ctx, eventstore.AppendRequest{
			InterviewID: interviewID,
			ActorType:   event.ActorSystem,
			Type:        event.TypeInterviewCompleted,
			Payload:     event.InterviewCompleted{},
		}); err != nil {
			return fmt.Errorf("complete interview: %w", err)
		}
		metrics.RecordInterviewFinished("completed")
		s.logger.Info(ctx, "interview completed", logger.String("interviewID", interviewID))
		return nil
	}

	if err := s.openSection(ctx, interviewID, next); err != nil {
		return err
	}
	return s.drive(ctx, interviewID)
}

func (s *Service) openSection(ctx context.Context, interviewID string, sec schema.Section) error {
	if _, err := s.events.Append(ctx, eventstore.AppendRequest{
		InterviewID: interviewID,
		ActorType:   event.ActorSystem,
		Type:        event.TypeSectionStarted,
		Payload: event.SectionStarted{
			SectionID: sec.ID,
			Deadline:  s.now().Add(sec.Duration),
		},
	}); err != nil {
		return fmt.Errorf("open section: %w", err)
	}
	return nil
}

// renderPriorSections renders the transcripts of every section before
// the current one, for generator context.
func (s *Service) renderPriorSections(events []event.Event, currentSectionID string) string {
	var parts []string
	for _, sec := range s.schema.Sections {
		if sec.ID == currentSectionID {
			break
		}
		turns := judge.Canonicalize(events, sec.ID)
		if len(turns) == 0 {
			continue
		}
		parts = append(parts, "## "+sec.Name+"\n"+judge.Render(turns))
	}
	return strings.Join(parts, "\n\n")
}

// Evaluate computes, persists and returns the evaluation for one
// (interview, version) pair. Re-running is idempotent: the stored row
// wins and concurrent writers collapse onto it.
func (s *Service) Evaluate(ctx context.Context, interviewID, version string) (evaluation.Output, error) {
	cacheKey := keyedcache.Key{SubjectID: interviewID + "/" + version, Dimension: cacheDimension}
	if raw, ok := s.cache.Get(ctx, cacheKey); ok {
		var out evaluation.Output
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		s.cache.Delete(ctx, cacheKey)
	}

	if existing, err := s.evals.GetResult(ctx, interviewID, version); err == nil {
		s.cacheOutput(ctx, cacheKey, existing)
		return existing, nil
	} else if !errors.Is(err, evalstore.ErrNotFound) {
		return evaluation.Output{}, err
	}

	events, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return evaluation.Output{}, err
	}
	if !st.Ended() {
		return evaluation.Output{}, fmt.Errorf("%w: interview %s is %s", ErrNotCompleted, interviewID, st.Status)
	}

	out, err := s.compute(ctx, interviewID, version, events)
	if err != nil {
		return evaluation.Output{}, err
	}

	if err := s.evals.SaveResult(ctx, out); err != nil {
		if errors.Is(err, evalstore.ErrAlreadyExists) {
			// A concurrent run won the insert; its row is authoritative.
			return s.evals.GetResult(ctx, interviewID, version)
		}
		return evaluation.Output{}, err
	}
	s.cacheOutput(ctx, cacheKey, out)
	return out, nil
}

func (s *Service) compute(ctx context.Context, interviewID, version string, events []event.Event) (evaluation.Output, error) {
	switch version {
	case VersionSignals:
		extractor := signals.NewExtractor(s.schema)
		sigs := extractor.Extract(events)
		mets := signals.ComputeMetrics(s.schema, sigs)
		score, band := signals.Aggregate(s.schema, mets)
		return evaluation.Output{
			InterviewID:  interviewID,
			Version:      version,
			OverallScore: score,
			OverallBand:  band,
			Metrics:      mets,
			Sections:     []evaluation.SectionEvaluation{},
		}, nil
	case VersionJudge:
		if s.mapper == nil {
			return evaluation.Output{}, ErrJudgeNotConfigured
		}
		out := s.mapper.Evaluate(ctx, interviewID, events)
		out.Version = version
		return out, nil
	default:
		return evaluation.Output{}, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
}

func (s *Service) cacheOutput(ctx context.Context, k keyedcache.Key, out evaluation.Output) {
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	s.cache.Set(ctx, k, string(raw))
}

// RunEvaluation implements worker.Runner: one queued run end to end.
func (s *Service) RunEvaluation(ctx context.Context, interviewID, version string) error {
	_, err := s.Evaluate(ctx, interviewID, version)
	return err
}

// EnqueueEvaluation records a pending job and queues it for the worker
// pool. Returns the job id for status polling.
func (s *Service) EnqueueEvaluation(ctx context.Context, interviewID, version string) (string, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return "", fmt.Errorf("enqueue evaluation: service not started")
	}
	if version != VersionSignals && version != VersionJudge {
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	// Reject before queuing when the interview cannot be evaluated.
	_, st, err := s.events.GetEventsAndState(ctx, interviewID)
	if err != nil {
		return "", err
	}
	if !st.Ended() {
		return "", fmt.Errorf("%w: interview %s is %s", ErrNotCompleted, interviewID, st.Status)
	}

	jobID := uuid.NewString()
	if err := s.evals.CreateJob(ctx, evalstore.Job{
		ID:          jobID,
		InterviewID: interviewID,
		Version:     version,
		Status:      evalstore.JobPending,
	}); err != nil {
		return "", err
	}
	if !s.queue.Enqueue(ctx, eventqueue.Job{JobID: jobID, InterviewID: interviewID, Version: version}) {
		_ = s.evals.UpdateJob(ctx, jobID, evalstore.JobFailed, "queue full")
		return "", ErrQueueFull
	}
	return jobID, nil
}

// Job returns an evaluation run record.
func (s *Service) Job(ctx context.Context, jobID string) (evalstore.Job, error) {
	return s.evals.GetJob(ctx, jobID)
}

// Evaluation returns a stored evaluation result without computing one.
func (s *Service) Evaluation(ctx context.Context, interviewID, version string) (evaluation.Output, error) {
	return s.evals.GetResult(ctx, interviewID, version)
}

// SaveOverride records a reviewer correction beside an immutable result.
func (s *Service) SaveOverride(ctx context.Context, o evaluation.Override) error {
	if _, err := s.evals.GetResult(ctx, o.InterviewID, o.Version); err != nil {
		return err
	}
	return s.evals.SaveOverride(ctx, o)
}

// Overrides lists reviewer corrections for a result, oldest first.
func (s *Service) Overrides(ctx context.Context, interviewID, version string) ([]evaluation.Override, error) {
	return s.evals.Overrides(ctx, interviewID, version)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"schemaVersion": s.schema.Version,
		"cacheEntries":  s.cache.Len(),
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateEvalQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
