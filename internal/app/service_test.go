package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/eventstore"
	"github.com/okian/parley/internal/adapters/judgeclient"
	"github.com/okian/parley/internal/adapters/textgen"
	app "github.com/okian/parley/internal/app"
	"github.com/okian/parley/internal/domain/decision"
	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/judge"
	"github.com/okian/parley/internal/domain/schema"
	"github.com/okian/parley/internal/domain/state"
	"github.com/okian/parley/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// fakeClock is a mutable time source shared by the service and the test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New("test-v1",
		[]schema.Section{
			{
				ID: "intro", Name: "Introduction", Duration: 5 * time.Minute,
				Initial:  schema.Prompt{ID: "intro-q1", Text: "Walk me through a recent project."},
				Coverage: schema.Coverage{Groups: [][]string{{"project"}}, MinHits: 1},
			},
			{
				ID: "coding", Name: "Coding", Duration: 10 * time.Minute,
				Initial:        schema.Prompt{ID: "coding-q1", Text: "Solve the posted problems."},
				NonInteractive: true,
			},
			{
				ID: "wrapup", Name: "Wrap Up", Duration: 5 * time.Minute,
				Initial:  schema.Prompt{ID: "wrap-q1", Text: "What would you change with more time?"},
				Coverage: schema.Coverage{Groups: [][]string{{"alternative", "instead"}}, MinHits: 1},
			},
		},
		[]schema.SignalRule{
			{Name: "context", Patterns: []string{`\bproject\b`}},
		},
		[]schema.MetricGroup{
			{Name: "communication", Signals: []string{"context"}, Weight: 0.5, Scale: 5},
			{Name: "implementation", Signals: []string{"tests_passed"}, Weight: 0.5, Scale: 5},
		},
		schema.Tunables{
			MaxFollowUps:         2,
			FollowUpBudget:       1,
			OverlapThreshold:     0.65,
			MaxEvidencePerSignal: 3,
			MaxQuoteLen:          240,
		},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return sch
}

// sectionProbe answers per section; "" ends the generator's material.
func sectionProbe() textgen.Generator {
	return textgen.Func(func(_ context.Context, req textgen.Request) (string, error) {
		switch req.SectionID {
		case "intro":
			return "What part did you personally own?", nil
		case "wrapup":
			return "Which alternative did you reject?", nil
		}
		return "", nil
	})
}

func newService(t *testing.T, gen textgen.Generator, clock *fakeClock, opts ...app.Option) *app.Service {
	t.Helper()
	opts = append([]app.Option{app.WithClock(clock.Now)}, opts...)
	return app.New(testSchema(t), eventstore.NewMemory(), evalstore.NewMemory(), gen, opts...)
}

// terminated builds an ended interview the evaluation paths can use.
func terminated(t *testing.T, ctx context.Context, svc *app.Service) string {
	t.Helper()
	id, err := svc.CreateInterview(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.StartInterview(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Terminate(ctx, id, "cut short"); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	return id
}

func TestInterviewFlow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a full interview run", t, func() {
		clock := newFakeClock()
		svc := newService(t, sectionProbe(), clock)

		id, err := svc.CreateInterview(ctx)
		So(err, ShouldBeNil)
		So(id, ShouldNotBeEmpty)

		// Messages before the start are rejected.
		_, err = svc.SubmitMessage(ctx, id, "early", "hello?")
		So(err, ShouldWrap, app.ErrNotStarted)

		// Starting opens the first section and surfaces its prompt.
		So(svc.StartInterview(ctx, id), ShouldBeNil)
		snap, err := svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(snap.State.Status, ShouldEqual, state.StatusInProgress)
		So(snap.State.CurrentSectionID, ShouldEqual, "intro")
		So(snap.State.ActivePrompt, ShouldNotBeNil)
		So(snap.State.ActivePrompt.ID, ShouldEqual, "intro-q1")
		So(snap.State.SectionDeadline, ShouldEqual, clock.Now().Add(5*time.Minute))

		// Starting again is a no-op.
		So(svc.StartInterview(ctx, id), ShouldBeNil)
		again, err := svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(again.State.LastSeq, ShouldEqual, snap.State.LastSeq)

		// The first answer is inside the follow-up budget, so a
		// generated follow-up comes back.
		res, err := svc.SubmitMessage(ctx, id, "m1", "I built a telemetry project last year.")
		So(err, ShouldBeNil)
		So(res.Duplicate, ShouldBeFalse)
		snap, err = svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(snap.State.ActivePrompt.Kind, ShouldEqual, event.PromptFollowup)
		So(snap.State.ActivePrompt.Text, ShouldEqual, "What part did you personally own?")

		// Replaying the same client event id is absorbed without a
		// second decision pass.
		replay, err := svc.SubmitMessage(ctx, id, "m1", "I built a telemetry project last year.")
		So(err, ShouldBeNil)
		So(replay.Duplicate, ShouldBeTrue)
		So(replay.Seq, ShouldEqual, res.Seq)
		unchanged, err := svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(unchanged.State.LastSeq, ShouldEqual, snap.State.LastSeq)

		// The budgeted answer meets coverage, so intro ends satisfied
		// and the non-interactive coding section opens without a prompt.
		_, err = svc.SubmitMessage(ctx, id, "m2", "I owned the project storage layer.")
		So(err, ShouldBeNil)
		snap, err = svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(snap.State.CurrentSectionID, ShouldEqual, "coding")
		So(snap.State.ActivePrompt, ShouldBeNil)
		intro, ok := snap.State.Progress("intro")
		So(ok, ShouldBeTrue)
		So(intro.EndReason, ShouldEqual, event.EndReasonSatisfied)

		// Coding flow: a submission plus sandbox results.
		_, err = svc.SubmitCode(ctx, id, "c1", "p1", "go", "package main\n")
		So(err, ShouldBeNil)
		_, err = svc.RecordTestResults(ctx, id, "t1", "p1", 8, 10, "")
		So(err, ShouldBeNil)

		// Before the deadline nothing times out.
		moved, err := svc.CheckTimeout(ctx, id)
		So(err, ShouldBeNil)
		So(moved, ShouldBeFalse)

		// Past the coding deadline, the next poll observes the timeout
		// transition and the wrap-up prompt.
		clock.Advance(11 * time.Minute)
		snap, err = svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(snap.State.CurrentSectionID, ShouldEqual, "wrapup")
		So(snap.State.ActivePrompt.ID, ShouldEqual, "wrap-q1")
		coding, ok := snap.State.Progress("coding")
		So(ok, ShouldBeTrue)
		So(coding.EndReason, ShouldEqual, event.EndReasonTimeout)

		// Wrap-up runs its one follow-up, then the budgeted answer
		// meets coverage and the interview completes.
		_, err = svc.SubmitMessage(ctx, id, "m3", "I would simplify the ingest path.")
		So(err, ShouldBeNil)
		_, err = svc.SubmitMessage(ctx, id, "m4", "I would batch writes instead.")
		So(err, ShouldBeNil)
		snap, err = svc.Snapshot(ctx, id, 0)
		So(err, ShouldBeNil)
		So(snap.State.Status, ShouldEqual, state.StatusCompleted)
		So(snap.State.Ended(), ShouldBeTrue)

		// A completed interview accepts nothing further.
		_, err = svc.SubmitMessage(ctx, id, "m5", "one more thing")
		So(err, ShouldWrap, app.ErrInterviewEnded)
		So(svc.Terminate(ctx, id, "too late"), ShouldWrap, app.ErrInterviewEnded)

		// The deterministic evaluation is computed, persisted and
		// stable across calls.
		out, err := svc.Evaluate(ctx, id, app.VersionSignals)
		So(err, ShouldBeNil)
		So(out.InterviewID, ShouldEqual, id)
		So(out.Version, ShouldEqual, app.VersionSignals)
		So(out.OverallScore, ShouldNotBeNil)
		// context 1/2 of 5 weighted 0.5, tests 8/10 strong weighted 0.5.
		So(*out.OverallScore, ShouldEqual, 3.75)
		So(*out.OverallBand, ShouldEqual, evaluation.BandMixed)

		outAgain, err := svc.Evaluate(ctx, id, app.VersionSignals)
		So(err, ShouldBeNil)
		So(outAgain, ShouldResemble, out)
	})
}

func TestRefusalAndHardCap(t *testing.T) {
	ctx := context.Background()

	Convey("Given a generator with no material", t, func() {
		clock := newFakeClock()
		exhausted := textgen.Func(func(context.Context, textgen.Request) (string, error) {
			return "", nil
		})
		svc := newService(t, exhausted, clock)

		id, err := svc.CreateInterview(ctx)
		So(err, ShouldBeNil)
		So(svc.StartInterview(ctx, id), ShouldBeNil)

		Convey("A refusal re-engages instead of ending the section", func() {
			_, err := svc.SubmitMessage(ctx, id, "m1", "I don't know.")
			So(err, ShouldBeNil)

			snap, err := svc.Snapshot(ctx, id, 0)
			So(err, ShouldBeNil)
			So(snap.State.CurrentSectionID, ShouldEqual, "intro")
			So(snap.State.ActivePrompt.Kind, ShouldEqual, event.PromptFollowup)
			So(snap.State.ActivePrompt.Text, ShouldEqual, decision.ReengagementPrompt)

			Convey("And repeated refusals still hit the hard prompt cap", func() {
				_, err := svc.SubmitMessage(ctx, id, "m2", "still no idea")
				So(err, ShouldBeNil)
				// Third prompt is out: the cap of 1 initial + 2 follow-ups
				// is reached, so the next answer ends the section.
				_, err = svc.SubmitMessage(ctx, id, "m3", "pass on this")
				So(err, ShouldBeNil)

				snap, err := svc.Snapshot(ctx, id, 0)
				So(err, ShouldBeNil)
				So(snap.State.CurrentSectionID, ShouldEqual, "coding")
				intro, _ := snap.State.Progress("intro")
				So(intro.EndReason, ShouldEqual, event.EndReasonSatisfied)
			})
		})

		Convey("A non-refusal with no generator material ends the section", func() {
			_, err := svc.SubmitMessage(ctx, id, "m1", "I shipped a project with a small team.")
			So(err, ShouldBeNil)

			snap, err := svc.Snapshot(ctx, id, 0)
			So(err, ShouldBeNil)
			So(snap.State.CurrentSectionID, ShouldEqual, "coding")
		})
	})
}

func TestMessageValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-progress interview", t, func() {
		clock := newFakeClock()
		svc := newService(t, sectionProbe(), clock)
		id, err := svc.CreateInterview(ctx)
		So(err, ShouldBeNil)
		So(svc.StartInterview(ctx, id), ShouldBeNil)

		Convey("Blank messages are rejected before any write", func() {
			_, err := svc.SubmitMessage(ctx, id, "m1", "   ")
			So(err, ShouldWrap, eventstore.ErrBadRequest)
		})

		Convey("Unknown interviews are not found", func() {
			_, err := svc.SubmitMessage(ctx, "nope", "m1", "hello")
			So(err, ShouldWrap, eventstore.ErrNotFound)
		})

		Convey("Connection events append without driving the engine", func() {
			before, err := svc.Snapshot(ctx, id, 0)
			So(err, ShouldBeNil)
			So(svc.Connected(ctx, id, "web/1.4"), ShouldBeNil)
			So(svc.Disconnected(ctx, id, "network"), ShouldBeNil)

			after, err := svc.Snapshot(ctx, id, 0)
			So(err, ShouldBeNil)
			So(after.State.LastSeq, ShouldEqual, before.State.LastSeq+2)
			So(after.State.ActivePrompt.ID, ShouldEqual, before.State.ActivePrompt.ID)
		})
	})
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-progress interview", t, func() {
		clock := newFakeClock()
		svc := newService(t, sectionProbe(), clock)
		id, err := svc.CreateInterview(ctx)
		So(err, ShouldBeNil)
		So(svc.StartInterview(ctx, id), ShouldBeNil)

		Convey("A saved draft reads back until a message supersedes it", func() {
			_, ok := svc.Draft(ctx, id)
			So(ok, ShouldBeFalse)

			svc.SaveDraft(ctx, id, "half-typed ans")
			draft, ok := svc.Draft(ctx, id)
			So(ok, ShouldBeTrue)
			So(draft, ShouldEqual, "half-typed ans")

			_, err := svc.SubmitMessage(ctx, id, "m1", "the real project answer")
			So(err, ShouldBeNil)
			_, ok = svc.Draft(ctx, id)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEvaluationPaths(t *testing.T) {
	ctx := context.Background()

	Convey("Given evaluation requests", t, func() {
		clock := newFakeClock()
		svc := newService(t, sectionProbe(), clock)

		Convey("An interview still in progress cannot be evaluated", func() {
			id, err := svc.CreateInterview(ctx)
			So(err, ShouldBeNil)
			So(svc.StartInterview(ctx, id), ShouldBeNil)

			_, err = svc.Evaluate(ctx, id, app.VersionSignals)
			So(err, ShouldWrap, app.ErrNotCompleted)
		})

		Convey("Unknown versions and interviews are rejected", func() {
			id := terminated(t, ctx, svc)

			_, err := svc.Evaluate(ctx, id, "vibes-v1")
			So(err, ShouldWrap, app.ErrUnknownVersion)

			_, err = svc.Evaluate(ctx, "missing", app.VersionSignals)
			So(err, ShouldWrap, eventstore.ErrNotFound)
		})

		Convey("The judge path is dark without a configured client", func() {
			id := terminated(t, ctx, svc)

			_, err := svc.Evaluate(ctx, id, app.VersionJudge)
			So(err, ShouldWrap, app.ErrJudgeNotConfigured)
		})

		Convey("Overrides require an existing result", func() {
			id := terminated(t, ctx, svc)

			err := svc.SaveOverride(ctx, evaluation.Override{
				InterviewID: id, Version: app.VersionSignals,
				Band: evaluation.BandStrong, Reviewer: "sam",
			})
			So(err, ShouldWrap, evalstore.ErrNotFound)

			_, err = svc.Evaluate(ctx, id, app.VersionSignals)
			So(err, ShouldBeNil)
			So(svc.SaveOverride(ctx, evaluation.Override{
				InterviewID: id, Version: app.VersionSignals,
				Band: evaluation.BandStrong, Reviewer: "sam", Note: "credit the design depth",
			}), ShouldBeNil)

			overrides, err := svc.Overrides(ctx, id, app.VersionSignals)
			So(err, ShouldBeNil)
			So(overrides, ShouldHaveLength, 1)
			So(overrides[0].Reviewer, ShouldEqual, "sam")
		})
	})
}

func TestJudgeEvaluation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a scripted judge client", t, func() {
		clock := newFakeClock()
		client := judgeclient.NewScripted(func(req judge.Request) (json.RawMessage, error) {
			if req.Stage == judge.StageExtract {
				return json.RawMessage(`{"claims":["answered briefly"],"topics":["projects"]}`), nil
			}
			return json.RawMessage(`{"base_initial_score":0.6,"followup_score":0.4}`), nil
		})
		svc := newService(t, sectionProbe(), clock, app.WithJudgeClient(client))

		Convey("The judge evaluation carries its version and all sections", func() {
			id := terminated(t, ctx, svc)

			out, err := svc.Evaluate(ctx, id, app.VersionJudge)
			So(err, ShouldBeNil)
			So(out.Version, ShouldEqual, app.VersionJudge)
			So(out.Sections, ShouldHaveLength, 3)
			So(out.OverallScore, ShouldNotBeNil)

			stored, err := svc.Evaluation(ctx, id, app.VersionJudge)
			So(err, ShouldBeNil)
			So(stored, ShouldResemble, out)
		})
	})
}

func TestAsyncEvaluation(t *testing.T) {
	ctx := context.Background()

	Convey("Given the asynchronous pipeline", t, func() {
		clock := newFakeClock()
		svc := newService(t, sectionProbe(), clock, app.WithWorkerCount(1), app.WithQueueSize(4))

		Convey("Enqueuing before Start is refused", func() {
			id := terminated(t, ctx, svc)
			_, err := svc.EnqueueEvaluation(ctx, id, app.VersionSignals)
			So(err, ShouldNotBeNil)
		})

		Convey("With the pipeline running", func() {
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			Convey("A queued run completes and persists its result", func() {
				id := terminated(t, ctx, svc)

				jobID, err := svc.EnqueueEvaluation(ctx, id, app.VersionSignals)
				So(err, ShouldBeNil)
				So(jobID, ShouldNotBeEmpty)

				deadline := time.Now().Add(2 * time.Second)
				var job evalstore.Job
				for time.Now().Before(deadline) {
					job, err = svc.Job(ctx, jobID)
					So(err, ShouldBeNil)
					if job.Status == evalstore.JobCompleted {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(job.Status, ShouldEqual, evalstore.JobCompleted)

				out, err := svc.Evaluation(ctx, id, app.VersionSignals)
				So(err, ShouldBeNil)
				So(out.InterviewID, ShouldEqual, id)
			})

			Convey("Bad requests are rejected before queuing", func() {
				id := terminated(t, ctx, svc)

				_, err := svc.EnqueueEvaluation(ctx, id, "vibes-v1")
				So(err, ShouldWrap, app.ErrUnknownVersion)

				open, err := svc.CreateInterview(ctx)
				So(err, ShouldBeNil)
				So(svc.StartInterview(ctx, open), ShouldBeNil)
				_, err = svc.EnqueueEvaluation(ctx, open, app.VersionSignals)
				So(err, ShouldWrap, app.ErrNotCompleted)
			})

			Convey("Stats reflect the running pipeline", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["schemaVersion"], ShouldEqual, "test-v1")
				So(stats, ShouldContainKey, "queueLength")
			})
		})
	})
}
