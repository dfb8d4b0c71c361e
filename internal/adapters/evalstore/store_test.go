package evalstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/eventstore"
	"github.com/okian/parley/internal/domain/evaluation"
	. "github.com/smartystreets/goconvey/convey"
)

func openStores(t *testing.T) map[string]evalstore.Store {
	t.Helper()

	db, err := eventstore.Open(filepath.Join(t.TempDir(), "evals.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sqlite, err := evalstore.NewSQLite(db)
	if err != nil {
		t.Fatalf("init sqlite store: %v", err)
	}

	return map[string]evalstore.Store{
		"memory": evalstore.NewMemory(),
		"sqlite": sqlite,
	}
}

func sampleOutput(interviewID, version string) evaluation.Output {
	score := 3.4
	band := evaluation.BandMixed
	return evaluation.Output{
		InterviewID:  interviewID,
		Version:      version,
		OverallScore: &score,
		OverallBand:  &band,
		Metrics: []evaluation.Metric{
			{Name: "communication", Value: 3.75, Scale: 5, Explanation: "3 of 4 signal points",
				Evidence: []evaluation.EvidencePointer{
					{Type: evaluation.EvidenceQuote, SectionID: "intro", SeqStart: 5, SeqEnd: 5, Quote: "I led the storage work"},
				}},
		},
		Sections: []evaluation.SectionEvaluation{},
	}
}

func TestResults(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		Convey("Given the "+name+" store", t, func() {
			Convey("A saved result reads back intact", func() {
				want := sampleOutput("int-1", "signals-v1")
				So(store.SaveResult(ctx, want), ShouldBeNil)

				got, err := store.GetResult(ctx, "int-1", "signals-v1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			})

			Convey("The result row is write-once per interview and version", func() {
				So(store.SaveResult(ctx, sampleOutput("int-2", "signals-v1")), ShouldBeNil)

				err := store.SaveResult(ctx, sampleOutput("int-2", "signals-v1"))
				So(err, ShouldWrap, evalstore.ErrAlreadyExists)

				// A different version for the same interview is a new row.
				So(store.SaveResult(ctx, sampleOutput("int-2", "judge-v1")), ShouldBeNil)
			})

			Convey("A missing result is not found", func() {
				_, err := store.GetResult(ctx, "int-none", "signals-v1")
				So(err, ShouldWrap, evalstore.ErrNotFound)
			})
		})
	}
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		Convey("Given the "+name+" store", t, func() {
			Convey("Overrides accumulate beside the result, oldest first", func() {
				So(store.SaveResult(ctx, sampleOutput("int-1", "signals-v1")), ShouldBeNil)

				first := evaluation.Override{InterviewID: "int-1", Version: "signals-v1", Band: evaluation.BandStrong, Reviewer: "sam", Note: "under-credited design depth"}
				second := evaluation.Override{InterviewID: "int-1", Version: "signals-v1", Band: evaluation.BandMixed, Reviewer: "ravi"}
				So(store.SaveOverride(ctx, first), ShouldBeNil)
				So(store.SaveOverride(ctx, second), ShouldBeNil)

				got, err := store.Overrides(ctx, "int-1", "signals-v1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []evaluation.Override{first, second})

				// The result row itself stays untouched.
				out, err := store.GetResult(ctx, "int-1", "signals-v1")
				So(err, ShouldBeNil)
				So(*out.OverallBand, ShouldEqual, evaluation.BandMixed)
			})

			Convey("No overrides yields an empty list, not an error", func() {
				got, err := store.Overrides(ctx, "int-9", "signals-v1")
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})
	}
}

func TestJobs(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		Convey("Given the "+name+" store", t, func() {
			Convey("A created job starts pending with timestamps", func() {
				So(store.CreateJob(ctx, evalstore.Job{ID: "job-1", InterviewID: "int-1", Version: "signals-v1"}), ShouldBeNil)

				job, err := store.GetJob(ctx, "job-1")
				So(err, ShouldBeNil)
				So(job.Status, ShouldEqual, evalstore.JobPending)
				So(job.InterviewID, ShouldEqual, "int-1")
				So(job.CreatedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Updates transition status and capture the error", func() {
				So(store.CreateJob(ctx, evalstore.Job{ID: "job-2", InterviewID: "int-1", Version: "signals-v1"}), ShouldBeNil)
				So(store.UpdateJob(ctx, "job-2", evalstore.JobRunning, ""), ShouldBeNil)
				So(store.UpdateJob(ctx, "job-2", evalstore.JobFailed, "judge unreachable"), ShouldBeNil)

				job, err := store.GetJob(ctx, "job-2")
				So(err, ShouldBeNil)
				So(job.Status, ShouldEqual, evalstore.JobFailed)
				So(job.Error, ShouldEqual, "judge unreachable")
			})

			Convey("Unknown jobs are not found", func() {
				_, err := store.GetJob(ctx, "job-none")
				So(err, ShouldWrap, evalstore.ErrNotFound)

				err = store.UpdateJob(ctx, "job-none", evalstore.JobRunning, "")
				So(err, ShouldWrap, evalstore.ErrNotFound)
			})
		})
	}
}
