package signals_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/schema"
	"github.com/okian/parley/internal/domain/signals"
	. "github.com/smartystreets/goconvey/convey"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New("test-v1",
		[]schema.Section{
			{ID: "design", Duration: 10 * time.Minute, Initial: schema.Prompt{ID: "q1", Text: "?"}},
			{ID: "coding", Duration: 20 * time.Minute, Initial: schema.Prompt{ID: "q2", Text: "?"}, NonInteractive: true},
		},
		[]schema.SignalRule{
			{Name: "scaling", SectionID: "design", Patterns: []string{
				`\b(partition|shard)\w*`,
				`\b(replica|load balanc)\w*`,
			}},
			{Name: "structure", Patterns: []string{
				`\b(first|then|finally)\b`,
			}},
		},
		[]schema.MetricGroup{
			{Name: "design", Signals: []string{"scaling", "structure"}, Weight: 0.6, Scale: 5},
			{Name: "implementation", Signals: []string{"tests_passed"}, Weight: 0.4, Scale: 5},
		},
		schema.Tunables{MaxEvidencePerSignal: 2, MaxQuoteLen: 40},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return sch
}

func message(seq int64, sectionID, text string) event.Event {
	return event.Event{
		Seq:       seq,
		Type:      event.TypeCandidateMessage,
		SectionID: sectionID,
		Payload:   event.CandidateMessage{Text: text},
	}
}

func testsResult(seq int64, problemID string, passed, total int) event.Event {
	return event.Event{
		Seq:       seq,
		Type:      event.TypeCodeTestsResult,
		SectionID: "coding",
		Payload:   event.CodeTestsResult{ProblemID: problemID, Passed: passed, Total: total},
	}
}

func signalByName(sigs []evaluation.Signal, name string) (evaluation.Signal, bool) {
	for _, s := range sigs {
		if s.Name == name {
			return s, true
		}
	}
	return evaluation.Signal{}, false
}

func TestExtract(t *testing.T) {
	sch := testSchema(t)
	x := signals.NewExtractor(sch)

	Convey("Given the rule-driven extractor", t, func() {
		Convey("No qualifying messages yields value 0 with no evidence", func() {
			sigs := x.Extract(nil)
			sig, ok := signalByName(sigs, "scaling")
			So(ok, ShouldBeTrue)
			So(sig.Value, ShouldEqual, 0)
			So(sig.Explanation, ShouldEqual, "no evidence")
			So(sig.Evidence, ShouldNotBeNil)
			So(sig.Evidence, ShouldBeEmpty)
		})

		Convey("One matched pattern group yields value 1", func() {
			sigs := x.Extract([]event.Event{
				message(5, "design", "I would partition the stream by device id."),
			})
			sig, _ := signalByName(sigs, "scaling")
			So(sig.Value, ShouldEqual, 1)
			So(sig.Explanation, ShouldEqual, "one pattern group matched")
			So(sig.Evidence, ShouldHaveLength, 1)
			So(sig.Evidence[0].SeqStart, ShouldEqual, 5)
			So(sig.Evidence[0].SeqEnd, ShouldEqual, 5)
		})

		Convey("Distinct pattern groups accumulate across messages, capped at 2", func() {
			sigs := x.Extract([]event.Event{
				message(5, "design", "Partition by key."),
				message(7, "design", "Each shard gets a read replica."),
			})
			sig, _ := signalByName(sigs, "scaling")
			So(sig.Value, ShouldEqual, 2)
			So(sig.Evidence, ShouldHaveLength, 2)
		})

		Convey("Section-scoped rules ignore other sections", func() {
			sigs := x.Extract([]event.Event{
				message(5, "intro", "We partitioned everything."),
			})
			sig, _ := signalByName(sigs, "scaling")
			So(sig.Value, ShouldEqual, 0)
		})

		Convey("Unscoped rules scan the whole transcript", func() {
			sigs := x.Extract([]event.Event{
				message(5, "intro", "First I set context, then I go deep."),
			})
			sig, _ := signalByName(sigs, "structure")
			So(sig.Value, ShouldEqual, 1)
		})

		Convey("Evidence respects the per-signal cap and quote limit", func() {
			long := "partition " + strings.Repeat("x", 100)
			sigs := x.Extract([]event.Event{
				message(5, "design", long),
				message(6, "design", "partition again"),
				message(7, "design", "partition a third time"),
			})
			sig, _ := signalByName(sigs, "scaling")
			So(sig.Evidence, ShouldHaveLength, 2)
			So(len(sig.Evidence[0].Quote), ShouldEqual, 40)
		})

		Convey("Quote truncation never splits a rune", func() {
			// Byte 40 lands inside the two-byte "é".
			long := "partition " + strings.Repeat("x", 29) + "é and more"
			sigs := x.Extract([]event.Event{message(5, "design", long)})
			sig, _ := signalByName(sigs, "scaling")
			So(sig.Evidence, ShouldNotBeEmpty)
			quote := sig.Evidence[0].Quote
			So(len(quote), ShouldBeLessThanOrEqualTo, 40)
			So(utf8.ValidString(quote), ShouldBeTrue)
		})

		Convey("Signals come back sorted by name", func() {
			sigs := x.Extract(nil)
			So(sigs, ShouldHaveLength, 2)
			So(sigs[0].Name, ShouldEqual, "scaling")
			So(sigs[1].Name, ShouldEqual, "structure")
		})
	})

	Convey("Given the synthetic tests_passed signal", t, func() {
		Convey("It does not exist without code events", func() {
			sigs := x.Extract([]event.Event{message(5, "design", "partition")})
			_, ok := signalByName(sigs, "tests_passed")
			So(ok, ShouldBeFalse)
		})

		Convey("A strong pass fraction scores 2", func() {
			sigs := x.Extract([]event.Event{testsResult(9, "p1", 9, 10)})
			sig, ok := signalByName(sigs, "tests_passed")
			So(ok, ShouldBeTrue)
			So(sig.Value, ShouldEqual, 2)
			So(sig.Explanation, ShouldEqual, "9 of 10 automated tests passed")
		})

		Convey("Results accumulate across problems", func() {
			sigs := x.Extract([]event.Event{
				testsResult(9, "p1", 5, 10),
				testsResult(11, "p2", 1, 10),
			})
			sig, _ := signalByName(sigs, "tests_passed")
			So(sig.Value, ShouldEqual, 1)
			So(sig.Explanation, ShouldEqual, "6 of 20 automated tests passed")
			So(sig.Evidence, ShouldHaveLength, 2)
			So(sig.Evidence[0].Metadata["result"], ShouldEqual, "5/10")
		})

		Convey("Zero passes score 0 but the signal still exists", func() {
			sigs := x.Extract([]event.Event{testsResult(9, "p1", 0, 10)})
			sig, ok := signalByName(sigs, "tests_passed")
			So(ok, ShouldBeTrue)
			So(sig.Value, ShouldEqual, 0)
		})
	})
}

func TestComputeMetrics(t *testing.T) {
	sch := testSchema(t)

	Convey("Given metric folding", t, func() {
		Convey("A group's value is its summed signals over the group maximum, scaled", func() {
			metrics := signals.ComputeMetrics(sch, []evaluation.Signal{
				{Name: "scaling", Value: 2},
				{Name: "structure", Value: 1},
			})
			So(metrics, ShouldHaveLength, 1)
			So(metrics[0].Name, ShouldEqual, "design")
			// 3 of 4 points on a 0-5 scale.
			So(metrics[0].Value, ShouldEqual, 3.75)
			So(metrics[0].Scale, ShouldEqual, 5.0)
			So(metrics[0].Explanation, ShouldEqual, "3 of 4 signal points")
		})

		Convey("A group none of whose signals exist is omitted entirely", func() {
			metrics := signals.ComputeMetrics(sch, []evaluation.Signal{
				{Name: "scaling", Value: 1},
				{Name: "structure", Value: 0},
			})
			for _, m := range metrics {
				So(m.Name, ShouldNotEqual, "implementation")
			}
		})

		Convey("A present zero-valued signal keeps its group applicable", func() {
			metrics := signals.ComputeMetrics(sch, []evaluation.Signal{
				{Name: "tests_passed", Value: 0},
			})
			So(metrics, ShouldHaveLength, 1)
			So(metrics[0].Name, ShouldEqual, "implementation")
			So(metrics[0].Value, ShouldEqual, 0.0)
		})
	})
}

func TestAggregate(t *testing.T) {
	sch := testSchema(t)

	Convey("Given weighted aggregation", t, func() {
		Convey("All metrics present uses the declared weights", func() {
			score, band := signals.Aggregate(sch, []evaluation.Metric{
				{Name: "design", Value: 5},
				{Name: "implementation", Value: 2.5},
			})
			So(score, ShouldNotBeNil)
			// 5*0.6 + 2.5*0.4
			So(*score, ShouldEqual, 4.0)
			So(*band, ShouldEqual, evaluation.BandStrong)
		})

		Convey("Missing metrics drop their weight and the rest renormalizes", func() {
			score, band := signals.Aggregate(sch, []evaluation.Metric{
				{Name: "design", Value: 3},
			})
			So(score, ShouldNotBeNil)
			So(*score, ShouldEqual, 3.0)
			So(*band, ShouldEqual, evaluation.BandMixed)
		})

		Convey("No applicable metrics yields nil score and band", func() {
			score, band := signals.Aggregate(sch, nil)
			So(score, ShouldBeNil)
			So(band, ShouldBeNil)
		})

		Convey("Band thresholds are inclusive at the boundaries", func() {
			for value, want := range map[float64]evaluation.Band{
				4.00: evaluation.BandStrong,
				3.99: evaluation.BandMixed,
				2.75: evaluation.BandMixed,
				2.74: evaluation.BandWeak,
				0.00: evaluation.BandWeak,
			} {
				score, band := signals.Aggregate(sch, []evaluation.Metric{
					{Name: "design", Value: value},
				})
				So(*score, ShouldEqual, value)
				So(*band, ShouldEqual, want)
			}
		})
	})
}
