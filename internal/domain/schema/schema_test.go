package schema_test

import (
	"testing"
	"time"

	"github.com/okian/parley/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func sections() []schema.Section {
	return []schema.Section{
		{ID: "intro", Name: "Introduction", Duration: 5 * time.Minute, Initial: schema.Prompt{ID: "intro-q1", Text: "Hello"}},
		{ID: "design", Name: "Design", Duration: 20 * time.Minute, Initial: schema.Prompt{ID: "design-q1", Text: "Design"}},
	}
}

func TestNew(t *testing.T) {
	Convey("Given schema construction", t, func() {
		Convey("A valid schema indexes its sections", func() {
			sch, err := schema.New("v1", sections(), nil, nil, schema.Tunables{})
			So(err, ShouldBeNil)

			sec, ok := sch.Section("design")
			So(ok, ShouldBeTrue)
			So(sec.Name, ShouldEqual, "Design")

			_, ok = sch.Section("missing")
			So(ok, ShouldBeFalse)
		})

		Convey("An empty version is rejected", func() {
			_, err := schema.New("  ", sections(), nil, nil, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})

		Convey("A schema without sections is rejected", func() {
			_, err := schema.New("v1", nil, nil, nil, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})

		Convey("Duplicate section ids are rejected", func() {
			dup := append(sections(), schema.Section{ID: "intro", Duration: time.Minute})
			_, err := schema.New("v1", dup, nil, nil, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})

		Convey("A section without a duration is rejected", func() {
			bad := sections()
			bad[0].Duration = 0
			_, err := schema.New("v1", bad, nil, nil, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})

		Convey("Signal patterns compile case-insensitively at construction", func() {
			rules := []schema.SignalRule{{Name: "tradeoffs", Patterns: []string{`trade.?off`}}}
			sch, err := schema.New("v1", sections(), rules, nil, schema.Tunables{})
			So(err, ShouldBeNil)

			compiled := sch.Signals[0].Compiled()
			So(compiled, ShouldHaveLength, 1)
			So(compiled[0].MatchString("the main TRADE-OFF here"), ShouldBeTrue)
		})

		Convey("An invalid signal pattern is rejected", func() {
			rules := []schema.SignalRule{{Name: "broken", Patterns: []string{`(`}}}
			_, err := schema.New("v1", sections(), rules, nil, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})

		Convey("A metric without signals or scale is rejected", func() {
			_, err := schema.New("v1", sections(), nil, []schema.MetricGroup{{Name: "empty", Scale: 5}}, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)

			_, err = schema.New("v1", sections(), nil, []schema.MetricGroup{{Name: "flat", Signals: []string{"x"}}}, schema.Tunables{})
			So(err, ShouldWrap, schema.ErrInvalidSchema)
		})
	})
}

func TestTraversal(t *testing.T) {
	Convey("Given a valid schema", t, func() {
		sch, err := schema.New("v1", sections(), nil, nil, schema.Tunables{})
		So(err, ShouldBeNil)

		Convey("First returns the opening section", func() {
			So(sch.First().ID, ShouldEqual, "intro")
		})

		Convey("Next walks the declared order and stops at the end", func() {
			next, ok := sch.Next("intro")
			So(ok, ShouldBeTrue)
			So(next.ID, ShouldEqual, "design")

			_, ok = sch.Next("design")
			So(ok, ShouldBeFalse)

			_, ok = sch.Next("missing")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("Given the built-in interview shape", t, func() {
		sch := schema.Default()

		Convey("It is internally consistent", func() {
			So(sch.Version, ShouldNotBeEmpty)
			So(len(sch.Sections), ShouldBeGreaterThan, 0)
			So(sch.Tunables.MaxFollowUps, ShouldEqual, 4)
			So(sch.Tunables.FollowUpBudget, ShouldEqual, 2)
			So(sch.Tunables.OverlapThreshold, ShouldEqual, 0.65)
		})

		Convey("Every metric references a declared rule or the synthetic test-pass signal", func() {
			known := map[string]bool{"tests_passed": true}
			for _, r := range sch.Signals {
				known[r.Name] = true
			}
			for _, m := range sch.Metrics {
				for _, sig := range m.Signals {
					So(known[sig], ShouldBeTrue)
				}
			}
		})

		Convey("Exactly one section is non-interactive", func() {
			n := 0
			for _, sec := range sch.Sections {
				if sec.NonInteractive {
					n++
				}
			}
			So(n, ShouldEqual, 1)
		})

		Convey("Follow-up limits can be overridden at construction", func() {
			tuned := schema.Default(
				schema.WithMaxFollowUps(1),
				schema.WithFollowUpBudget(0),
			)
			So(tuned.Tunables.MaxFollowUps, ShouldEqual, 1)
			So(tuned.Tunables.FollowUpBudget, ShouldEqual, 0)
			// Untouched tunables keep their stock values.
			So(tuned.Tunables.OverlapThreshold, ShouldEqual, 0.65)

			ignored := schema.Default(schema.WithMaxFollowUps(-1))
			So(ignored.Tunables.MaxFollowUps, ShouldEqual, 4)
		})
	})
}
