package textgen_test

import (
	"context"
	"testing"

	"github.com/okian/parley/internal/adapters/textgen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	gen := textgen.NewStatic()

	Convey("Given the static follow-up generator", t, func() {
		Convey("A keyed probe fires when the answer mentions its trigger", func() {
			q, err := gen.Followup(ctx, textgen.Request{
				SectionID:  "system_design",
				LastAnswer: "I would put a QUEUE between the producers and the workers.",
			})
			So(err, ShouldBeNil)
			So(q, ShouldContainSubstring, "consumer falls behind")
		})

		Convey("An already-asked probe is skipped", func() {
			first, err := gen.Followup(ctx, textgen.Request{LastAnswer: "a queue"})
			So(err, ShouldBeNil)

			second, err := gen.Followup(ctx, textgen.Request{
				LastAnswer:      "still about the queue",
				RecentQuestions: []string{first},
			})
			So(err, ShouldBeNil)
			So(second, ShouldNotEqual, first)
			So(second, ShouldNotBeEmpty)
		})

		Convey("Generic probes fill in when nothing keyed applies", func() {
			q, err := gen.Followup(ctx, textgen.Request{LastAnswer: "I would wing it."})
			So(err, ShouldBeNil)
			So(q, ShouldContainSubstring, "concrete")
		})

		Convey("Exhausting the material yields empty, not an error", func() {
			var asked []string
			for i := 0; i < 16; i++ {
				q, err := gen.Followup(ctx, textgen.Request{
					LastAnswer:      "queue cache lock retry database",
					RecentQuestions: asked,
				})
				So(err, ShouldBeNil)
				if q == "" {
					break
				}
				asked = append(asked, q)
			}
			So(asked, ShouldHaveLength, 9)

			q, err := gen.Followup(ctx, textgen.Request{
				LastAnswer:      "queue cache lock retry database",
				RecentQuestions: asked,
			})
			So(err, ShouldBeNil)
			So(q, ShouldBeEmpty)
		})
	})
}
