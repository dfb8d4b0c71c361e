package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/parley/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a bounded in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Jobs flow through in order", func() {
			So(q.Enqueue(ctx, queue.Job{JobID: "j1", InterviewID: "int-1", Version: "signals-v1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{JobID: "j2", InterviewID: "int-2", Version: "signals-v1"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			first := <-out
			second := <-out
			So(first.JobID, ShouldEqual, "j1")
			So(second.JobID, ShouldEqual, "j2")
		})

		Convey("A full queue rejects instead of blocking", func() {
			So(q.Enqueue(ctx, queue.Job{JobID: "j1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{JobID: "j2"}), ShouldBeTrue)

			done := make(chan bool, 1)
			go func() { done <- q.Enqueue(ctx, queue.Job{JobID: "j3"}) }()
			select {
			case accepted := <-done:
				So(accepted, ShouldBeFalse)
			case <-time.After(time.Second):
				t.Fatal("enqueue blocked on a full queue")
			}
		})

		Convey("Close drains remaining jobs then ends the dequeue channel", func() {
			So(q.Enqueue(ctx, queue.Job{JobID: "j1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			out := q.Dequeue(ctx)
			job, ok := <-out
			So(ok, ShouldBeTrue)
			So(job.JobID, ShouldEqual, "j1")

			_, ok = <-out
			So(ok, ShouldBeFalse)
		})

		Convey("A closed queue accepts nothing and closes idempotently", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{JobID: "late"}), ShouldBeFalse)
			So(q.Close(), ShouldBeNil)
		})
	})
}
