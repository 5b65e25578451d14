package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a Scheduler", t, func() {
		Convey("New creates a cron-backed scheduler", func() {
			s := New()
			So(s, ShouldNotBeNil)
			So(s.cron, ShouldNotBeNil)
		})

		Convey("AddJob rejects an invalid cron spec", func() {
			s := New()
			err := s.AddJob("not a spec", func(context.Context) error { return nil })
			So(err, ShouldNotBeNil)
		})

		Convey("AddJob accepts the tick spec", func() {
			s := New()
			err := s.AddJob(TickSpec, func(context.Context) error { return nil })
			So(err, ShouldBeNil)
		})

		Convey("A scheduled job runs and stops with the scheduler", func() {
			s := New()
			var runs atomic.Int64
			err := s.AddJob("* * * * * *", func(context.Context) error { // every second
				runs.Add(1)
				return nil
			})
			So(err, ShouldBeNil)

			s.Start()
			time.Sleep(2500 * time.Millisecond)
			s.Stop()

			count := runs.Load()
			So(count, ShouldBeGreaterThanOrEqualTo, 1)

			time.Sleep(1500 * time.Millisecond)
			So(runs.Load(), ShouldEqual, count)
		})

		Convey("A slow job is not re-entered by the next firing", func() {
			s := New()
			var concurrent atomic.Int64
			var peak atomic.Int64
			err := s.AddJob("* * * * * *", func(context.Context) error {
				if now := concurrent.Add(1); now > peak.Load() {
					peak.Store(now)
				}
				defer concurrent.Add(-1)
				time.Sleep(1500 * time.Millisecond)
				return nil
			})
			So(err, ShouldBeNil)

			s.Start()
			time.Sleep(3 * time.Second)
			s.Stop()

			So(peak.Load(), ShouldEqual, 1)
		})
	})
}
