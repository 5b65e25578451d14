package domain

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJobStatusTransitions(t *testing.T) {
	Convey("Given the job status lifecycle", t, func() {
		statuses := []JobStatus{StatusPending, StatusInProgress, StatusCompleted, StatusFailed}

		allowed := map[JobStatus][]JobStatus{
			StatusPending:    {StatusInProgress},
			StatusInProgress: {StatusCompleted, StatusFailed},
			StatusCompleted:  {},
			StatusFailed:     {},
		}

		Convey("Only forward edges are permitted", func() {
			for _, from := range statuses {
				permitted := map[JobStatus]bool{}
				for _, to := range allowed[from] {
					permitted[to] = true
				}
				for _, to := range statuses {
					So(from.CanTransitionTo(to), ShouldEqual, permitted[to])
				}
			}
		})

		Convey("Terminal statuses accept nothing, including revival", func() {
			So(StatusCompleted.CanTransitionTo(StatusInProgress), ShouldBeFalse)
			So(StatusCompleted.CanTransitionTo(StatusPending), ShouldBeFalse)
			So(StatusFailed.CanTransitionTo(StatusInProgress), ShouldBeFalse)
			So(StatusCompleted.Terminal(), ShouldBeTrue)
			So(StatusFailed.Terminal(), ShouldBeTrue)
			So(StatusPending.Terminal(), ShouldBeFalse)
			So(StatusInProgress.Terminal(), ShouldBeFalse)
		})

		Convey("Self-transitions are not transitions", func() {
			for _, s := range statuses {
				So(s.CanTransitionTo(s), ShouldBeFalse)
			}
		})
	})
}

func TestNewBackupJob(t *testing.T) {
	Convey("Given a new backup job", t, func() {
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		job := NewBackupJob([]string{"isletmeler", "musteriler"}, now)

		Convey("It starts pending with a unique id and fixed tables", func() {
			So(job.ID, ShouldNotBeEmpty)
			So(job.Status, ShouldEqual, StatusPending)
			So(job.Tables, ShouldResemble, []string{"isletmeler", "musteriler"})
			So(job.CreatedAt, ShouldResemble, now)
			So(job.CompletedAt, ShouldBeNil)
		})

		Convey("Two jobs never share an id", func() {
			other := NewBackupJob([]string{"isletmeler"}, now)
			So(other.ID, ShouldNotEqual, job.ID)
		})

		Convey("The table slice is copied, not aliased", func() {
			input := []string{"isletmeler"}
			created := NewBackupJob(input, now)
			input[0] = "mutated"
			So(created.Tables[0], ShouldEqual, "isletmeler")
		})
	})
}
