package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/rehberci/backupd/internal/domain"
)

// completedJob plants a completed job directly in the ledger with a
// deterministic creation time and artifact.
func completedJob(ctx context.Context, ledger *memLedger, artifacts *fakeArtifacts, createdAt time.Time, n int) domain.BackupJob {
	job := domain.NewBackupJob([]string{"isletmeler"}, createdAt)
	job.Status = domain.StatusCompleted
	job.FileName = fmt.Sprintf("backup_%s_%d.json", job.ID, n)
	job.FileSize = 10
	done := createdAt.Add(time.Minute)
	job.CompletedAt = &done
	if err := ledger.Create(ctx, job); err != nil {
		panic(err)
	}
	_ = artifacts.Upload(ctx, job.FileName, []byte("{}"))
	return job
}

func TestRetention(t *testing.T) {
	ctx := context.Background()

	Convey("Given 15 completed jobs and retention_count=10", t, func() {
		ledger := newMemLedger()
		artifacts := newFakeArtifacts()
		retention := NewRetention(ledger, artifacts, nopLogger{})

		base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		var jobs []domain.BackupJob
		for i := 0; i < 15; i++ {
			jobs = append(jobs, completedJob(ctx, ledger, artifacts, base.Add(time.Duration(i)*time.Hour), i))
		}

		Convey("Enforce deletes exactly the 5 oldest", func() {
			deleted, err := retention.Enforce(ctx, 10)
			So(err, ShouldBeNil)
			So(deleted, ShouldHaveLength, 5)
			So(artifacts.removeCount(), ShouldEqual, 5)

			remaining, err := ledger.ListByStatus(ctx, domain.StatusCompleted)
			So(err, ShouldBeNil)
			So(remaining, ShouldHaveLength, 10)

			Convey("and the 10 newest are exactly the ones retained", func() {
				kept := map[string]bool{}
				for _, job := range remaining {
					kept[job.ID] = true
				}
				for i, job := range jobs {
					So(kept[job.ID], ShouldEqual, i >= 5)
				}
			})

			Convey("and a second pass is a no-op", func() {
				again, err := retention.Enforce(ctx, 10)
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
				So(artifacts.removeCount(), ShouldEqual, 5)
			})
		})

		Convey("Failed and in-progress jobs are never counted or deleted", func() {
			failed := domain.NewBackupJob([]string{"isletmeler"}, base.Add(-24*time.Hour))
			failed.Status = domain.StatusInProgress
			So(ledger.Create(ctx, failed), ShouldBeNil)

			deleted, err := retention.Enforce(ctx, 10)
			So(err, ShouldBeNil)
			So(deleted, ShouldHaveLength, 5)

			_, err = ledger.Get(ctx, failed.ID)
			So(err, ShouldBeNil)
		})

		Convey("A failing artifact delete skips that entry but not the rest", func() {
			victim := jobs[2] // third-oldest
			artifacts.removeErrOn = map[string]bool{victim.FileName: true}

			deleted, err := retention.Enforce(ctx, 10)
			So(err, ShouldBeNil)
			So(deleted, ShouldHaveLength, 4)

			Convey("The stuck entry stays in the ledger for the next pass", func() {
				_, err := ledger.Get(ctx, victim.ID)
				So(err, ShouldBeNil)

				remaining, _ := ledger.ListByStatus(ctx, domain.StatusCompleted)
				So(remaining, ShouldHaveLength, 11)
			})
		})

		Convey("A non-positive retention count is refused", func() {
			_, err := retention.Enforce(ctx, 0)
			So(err, ShouldNotBeNil)
		})
	})
}
