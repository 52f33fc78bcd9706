package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-tracker-backend/config"
	"job-tracker-backend/models/jobs"
)

// countingDurable applies mutations directly and counts them.
type countingDurable struct{ writes atomic.Int32 }

func (d *countingDurable) Write(_ context.Context, fn func() error) error {
	d.writes.Add(1)
	return fn()
}

const (
	alice uint = 1
	bob   uint = 2
)

func newRepo(t *testing.T) (*Repository, *countingDurable) {
	t.Helper()
	db, err := config.OpenDB("file::memory:")
	require.NoError(t, err)
	d := &countingDurable{}
	return NewRepository(db, d), d
}

func acme() Input {
	return Input{
		Company:     "Acme",
		Role:        "Engineer",
		Location:    "Remote",
		JobURL:      "https://acme.example/jobs/1",
		Source:      "LinkedIn",
		Budget:      "20-25 LPA",
		AppliedDate: "2024-03-15",
		Status:      jobs.StatusApplied,
		Description: "Build things",
		Comments:    "referral from Sam",
	}
}

func TestCreateThenGet(t *testing.T) {
	repo, durable := newRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, alice, acme())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int32(1), durable.writes.Load())

	got, err := repo.Get(ctx, alice, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, alice, got.UserID)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Engineer", got.Role)
	assert.Equal(t, "Remote", got.Location)
	assert.Equal(t, "https://acme.example/jobs/1", got.JobURL)
	assert.Equal(t, "LinkedIn", got.Source)
	assert.Equal(t, "20-25 LPA", got.Budget)
	assert.Equal(t, "2024-03-15", got.AppliedOn())
	assert.Equal(t, jobs.StatusApplied, got.Status)
	assert.Equal(t, "Build things", got.Description)
	assert.Equal(t, "referral from Sam", got.Comments)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestCreateTrimsAndValidates(t *testing.T) {
	repo, durable := newRepo(t)
	ctx := context.Background()

	in := acme()
	in.Company = "  Acme  "
	job, err := repo.Create(ctx, alice, in)
	require.NoError(t, err)
	assert.Equal(t, "Acme", job.Company)

	for name, mutate := range map[string]func(*Input){
		"company":    func(in *Input) { in.Company = "   " },
		"role":       func(in *Input) { in.Role = "" },
		"status":     func(in *Input) { in.Status = "" },
		"bad status": func(in *Input) { in.Status = "Ghosted" },
		"bad date":   func(in *Input) { in.AppliedDate = "15/03/2024" },
	} {
		t.Run(name, func(t *testing.T) {
			bad := acme()
			mutate(&bad)
			_, err := repo.Create(ctx, alice, bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
	// rejected input never reaches the durable writer
	assert.Equal(t, int32(1), durable.writes.Load())
}

func TestCreateWithoutDate(t *testing.T) {
	repo, _ := newRepo(t)
	in := acme()
	in.AppliedDate = ""
	job, err := repo.Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.Nil(t, job.AppliedDate)
}

func TestListNewestFirst(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, company := range []string{"First", "Second", "Third"} {
		in := acme()
		in.Company = company
		_, err := repo.Create(ctx, alice, in)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, bob, acme())
	require.NoError(t, err)

	list, err := repo.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Third", list[0].Company)
	assert.Equal(t, "Second", list[1].Company)
	assert.Equal(t, "First", list[2].Company)
}

func TestOwnershipIsolation(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, alice, acme())
	require.NoError(t, err)

	list, err := repo.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := repo.Get(ctx, bob, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := repo.UpdateStatus(ctx, bob, job.ID, jobs.StatusJoined)
	require.NoError(t, err)
	assert.False(t, ok)

	other := acme()
	other.Company = "Hijacked"
	ok, err = repo.Replace(ctx, bob, job.ID, other)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := repo.Delete(ctx, bob, job.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	// alice's job is untouched
	got, err = repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, jobs.StatusApplied, got.Status)
	assert.True(t, got.UpdatedAt.Equal(job.UpdatedAt))
}

func TestUpdateStatusChangesOnlyStatus(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, alice, acme())
	require.NoError(t, err)
	before, err := repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(ctx, alice, job.ID, jobs.StatusJoined)
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusJoined, after.Status)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))

	// everything else is identical
	after.Status = before.Status
	after.UpdatedAt = before.UpdatedAt
	after.CreatedAt = before.CreatedAt
	assert.Equal(t, InputFromJob(before), InputFromJob(after))
	assert.Equal(t, before.UserID, after.UserID)
}

func TestUpdateStatusStrictlyIncreasesWithFrozenClock(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	job, err := repo.Create(ctx, alice, acme())
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, alice, job.ID, jobs.StatusShortlisted)
	require.NoError(t, err)
	got, err := repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestUpdateStatusRejectsUnknownStage(t *testing.T) {
	repo, _ := newRepo(t)
	job, err := repo.Create(context.Background(), alice, acme())
	require.NoError(t, err)

	_, err = repo.UpdateStatus(context.Background(), alice, job.ID, "Ghosted")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestUpdateStatusMissingJob(t *testing.T) {
	repo, _ := newRepo(t)
	ok, err := repo.UpdateStatus(context.Background(), alice, 404, jobs.StatusJoined)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	in := acme()
	in.JDFilename = "1/abc-jd.pdf"
	job, err := repo.Create(ctx, alice, in)
	require.NoError(t, err)

	edit := Input{
		Company: "Acme Corp",
		Role:    "Staff Engineer",
		Status:  jobs.StatusTechnicalInterview,
	}
	ok, err := repo.Replace(ctx, alice, job.ID, edit)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Company)
	assert.Equal(t, "Staff Engineer", got.Role)
	assert.Equal(t, jobs.StatusTechnicalInterview, got.Status)
	assert.Empty(t, got.Location)
	assert.Empty(t, got.Comments)
	assert.Nil(t, got.AppliedDate)
	assert.Equal(t, "1/abc-jd.pdf", got.JDFilename, "attachment kept")
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	edit.JDFilename = "1/def-new.pdf"
	_, err = repo.Replace(ctx, alice, job.ID, edit)
	require.NoError(t, err)
	got, err = repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "1/def-new.pdf", got.JDFilename)

	byKey, err := repo.GetByAttachment(ctx, alice, "1/def-new.pdf")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, job.ID, byKey.ID)

	byKey, err = repo.GetByAttachment(ctx, bob, "1/def-new.pdf")
	require.NoError(t, err)
	assert.Nil(t, byKey)
}

func TestReplaceValidates(t *testing.T) {
	repo, _ := newRepo(t)
	job, err := repo.Create(context.Background(), alice, acme())
	require.NoError(t, err)

	_, err = repo.Replace(context.Background(), alice, job.ID, Input{Company: "x"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, alice, acme())
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, alice, job.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, job.ID, deleted.ID)

	got, err := repo.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = repo.Delete(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func TestStats(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	for _, status := range []string{jobs.StatusApplied, jobs.StatusApplied, jobs.StatusJoined} {
		in := acme()
		in.Status = status
		_, err := repo.Create(ctx, alice, in)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, bob, acme())
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{jobs.StatusApplied: 2, jobs.StatusJoined: 1}, stats)
}

// durable writer failures reach the caller
type failingDurable struct{}

func (failingDurable) Write(_ context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return errors.New("push failed")
}

func TestCreateSurfacesPushFailure(t *testing.T) {
	db, err := config.OpenDB("file::memory:")
	require.NoError(t, err)
	repo := NewRepository(db, failingDurable{})

	_, err = repo.Create(context.Background(), alice, acme())
	require.Error(t, err)
}
