package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() (string, error) { return f.id, nil }

var jobCols = []string{
	"id", "url", "status", "retry_count", "error_message", "recipe_id", "created_at", "updated_at",
}

func jobRow(id, url string, status recipe.JobStatus, retries int) *pgxmock.Rows {
	now := time.Unix(1700000000, 0).UTC()
	return pgxmock.NewRows(jobCols).
		AddRow(id, url, status, retries, "", "", now, now)
}

func newMockJobStore(t *testing.T) (pgxmock.PgxPoolIface, *JobStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewJobStore(mock, fixedIDs{id: "job-1"})
	require.NoError(t, err)
	return mock, store
}

func TestJobStoreClaimInsertsNewJob(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)
	url := "https://example.com/stew"

	mock.ExpectQuery("INSERT INTO scrape_jobs").
		WithArgs("job-1", url).
		WillReturnRows(jobRow("job-1", url, recipe.JobStatusProcessing, 0))

	job, claimed, err := store.Claim(context.Background(), url)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, recipe.JobStatusProcessing, job.Status)
	require.Zero(t, job.RetryCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreClaimConflictReturnsExisting(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)
	url := "https://example.com/stew"

	// The conditional upsert touches nothing when the existing job is
	// still processing, so no row comes back.
	mock.ExpectQuery("INSERT INTO scrape_jobs").
		WithArgs("job-1", url).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM scrape_jobs WHERE url").
		WithArgs(url).
		WillReturnRows(jobRow("job-0", url, recipe.JobStatusProcessing, 2))

	job, claimed, err := store.Claim(context.Background(), url)
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, "job-0", job.ID)
	require.Equal(t, 2, job.RetryCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreReclaimFailedJob(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectQuery("UPDATE scrape_jobs").
		WithArgs("job-7").
		WillReturnRows(jobRow("job-7", "https://example.com/pie", recipe.JobStatusProcessing, 1))

	job, err := store.Reclaim(context.Background(), "job-7")
	require.NoError(t, err)
	require.Equal(t, recipe.JobStatusProcessing, job.Status)
	require.Equal(t, 1, job.RetryCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreReclaimRunningJobRejected(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectQuery("UPDATE scrape_jobs").
		WithArgs("job-7").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM scrape_jobs WHERE id").
		WithArgs("job-7").
		WillReturnRows(jobRow("job-7", "https://example.com/pie", recipe.JobStatusProcessing, 0))

	_, err := store.Reclaim(context.Background(), "job-7")
	require.ErrorIs(t, err, recipe.ErrJobRunning)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreReclaimMissingJob(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectQuery("UPDATE scrape_jobs").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM scrape_jobs WHERE id").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Reclaim(context.Background(), "nope")
	require.ErrorIs(t, err, recipe.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreComplete(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectExec("UPDATE scrape_jobs").
		WithArgs("job-1", "recipe-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Complete(context.Background(), "job-1", "recipe-9"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreFailMissingJob(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectExec("UPDATE scrape_jobs").
		WithArgs("gone", recipe.NoRecipeMessage).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Fail(context.Background(), "gone", recipe.NoRecipeMessage)
	require.ErrorIs(t, err, recipe.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreGetNotFound(t *testing.T) {
	t.Parallel()

	mock, store := newMockJobStore(t)

	mock.ExpectQuery("SELECT (.+) FROM scrape_jobs WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, recipe.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
