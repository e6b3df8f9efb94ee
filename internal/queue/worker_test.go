package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPostRepo struct {
	post   *models.ScheduledPost
	status string
}

func (r *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	return 0, nil
}

func (r *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	if r.post == nil || r.post.ID != id {
		return nil, nil
	}
	return r.post, nil
}

func (r *stubPostRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*models.ScheduledPost, error) {
	return r.GetByID(ctx, id)
}

func (r *stubPostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *stubPostRepo) ListByWindow(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *stubPostRepo) UpdateSchedule(ctx context.Context, postID, userID int64, scheduledTime time.Time, status string, version int64) (bool, error) {
	return true, nil
}

func (r *stubPostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.status = status
	return nil
}

func (r *stubPostRepo) UpdateApproval(ctx context.Context, approval string, postID, userID int64) error {
	return nil
}

func (r *stubPostRepo) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	return nil, nil
}

func (r *stubPostRepo) Remove(ctx context.Context, id, userID int64) error {
	return nil
}

type stubDestRepo struct {
	dests []*models.PostDestination
}

func (r *stubDestRepo) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) (int64, error) {
	return 0, nil
}

func (r *stubDestRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error) {
	return r.dests, nil
}

func (r *stubDestRepo) MarkSuccess(ctx context.Context, id int64, platformPostID string) error {
	for _, d := range r.dests {
		if d.ID == id {
			d.Status = models.DestinationStatusSuccess
			d.PlatformPostID = platformPostID
			d.ErrorMessage = ""
		}
	}
	return nil
}

func (r *stubDestRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	for _, d := range r.dests {
		if d.ID == id {
			d.Status = models.DestinationStatusFailed
			d.ErrorMessage = errorMessage
		}
	}
	return nil
}

func (r *stubDestRepo) ResetFailed(ctx context.Context, postID int64) (int64, error) {
	return 0, nil
}

func (r *stubDestRepo) CountByPlatform(ctx context.Context, userID int64, status string) (map[string]int64, error) {
	return nil, nil
}

func (r *stubDestRepo) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	return nil, nil
}

type stubAccountRepo struct {
	accounts map[int64]*models.SocialAccount
}

func (r *stubAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (r *stubAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return r.accounts[id], nil
}

func (r *stubAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *stubAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *stubAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return true, nil
}

func (r *stubAccountRepo) SetToken(ctx context.Context, accountID int64, sa *models.SocialAccount) error {
	return nil
}

func (r *stubAccountRepo) Deactivate(ctx context.Context, id int64) error {
	return nil
}

type stubPostMediaRepo struct{}

func (r *stubPostMediaRepo) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	return nil
}

func (r *stubPostMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	return nil, nil
}

type stubMediaRepo struct{}

func (r *stubMediaRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (r *stubMediaRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (r *stubMediaRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	return nil, nil
}

func (r *stubMediaRepo) ListOrphaned(ctx context.Context) ([]*models.MediaAsset, error) {
	return nil, nil
}

func (r *stubMediaRepo) CheckByUserID(ctx context.Context, assetID, userID int64) (bool, error) {
	return false, nil
}

func (r *stubMediaRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

// stubPublisher fails for account ids listed in failing.
type stubPublisher struct {
	failing map[int64]bool
}

func (p *stubPublisher) Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error) {
	if p.failing[account.ID] {
		return "", errors.New("provider rejected upload")
	}
	return fmt.Sprintf("remote-%d", account.ID), nil
}

func (p *stubPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) error {
	return nil
}

func pendingDest(id, postID, accountID int64) *models.PostDestination {
	return &models.PostDestination{
		ID:        id,
		PostID:    postID,
		AccountID: accountID,
		Status:    models.DestinationStatusPending,
	}
}

func tiktokAccount(id int64) *models.SocialAccount {
	return &models.SocialAccount{ID: id, Platform: models.PlatformTiktok, IsActive: true}
}

func newTestWorker(pr *stubPostRepo, dr *stubDestRepo, ac *stubAccountRepo, pub Publisher) *Worker {
	publishers := map[string]Publisher{models.PlatformTiktok: pub}
	return NewWorker(pr, dr, ac, &stubPostMediaRepo{}, &stubMediaRepo{}, publishers, 2)
}

func TestPublishAllDestinationsSucceed(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	dr := &stubDestRepo{dests: []*models.PostDestination{
		pendingDest(10, 1, 100),
		pendingDest(11, 1, 101),
	}}
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{
		100: tiktokAccount(100),
		101: tiktokAccount(101),
	}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusPublished, pr.status)
	for _, d := range dr.dests {
		assert.Equal(t, models.DestinationStatusSuccess, d.Status)
		assert.NotEmpty(t, d.PlatformPostID)
	}
}

func TestPublishPartialFailure(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	dr := &stubDestRepo{dests: []*models.PostDestination{
		pendingDest(10, 1, 100),
		pendingDest(11, 1, 101),
		pendingDest(12, 1, 102),
	}}
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{
		100: tiktokAccount(100),
		101: tiktokAccount(101),
		102: tiktokAccount(102),
	}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{failing: map[int64]bool{101: true}})

	// One destination failing must not fail the job.
	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusPartial, pr.status)
	assert.Equal(t, models.DestinationStatusSuccess, dr.dests[0].Status)
	assert.Equal(t, models.DestinationStatusFailed, dr.dests[1].Status)
	assert.Equal(t, "provider rejected upload", dr.dests[1].ErrorMessage)
	assert.Equal(t, models.DestinationStatusSuccess, dr.dests[2].Status)
}

func TestPublishAllDestinationsFail(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	dr := &stubDestRepo{dests: []*models.PostDestination{pendingDest(10, 1, 100)}}
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{100: tiktokAccount(100)}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{failing: map[int64]bool{100: true}})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusFailed, pr.status)
}

func TestPublishMissingAccountFailsDestinationOnly(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	dr := &stubDestRepo{dests: []*models.PostDestination{
		pendingDest(10, 1, 100),
		pendingDest(11, 1, 999),
	}}
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{100: tiktokAccount(100)}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusPartial, pr.status)
	assert.Equal(t, models.DestinationStatusFailed, dr.dests[1].Status)
	assert.Contains(t, dr.dests[1].ErrorMessage, "unavailable")
}

func TestPublishUnsupportedPlatform(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	dr := &stubDestRepo{dests: []*models.PostDestination{pendingDest(10, 1, 100)}}
	account := tiktokAccount(100)
	account.Platform = "myspace"
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{100: account}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.DestinationStatusFailed, dr.dests[0].Status)
	assert.Contains(t, dr.dests[0].ErrorMessage, "myspace")
}

func TestPublishSkipsResolvedDestinations(t *testing.T) {
	done := pendingDest(10, 1, 100)
	done.Status = models.DestinationStatusSuccess
	done.PlatformPostID = "already-there"

	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusPublishing}}
	dr := &stubDestRepo{dests: []*models.PostDestination{done, pendingDest(11, 1, 101)}}
	ac := &stubAccountRepo{accounts: map[int64]*models.SocialAccount{
		100: tiktokAccount(100),
		101: tiktokAccount(101),
	}}
	w := newTestWorker(pr, dr, ac, &stubPublisher{})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, "already-there", dr.dests[0].PlatformPostID)
	assert.Equal(t, models.DestinationStatusSuccess, dr.dests[1].Status)
	assert.Equal(t, models.PostStatusPublished, pr.status)
}

func TestPublishSkipsTerminalPost(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusDraft}}
	dr := &stubDestRepo{dests: []*models.PostDestination{pendingDest(10, 1, 100)}}
	w := newTestWorker(pr, dr, &stubAccountRepo{}, &stubPublisher{})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Empty(t, pr.status)
	assert.Equal(t, models.DestinationStatusPending, dr.dests[0].Status)
}

func TestPublishMissingPostFailsJob(t *testing.T) {
	w := newTestWorker(&stubPostRepo{}, &stubDestRepo{}, &stubAccountRepo{}, &stubPublisher{})

	err := w.PublishPost(context.Background(), 1)
	require.Error(t, err)
}

func TestPublishNoDestinationsFailsJob(t *testing.T) {
	pr := &stubPostRepo{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}}
	w := newTestWorker(pr, &stubDestRepo{}, &stubAccountRepo{}, &stubPublisher{})

	err := w.PublishPost(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, models.PostStatusFailed, pr.status)
}

func TestPostTaskID(t *testing.T) {
	assert.Equal(t, "post-42", PostTaskID(42))
}
