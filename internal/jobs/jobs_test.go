package jobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccountRepo struct {
	expiring []*models.SocialAccount
}

func (r *stubAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (r *stubAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return nil, nil
}

func (r *stubAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *stubAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.SocialAccount, error) {
	return r.expiring, nil
}

func (r *stubAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return false, nil
}

func (r *stubAccountRepo) SetToken(ctx context.Context, accountID int64, sa *models.SocialAccount) error {
	return nil
}

func (r *stubAccountRepo) Deactivate(ctx context.Context, id int64) error {
	return nil
}

type stubQueue struct {
	refreshes []int64
	fail      map[int64]bool
}

func (q *stubQueue) EnqueuePublish(ctx context.Context, payload queue.PublishPostPayload, delay time.Duration) error {
	return nil
}

func (q *stubQueue) RemovePublish(ctx context.Context, postID int64) error {
	return nil
}

func (q *stubQueue) EnqueueRefresh(ctx context.Context, payload queue.RefreshTokenPayload) error {
	if q.fail[payload.AccountID] {
		return errors.New("queue unavailable")
	}
	q.refreshes = append(q.refreshes, payload.AccountID)
	return nil
}

func TestTokenExpiryJobQueuesRefreshes(t *testing.T) {
	sr := &stubAccountRepo{expiring: []*models.SocialAccount{{ID: 1}, {ID: 2}, {ID: 3}}}
	q := &stubQueue{}
	job := NewTokenExpiryJob(sr, q)

	processed, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, processed)
	assert.Equal(t, []int64{1, 2, 3}, q.refreshes)
}

func TestTokenExpiryJobSkipsFailedEnqueues(t *testing.T) {
	sr := &stubAccountRepo{expiring: []*models.SocialAccount{{ID: 1}, {ID: 2}}}
	q := &stubQueue{fail: map[int64]bool{1: true}}
	job := NewTokenExpiryJob(sr, q)

	processed, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []int64{2}, q.refreshes)
}

type stubMediaRepo struct {
	orphans []*models.MediaAsset
	removed []int64
}

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
	return r.orphans, nil
}

func (r *stubMediaRepo) CheckByUserID(ctx context.Context, assetID, userID int64) (bool, error) {
	return false, nil
}

func (r *stubMediaRepo) Remove(ctx context.Context, id int64) error {
	r.removed = append(r.removed, id)
	return nil
}

type stubStorage struct {
	deleted []string
	fail    map[string]bool
}

func (s *stubStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (s *stubStorage) Delete(ctx context.Context, key string) error {
	if s.fail[key] {
		return errors.New("object store unavailable")
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStorage) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestMediaSweepRemovesOrphans(t *testing.T) {
	mr := &stubMediaRepo{orphans: []*models.MediaAsset{
		{ID: 1, FileName: "a"},
		{ID: 2, FileName: "b"},
	}}
	st := &stubStorage{}
	job := NewMediaSweepJob(mr, st)

	processed, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Equal(t, []string{"a", "b"}, st.deleted)
	assert.Equal(t, []int64{1, 2}, mr.removed)
}

func TestMediaSweepKeepsRowWhenObjectDeleteFails(t *testing.T) {
	mr := &stubMediaRepo{orphans: []*models.MediaAsset{
		{ID: 1, FileName: "a"},
		{ID: 2, FileName: "b"},
	}}
	st := &stubStorage{fail: map[string]bool{"a": true}}
	job := NewMediaSweepJob(mr, st)

	processed, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []int64{2}, mr.removed)
}

type stubSessionRepo struct {
	expired int64
}

func (r *stubSessionRepo) Create(ctx context.Context, s *models.Session) (int64, error) {
	return 0, nil
}

func (r *stubSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.expired, nil
}

func (r *stubSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return nil
}

func TestSessionSweepReportsCount(t *testing.T) {
	job := NewSessionSweepJob(&stubSessionRepo{expired: 5})

	processed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, processed)
}
