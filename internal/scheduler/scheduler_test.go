package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostRepo struct {
	posts        map[int64]*models.ScheduledPost
	failSchedule bool
}

func newFakePostRepo(posts ...*models.ScheduledPost) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[int64]*models.ScheduledPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	return 0, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*models.ScheduledPost, error) {
	p, ok := r.posts[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *fakePostRepo) ListByWindow(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.UserID != userID || p.Status != models.PostStatusScheduled {
			continue
		}
		if p.ScheduledTime.Before(from) || p.ScheduledTime.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePostRepo) UpdateSchedule(ctx context.Context, postID, userID int64, scheduledTime time.Time, status string, version int64) (bool, error) {
	if r.failSchedule {
		return false, nil
	}
	p, ok := r.posts[postID]
	if !ok || p.UserID != userID || p.Version != version {
		return false, nil
	}
	p.ScheduledTime = scheduledTime
	p.Status = status
	p.Version++
	return true, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	if p, ok := r.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakePostRepo) UpdateApproval(ctx context.Context, approval string, postID, userID int64) error {
	return nil
}

func (r *fakePostRepo) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	return nil, nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id, userID int64) error {
	return nil
}

type fakeDestRepo struct {
	resetCount int64
}

func (r *fakeDestRepo) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) (int64, error) {
	return 0, nil
}

func (r *fakeDestRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error) {
	return nil, nil
}

func (r *fakeDestRepo) MarkSuccess(ctx context.Context, id int64, platformPostID string) error {
	return nil
}

func (r *fakeDestRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	return nil
}

func (r *fakeDestRepo) ResetFailed(ctx context.Context, postID int64) (int64, error) {
	return r.resetCount, nil
}

func (r *fakeDestRepo) CountByPlatform(ctx context.Context, userID int64, status string) (map[string]int64, error) {
	return nil, nil
}

func (r *fakeDestRepo) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	return nil, nil
}

// fakeQueue tracks live jobs per post and every enqueue ever made.
type fakeQueue struct {
	jobs     map[int64]time.Duration
	enqueues int
	removes  int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[int64]time.Duration)}
}

func (q *fakeQueue) EnqueuePublish(ctx context.Context, payload queue.PublishPostPayload, delay time.Duration) error {
	q.jobs[payload.PostID] = delay
	q.enqueues++
	return nil
}

func (q *fakeQueue) RemovePublish(ctx context.Context, postID int64) error {
	delete(q.jobs, postID)
	q.removes++
	return nil
}

func (q *fakeQueue) EnqueueRefresh(ctx context.Context, payload queue.RefreshTokenPayload) error {
	return nil
}

func schedulablePost(id, userID int64) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:       id,
		UserID:   userID,
		Status:   models.PostStatusDraft,
		Approval: models.ApprovalNone,
		Version:  1,
	}
}

func TestScheduleKeepsSingleJob(t *testing.T) {
	pr := newFakePostRepo(schedulablePost(1, 7))
	q := newFakeQueue()
	s := NewService(pr, &fakeDestRepo{}, q)

	at := time.Now().Add(time.Hour)
	require.NoError(t, s.Schedule(context.Background(), 7, 1, at))
	require.NoError(t, s.Schedule(context.Background(), 7, 1, at.Add(time.Hour)))

	assert.Len(t, q.jobs, 1)
	assert.Equal(t, models.PostStatusScheduled, pr.posts[1].Status)
	assert.Equal(t, int64(3), pr.posts[1].Version)
}

func TestScheduleRejectsPastTime(t *testing.T) {
	pr := newFakePostRepo(schedulablePost(1, 7))
	q := newFakeQueue()
	s := NewService(pr, &fakeDestRepo{}, q)

	err := s.Schedule(context.Background(), 7, 1, time.Now().Add(-time.Minute))
	require.Error(t, err)
	assert.Equal(t, "invalid_time", apperrors.CodeOf(err))
	assert.Empty(t, q.jobs)
}

func TestScheduleUnknownPost(t *testing.T) {
	s := NewService(newFakePostRepo(), &fakeDestRepo{}, newFakeQueue())

	err := s.Schedule(context.Background(), 7, 99, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestScheduleOtherUsersPost(t *testing.T) {
	pr := newFakePostRepo(schedulablePost(1, 7))
	s := NewService(pr, &fakeDestRepo{}, newFakeQueue())

	err := s.Schedule(context.Background(), 8, 1, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestScheduleRejectsActivePublish(t *testing.T) {
	for _, status := range []string{models.PostStatusPublishing, models.PostStatusPublished} {
		post := schedulablePost(1, 7)
		post.Status = status
		pr := newFakePostRepo(post)
		q := newFakeQueue()
		s := NewService(pr, &fakeDestRepo{}, q)

		err := s.Schedule(context.Background(), 7, 1, time.Now().Add(time.Hour))
		require.Error(t, err, status)
		assert.Equal(t, "invalid_state", apperrors.CodeOf(err))
		assert.Empty(t, q.jobs)
	}
}

func TestScheduleRejectsRejectedPost(t *testing.T) {
	post := schedulablePost(1, 7)
	post.Approval = models.ApprovalRejected
	s := NewService(newFakePostRepo(post), &fakeDestRepo{}, newFakeQueue())

	err := s.Schedule(context.Background(), 7, 1, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, "invalid_state", apperrors.CodeOf(err))
}

func TestScheduleVersionConflict(t *testing.T) {
	pr := newFakePostRepo(schedulablePost(1, 7))
	pr.failSchedule = true
	s := NewService(pr, &fakeDestRepo{}, newFakeQueue())

	err := s.Schedule(context.Background(), 7, 1, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestRescheduleReportsCollision(t *testing.T) {
	target := schedulablePost(1, 7)
	neighbor := schedulablePost(2, 7)
	at := time.Now().Add(time.Hour)
	neighbor.Status = models.PostStatusScheduled
	neighbor.ScheduledTime = at.Add(2 * time.Minute)

	pr := newFakePostRepo(target, neighbor)
	q := newFakeQueue()
	s := NewService(pr, &fakeDestRepo{}, q)

	result, err := s.Reschedule(context.Background(), 7, 1, at)
	require.NoError(t, err)
	assert.True(t, result.HasCollision)
	assert.Equal(t, int64(2), result.CollidingWith)
	assert.Len(t, q.jobs, 1)
}

func TestRescheduleIgnoresSelf(t *testing.T) {
	post := schedulablePost(1, 7)
	pr := newFakePostRepo(post)
	s := NewService(pr, &fakeDestRepo{}, newFakeQueue())

	result, err := s.Reschedule(context.Background(), 7, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, result.HasCollision)
}

func TestRescheduleIgnoresPostsOutsideWindow(t *testing.T) {
	target := schedulablePost(1, 7)
	far := schedulablePost(2, 7)
	at := time.Now().Add(time.Hour)
	far.Status = models.PostStatusScheduled
	far.ScheduledTime = at.Add(CollisionWindow + time.Minute)

	pr := newFakePostRepo(target, far)
	s := NewService(pr, &fakeDestRepo{}, newFakeQueue())

	result, err := s.Reschedule(context.Background(), 7, 1, at)
	require.NoError(t, err)
	assert.False(t, result.HasCollision)
}

func TestPostNowEnqueuesImmediately(t *testing.T) {
	pr := newFakePostRepo(schedulablePost(1, 7))
	q := newFakeQueue()
	s := NewService(pr, &fakeDestRepo{}, q)

	require.NoError(t, s.PostNow(context.Background(), 7, 1))

	assert.Equal(t, time.Duration(0), q.jobs[1])
	assert.Equal(t, models.PostStatusPublishing, pr.posts[1].Status)
}

func TestCancelUnknownPostLeavesQueueAlone(t *testing.T) {
	q := newFakeQueue()
	s := NewService(newFakePostRepo(), &fakeDestRepo{}, q)

	err := s.Cancel(context.Background(), 7, 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Zero(t, q.removes)
}

func TestCancelRemovesJobAndRevertsToDraft(t *testing.T) {
	post := schedulablePost(1, 7)
	post.Status = models.PostStatusScheduled
	pr := newFakePostRepo(post)
	q := newFakeQueue()
	s := NewService(pr, &fakeDestRepo{}, q)

	require.NoError(t, s.Schedule(context.Background(), 7, 1, time.Now().Add(time.Hour)))
	require.NoError(t, s.Cancel(context.Background(), 7, 1))

	assert.Empty(t, q.jobs)
	assert.Equal(t, models.PostStatusDraft, pr.posts[1].Status)
}

func TestCancelRejectsPublishingPost(t *testing.T) {
	post := schedulablePost(1, 7)
	post.Status = models.PostStatusPublishing
	s := NewService(newFakePostRepo(post), &fakeDestRepo{}, newFakeQueue())

	err := s.Cancel(context.Background(), 7, 1)
	require.Error(t, err)
	assert.Equal(t, "invalid_state", apperrors.CodeOf(err))
}

func TestRetryResetsFailedAndQueuesOnce(t *testing.T) {
	post := schedulablePost(1, 7)
	post.Status = models.PostStatusPartial
	pr := newFakePostRepo(post)
	dr := &fakeDestRepo{resetCount: 2}
	q := newFakeQueue()
	s := NewService(pr, dr, q)

	reset, err := s.Retry(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), reset)
	assert.Equal(t, models.PostStatusPublishing, pr.posts[1].Status)
	assert.Len(t, q.jobs, 1)
	assert.Equal(t, time.Duration(0), q.jobs[1])
}

func TestRetryUnknownPost(t *testing.T) {
	s := NewService(newFakePostRepo(), &fakeDestRepo{}, newFakeQueue())

	_, err := s.Retry(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
