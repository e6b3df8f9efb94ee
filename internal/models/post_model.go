package models

import "time"

type ScheduledPost struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Caption       string    `db:"caption" json:"caption"`
	Title         string    `db:"title" json:"title"`
	ScheduledTime time.Time `db:"scheduled_time" json:"scheduled_time"`
	Status        string    `db:"status" json:"status"`
	Approval      string    `db:"approval" json:"approval"`
	Version       int64     `db:"version" json:"version"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PostDestination is one (post, connected account) publish target and its outcome.
type PostDestination struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Status         string    `db:"status" json:"status"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	FileURL      string    `db:"file_url" json:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id" json:"post_id"`
	AssetID      int64     `db:"asset_id" json:"asset_id"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusPartial    = "partial"
	PostStatusFailed     = "failed"
)

const (
	ApprovalNone     = "none"
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	DestinationStatusPending = "pending"
	DestinationStatusSuccess = "success"
	DestinationStatusFailed  = "failed"
)

// AggregatePostStatus derives a post's overall status from its destination rows.
// published: at least one success, nothing failed or pending
// partial:   successes and failures mixed
// failed:    nothing succeeded
func AggregatePostStatus(destinations []*PostDestination) string {
	var success, failed, pending int
	for _, d := range destinations {
		switch d.Status {
		case DestinationStatusSuccess:
			success++
		case DestinationStatusFailed:
			failed++
		default:
			pending++
		}
	}

	if success > 0 && failed == 0 && pending == 0 {
		return PostStatusPublished
	}
	if success > 0 {
		return PostStatusPartial
	}
	return PostStatusFailed
}
