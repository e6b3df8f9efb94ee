package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type PostCreation struct {
	Caption       string  `json:"caption"`
	Title         string  `json:"title"`
	ScheduledTime string  `json:"scheduled_time"`
	AccountIDs    []int64 `json:"account_ids"`
	MediaIDs      []int64 `json:"media_ids"`
	Draft         bool    `json:"draft"`
}

type ScheduleRequest struct {
	ScheduledTime string `json:"scheduled_time"`
}

type ScheduleResult struct {
	PostID        int64 `json:"post_id"`
	HasCollision  bool  `json:"has_collision"`
	CollidingWith int64 `json:"colliding_with,omitempty"`
}

type ApprovalRequest struct {
	Decision string `json:"decision"` // approved or rejected
}

type TeamInvite struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SweepResult struct {
	Processed int `json:"processed"`
}

type AnalyticsSummary struct {
	PostsByStatus      map[string]int64 `json:"posts_by_status"`
	PublishesByOutcome map[string]int64 `json:"publishes_by_outcome"`
	PlatformSuccess    map[string]int64 `json:"platform_success"`
	PlatformFailed     map[string]int64 `json:"platform_failed"`
}
