package notification

import (
	"context"
	"time"
)

// OtpEmailTask asks the dispatcher to email a one-time code to a user.
type OtpEmailTask struct {
	ID            string    `json:"id"`
	UserID        int       `json:"user_id"`
	Code          string    `json:"otp"`
	Purpose       string    `json:"purpose"`
	ExpiryMinutes int       `json:"expiry_minutes"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Reservation is a task taken off the pending list. It must be acked or retried.
type Reservation struct {
	Task OtpEmailTask
	raw  string
}

// TaskQueue is the durable queue behind the dispatcher.
type TaskQueue interface {
	Push(ctx context.Context, task OtpEmailTask) error
	// Reserve blocks up to wait for a task. It returns nil, nil when none arrived.
	Reserve(ctx context.Context, wait time.Duration) (*Reservation, error)
	Ack(ctx context.Context, r *Reservation) error
	// Retry acks r and schedules its task again, with Attempt incremented, at the given time.
	Retry(ctx context.Context, r *Reservation, at time.Time) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	RecoverProcessing(ctx context.Context) (int, error)
}
