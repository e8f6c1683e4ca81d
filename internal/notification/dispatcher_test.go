package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"classroom_api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memQueue struct {
	mu      sync.Mutex
	pending []OtpEmailTask
	acked   []string
	retries []OtpEmailTask
	retryAt []time.Time
}

func (q *memQueue) Push(_ context.Context, task OtpEmailTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, task)
	return nil
}

func (q *memQueue) Reserve(ctx context.Context, wait time.Duration) (*Reservation, error) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		return &Reservation{Task: task}, nil
	}
	q.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

func (q *memQueue) Ack(_ context.Context, r *Reservation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, r.Task.ID)
	return nil
}

func (q *memQueue) Retry(_ context.Context, r *Reservation, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := r.Task
	next.Attempt++
	q.retries = append(q.retries, next)
	q.retryAt = append(q.retryAt, at)
	return nil
}

func (q *memQueue) PromoteDue(context.Context, time.Time) (int, error) { return 0, nil }
func (q *memQueue) RecoverProcessing(context.Context) (int, error)    { return 0, nil }

func (q *memQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type fakeUsers map[int]*model.User

func (f fakeUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	return f[id], nil
}

type sentMail struct {
	to      []string
	subject string
	html    string
	text    string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (s *fakeSender) Send(_ context.Context, to []string, subject, html, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, html: html, text: text})
	return nil
}

func newTestDispatcher(t *testing.T, q *memQueue, s *fakeSender) *Dispatcher {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	users := fakeUsers{1: {ID: 1, Email: "ada@school.edu", FirstName: "Ada"}}
	d := NewDispatcher(q, users, s, r, zap.NewNop(), DefaultOptions(1))
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestDispatcher_EnqueueAssignsIDAndResetsAttempt(t *testing.T) {
	q := &memQueue{}
	d := newTestDispatcher(t, q, &fakeSender{})

	err := d.EnqueueOtpEmail(context.Background(), OtpEmailTask{UserID: 1, Code: "123456", Purpose: model.OtpPurposeEmailVerification, Attempt: 7})
	require.NoError(t, err)
	require.Len(t, q.pending, 1)
	assert.NotEmpty(t, q.pending[0].ID)
	assert.Zero(t, q.pending[0].Attempt)
	assert.False(t, q.pending[0].EnqueuedAt.IsZero())
}

func TestDispatcher_ProcessDelivers(t *testing.T) {
	q := &memQueue{}
	s := &fakeSender{}
	d := newTestDispatcher(t, q, s)

	d.process(context.Background(), &Reservation{Task: OtpEmailTask{ID: "t1", UserID: 1, Code: "482913", Purpose: model.OtpPurposeEmailVerification, ExpiryMinutes: 10}})

	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"ada@school.edu"}, s.sent[0].to)
	assert.Equal(t, "Your Email Verification OTP", s.sent[0].subject)
	assert.Contains(t, s.sent[0].html, "482913")
	assert.Contains(t, s.sent[0].text, "10 minutes")
	assert.Equal(t, []string{"t1"}, q.ackedIDs())
}

func TestDispatcher_ProcessRetriesWithBackoff(t *testing.T) {
	q := &memQueue{}
	d := newTestDispatcher(t, q, &fakeSender{err: errors.New("smtp down")})
	base := d.now()

	d.process(context.Background(), &Reservation{Task: OtpEmailTask{ID: "t1", UserID: 1, Attempt: 2}})

	require.Len(t, q.retries, 1)
	assert.Equal(t, 3, q.retries[0].Attempt)
	assert.Equal(t, base.Add(4*time.Second), q.retryAt[0])
	assert.Empty(t, q.ackedIDs())
}

func TestDispatcher_ProcessGivesUpAfterMaxRetries(t *testing.T) {
	q := &memQueue{}
	d := newTestDispatcher(t, q, &fakeSender{err: errors.New("smtp down")})

	d.process(context.Background(), &Reservation{Task: OtpEmailTask{ID: "t1", UserID: 1, Attempt: 3}})

	assert.Empty(t, q.retries)
	assert.Equal(t, []string{"t1"}, q.ackedIDs())
}

func TestDispatcher_ProcessDropsTaskForMissingUser(t *testing.T) {
	q := &memQueue{}
	s := &fakeSender{}
	d := newTestDispatcher(t, q, s)

	d.process(context.Background(), &Reservation{Task: OtpEmailTask{ID: "gone", UserID: 404}})

	assert.Empty(t, s.sent)
	assert.Empty(t, q.retries)
	assert.Equal(t, []string{"gone"}, q.ackedIDs())
}

func TestDispatcher_RunDrainsQueueAndStops(t *testing.T) {
	q := &memQueue{}
	s := &fakeSender{}
	d := newTestDispatcher(t, q, s)
	d.opts.PollWait = 10 * time.Millisecond
	d.opts.PromoteEvery = 10 * time.Millisecond

	require.NoError(t, d.EnqueueOtpEmail(context.Background(), OtpEmailTask{UserID: 1, Code: "111111", Purpose: model.OtpPurposePasswordReset}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(q.ackedIDs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	assert.Equal(t, "Your Password Reset OTP", s.sent[0].subject)
}
