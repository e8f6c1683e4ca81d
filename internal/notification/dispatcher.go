package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom_api/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserLookup resolves the recipient of a task.
type UserLookup interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type Options struct {
	Workers        int
	MaxRetries     int
	PollWait       time.Duration
	PromoteEvery   time.Duration
	ReserveBackoff time.Duration
}

func (o *Options) setDefaults() {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.PollWait <= 0 {
		o.PollWait = 5 * time.Second
	}
	if o.PromoteEvery <= 0 {
		o.PromoteEvery = time.Second
	}
	if o.ReserveBackoff <= 0 {
		o.ReserveBackoff = time.Second
	}
}

// DefaultOptions retries a failed send 3 times, 1s, 2s and 4s apart.
func DefaultOptions(workers int) Options {
	return Options{Workers: workers, MaxRetries: 3}
}

var errRecipientGone = errors.New("recipient no longer exists")

// Dispatcher enqueues OTP emails and runs the workers that deliver them.
type Dispatcher struct {
	queue    TaskQueue
	users    UserLookup
	sender   Sender
	renderer *Renderer
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewDispatcher(queue TaskQueue, users UserLookup, sender Sender, renderer *Renderer, log *zap.Logger, opts Options) *Dispatcher {
	opts.setDefaults()
	return &Dispatcher{
		queue:    queue,
		users:    users,
		sender:   sender,
		renderer: renderer,
		log:      log.Named("dispatcher"),
		opts:     opts,
		now:      time.Now,
	}
}

// EnqueueOtpEmail stores the task and returns without waiting for delivery.
func (d *Dispatcher) EnqueueOtpEmail(ctx context.Context, task OtpEmailTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.Attempt = 0
	task.EnqueuedAt = d.now().UTC()
	if err := d.queue.Push(ctx, task); err != nil {
		return err
	}
	d.log.Debug("otp email enqueued", zap.String("task_id", task.ID), zap.Int("user_id", task.UserID),
		zap.String("purpose", task.Purpose))
	return nil
}

// Run recovers orphaned tasks, then blocks running workers and the retry promoter until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	n, err := d.queue.RecoverProcessing(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		d.log.Warn("requeued tasks left in processing", zap.Int("count", n))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		id := i
		g.Go(func() error {
			d.work(gctx, id)
			return nil
		})
	}
	g.Go(func() error {
		d.promote(gctx)
		return nil
	})

	d.log.Info("dispatcher started", zap.Int("workers", d.opts.Workers))
	err = g.Wait()
	d.log.Info("dispatcher stopped")
	return err
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	log := d.log.With(zap.Int("worker", id))
	for ctx.Err() == nil {
		res, err := d.queue.Reserve(ctx, d.opts.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("reserve failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.opts.ReserveBackoff):
			}
			continue
		}
		if res == nil {
			continue
		}
		d.process(ctx, res)
	}
}

func (d *Dispatcher) promote(ctx context.Context) {
	ticker := time.NewTicker(d.opts.PromoteEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.queue.PromoteDue(ctx, d.now())
			if err != nil {
				if ctx.Err() == nil {
					d.log.Error("promote failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				d.log.Debug("promoted delayed tasks", zap.Int("count", n))
			}
		}
	}
}

// process delivers one reserved task and settles it. On shutdown the task is left
// in the processing list and requeued by the next Run.
func (d *Dispatcher) process(ctx context.Context, res *Reservation) {
	task := res.Task
	log := d.log.With(zap.String("task_id", task.ID), zap.Int("user_id", task.UserID), zap.Int("attempt", task.Attempt))

	err := d.deliver(ctx, task)
	if ctx.Err() != nil {
		return
	}

	switch {
	case err == nil:
		log.Info("otp email delivered", zap.String("purpose", task.Purpose))
	case errors.Is(err, errRecipientGone):
		log.Error("dropping otp email", zap.Error(err))
	case task.Attempt >= d.opts.MaxRetries:
		log.Error("giving up on otp email", zap.Error(err))
	default:
		delay := time.Duration(1<<task.Attempt) * time.Second
		log.Warn("otp email failed, retrying", zap.Duration("in", delay), zap.Error(err))
		if rerr := d.queue.Retry(ctx, res, d.now().Add(delay)); rerr != nil {
			log.Error("failed to schedule retry", zap.Error(rerr))
		}
		return
	}

	if aerr := d.queue.Ack(ctx, res); aerr != nil {
		log.Error("failed to ack task", zap.Error(aerr))
	}
}

func (d *Dispatcher) deliver(ctx context.Context, task OtpEmailTask) error {
	user, err := d.users.FindByID(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", task.UserID, errRecipientGone)
	}

	subject, html, text, err := d.renderer.RenderOtp(user.FirstName, task.Purpose, task.Code, task.ExpiryMinutes)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, []string{user.Email}, subject, html, text)
}
