package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"authservice/internal/logging"
	"authservice/internal/models"
)

// Notifier delivers one notification over one channel.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// NotificationQueue is what the account flows hand messages to. Enqueue
// never blocks and never reports delivery.
type NotificationQueue interface {
	Enqueue(n models.Notification)
}

var ErrQueueFull = errors.New("notification queue is full")

type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
}

type job struct {
	n        models.Notification
	attempts int
}

// Dispatcher runs notifications on a pool of background workers with retries.
type Dispatcher struct {
	opts    DispatcherOptions
	senders map[models.Channel]Notifier
	alerts  Notifier
	log     *zap.Logger

	queue chan job
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(opts DispatcherOptions, log *zap.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		opts:    opts,
		senders: map[models.Channel]Notifier{},
		log:     log.Named("dispatcher"),
		queue:   make(chan job, opts.QueueSize),
		quit:    make(chan struct{}),
	}
}

// Register binds a channel to its sender. Call before Start.
func (d *Dispatcher) Register(ch models.Channel, n Notifier) {
	d.senders[ch] = n
}

// AlertOnFailure makes exhausted jobs report to the operator chat.
func (d *Dispatcher) AlertOnFailure(n Notifier) {
	d.alerts = n
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info("dispatcher started", zap.Int("workers", d.opts.Workers), zap.Int("queue", d.opts.QueueSize))
}

func (d *Dispatcher) Enqueue(n models.Notification) {
	if err := d.TryEnqueue(n); err != nil {
		d.log.Error("notification dropped",
			zap.String("channel", string(n.Channel)),
			zap.String("to", logging.MaskEmail(n.To)),
			zap.Error(err))
	}
}

func (d *Dispatcher) TryEnqueue(n models.Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return errors.New("dispatcher stopped")
	}
	select {
	case d.queue <- job{n: n}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets workers drain the queue and waits for them or ctx.
// Jobs waiting for a retry are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.quit)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.log.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher stop: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(id, j)
	}
}

func (d *Dispatcher) run(worker int, j job) {
	sender, ok := d.senders[j.n.Channel]
	if !ok {
		d.log.Error("no sender for channel", zap.String("channel", string(j.n.Channel)))
		return
	}
	var lastErr error
	for j.attempts < d.opts.MaxAttempts {
		j.attempts++
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		lastErr = sender.Notify(ctx, j.n)
		cancel()
		if lastErr == nil {
			d.log.Debug("notification sent",
				zap.Int("worker", worker),
				zap.String("channel", string(j.n.Channel)),
				zap.Int("attempt", j.attempts))
			return
		}
		d.log.Warn("notification failed",
			zap.Int("worker", worker),
			zap.String("channel", string(j.n.Channel)),
			zap.Int("attempt", j.attempts),
			zap.Error(lastErr))
		if j.attempts >= d.opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(d.opts.Backoff):
		case <-d.quit:
			d.log.Warn("shutting down, retry abandoned", zap.String("channel", string(j.n.Channel)))
			return
		}
	}
	d.exhausted(j, lastErr)
}

func (d *Dispatcher) exhausted(j job, err error) {
	d.log.Error("notification gave up",
		zap.String("channel", string(j.n.Channel)),
		zap.String("to", logging.MaskEmail(j.n.To)),
		zap.Int("attempts", j.attempts),
		zap.Error(err))
	if d.alerts == nil || j.n.Channel == models.ChannelTelegram {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()
	alert := models.Notification{
		Channel: models.ChannelTelegram,
		Text: fmt.Sprintf("%s delivery to %s failed after %d attempts: %v",
			j.n.Channel, logging.MaskEmail(j.n.To), j.attempts, err),
	}
	if aerr := d.alerts.Notify(ctx, alert); aerr != nil {
		d.log.Error("operator alert failed", zap.Error(aerr))
	}
}
