package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	ErrNotificationServiceClosed = errors.New("notification service closed")
	ErrNotificationQueueFull     = errors.New("notification queue full")
)

const defaultQueueSize = 1000

type NotificationMessage struct {
	AccountID string    `json:"account_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender delivers a notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg NotificationMessage) error
}

// NotificationRecorder is told about every delivery attempt.
type NotificationRecorder interface {
	RecordNotification(sender string, success bool)
}

// NotificationService queues account alerts and fans them out to every
// configured sender from a pool of workers. Notify never waits for delivery
// or for queue space: a full queue rejects the message.
type NotificationService struct {
	senders      []Sender
	recorder     NotificationRecorder
	messageQueue chan NotificationMessage
	workers      int
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	logger       *slog.Logger
}

func NewNotificationService(
	senders []Sender,
	workers int,
	recorder NotificationRecorder,
	logger *slog.Logger,
) *NotificationService {
	return newNotificationService(senders, workers, defaultQueueSize, recorder, logger)
}

func newNotificationService(
	senders []Sender,
	workers int,
	queueSize int,
	recorder NotificationRecorder,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	service := &NotificationService{
		senders:      senders,
		recorder:     recorder,
		messageQueue: make(chan NotificationMessage, queueSize),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	service.startWorkers()

	return service
}

func (s *NotificationService) Notify(ctx context.Context, accountID, message string) error {
	msg := NotificationMessage{
		AccountID: accountID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case <-s.shutdownChan:
		return ErrNotificationServiceClosed
	default:
	}

	select {
	case s.messageQueue <- msg:
		s.logger.InfoContext(ctx, "Notification queued",
			slog.String("account_id", accountID))
		return nil
	default:
		s.logger.WarnContext(ctx, "Notification dropped, queue full",
			slog.String("account_id", accountID))
		return ErrNotificationQueueFull
	}
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *NotificationService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, id)
		case <-s.shutdownChan:
			s.drain(id)
			s.logger.Debug("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *NotificationService) drain(workerID int) {
	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, workerID)
		default:
			return
		}
	}
}

func (s *NotificationService) processNotification(msg NotificationMessage, workerID int) {
	for _, sender := range s.senders {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := sender.Send(ctx, msg)
		cancel()
		duration := time.Since(startTime)

		if s.recorder != nil {
			s.recorder.RecordNotification(sender.Name(), err == nil)
		}

		if err != nil {
			s.logger.Error("Failed to send notification",
				slog.String("sender", sender.Name()),
				slog.String("account_id", msg.AccountID),
				slog.String("error", err.Error()),
				slog.Int("worker_id", workerID),
				slog.Duration("duration", duration))
			continue
		}
		s.logger.Debug("Notification sent",
			slog.String("sender", sender.Name()),
			slog.String("account_id", msg.AccountID),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	}
}

// Shutdown stops accepting messages, delivers what is already queued and waits
// for the workers to exit.
func (s *NotificationService) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes notifications to the structured log.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg NotificationMessage) error {
	s.logger.WarnContext(ctx, "Account alert",
		slog.String("account_id", msg.AccountID),
		slog.String("message", msg.Message),
		slog.Time("created_at", msg.CreatedAt))
	return nil
}

// WebhookSender posts notifications as JSON to a fixed URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSender) Name() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MyBank-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}
