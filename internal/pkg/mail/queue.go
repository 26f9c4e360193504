package mail

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultQueueSize   = 256
	defaultMinInterval = 500 * time.Millisecond
	defaultAdminFlush  = 2 * time.Minute
	sendTimeout        = 20 * time.Second
)

// Queue is the single-consumer outbound mail queue. Enqueue never blocks the
// caller and send failures are logged, never propagated: mail must not fail
// the business transaction it belongs to. A minimum inter-send delay honours
// the provider's per-recipient rate limits, and high-frequency admin
// notifications are batched into one summary message.
type Queue struct {
	sender      Sender
	jobs        chan Message
	minInterval time.Duration

	adminTo    string
	adminFlush time.Duration
	notesMu    sync.Mutex
	notes      []string

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a mail queue over the given sender. adminTo may be empty,
// in which case admin summaries are dropped.
func NewQueue(sender Sender, adminTo string) *Queue {
	return &Queue{
		sender:      sender,
		jobs:        make(chan Message, defaultQueueSize),
		minInterval: defaultMinInterval,
		adminTo:     adminTo,
		adminFlush:  defaultAdminFlush,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the consumer and the admin summary flusher.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	q.wg.Add(2)
	go q.worker()
	go q.adminFlusher()
	log.Info("[Mail] queue started")
}

// Stop drains nothing; it just stops the workers. Pending messages are lost,
// which is acceptable: mail is best-effort by contract.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[Mail] queue stopped")
}

// Enqueue hands a message to the consumer. A full queue drops the message
// with a log line rather than blocking the request path.
func (q *Queue) Enqueue(msg Message) {
	select {
	case q.jobs <- msg:
	default:
		log.Errorf("[Mail] queue full, dropping %s to %s", msg.Template, msg.To)
	}
}

// PendingJobs reports how many messages are queued but not yet sent.
func (q *Queue) PendingJobs() int {
	return len(q.jobs)
}

// NotifyAdmin records a line for the next batched admin activity summary.
func (q *Queue) NotifyAdmin(note string) {
	if q.adminTo == "" {
		return
	}
	q.notesMu.Lock()
	q.notes = append(q.notes, time.Now().Format("15:04:05")+"  "+note)
	q.notesMu.Unlock()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case msg := <-q.jobs:
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			if err := q.sender.Send(ctx, msg); err != nil {
				log.Errorf("[Mail] send %s to %s failed: %v", msg.Template, msg.To, err)
			} else {
				log.Infof("[Mail] sent %s to %s", msg.Template, msg.To)
			}
			cancel()

			select {
			case <-q.stopCh:
				return
			case <-time.After(q.minInterval):
			}
		}
	}
}

func (q *Queue) adminFlusher() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.adminFlush)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.flushAdminNotes()
		}
	}
}

func (q *Queue) flushAdminNotes() {
	q.notesMu.Lock()
	notes := q.notes
	q.notes = nil
	q.notesMu.Unlock()

	if len(notes) == 0 {
		return
	}

	q.Enqueue(Message{
		To:       q.adminTo,
		Subject:  "NATS registry activity",
		Template: TemplateAdminActivitySummary,
		Vars: map[string]interface{}{
			"Count": len(notes),
			"Lines": strings.Join(notes, "\n"),
		},
	})
}
