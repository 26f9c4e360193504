package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail bool
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("provider down")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newFastQueue(sender Sender, adminTo string) *Queue {
	q := NewQueue(sender, adminTo)
	q.minInterval = time.Millisecond
	return q
}

func TestQueueDeliversInOrder(t *testing.T) {
	sender := &recordingSender{}
	q := newFastQueue(sender, "")
	q.Start()
	defer q.Stop()

	q.Enqueue(Message{To: "a@example.com", Template: TemplateRegistrationConfirmation})
	q.Enqueue(Message{To: "b@example.com", Template: TemplatePasswordReset})

	require.Eventually(t, func() bool { return sender.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "a@example.com", sender.sent[0].To)
	assert.Equal(t, "b@example.com", sender.sent[1].To)
}

func TestQueueSendFailureDoesNotStopWorker(t *testing.T) {
	sender := &recordingSender{fail: true}
	q := newFastQueue(sender, "")
	q.Start()
	defer q.Stop()

	q.Enqueue(Message{To: "a@example.com"})

	sender.mu.Lock()
	sender.fail = false
	sender.mu.Unlock()

	q.Enqueue(Message{To: "b@example.com"})
	require.Eventually(t, func() bool { return sender.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "b@example.com", sender.sent[len(sender.sent)-1].To)
}

func TestQueueFullDropsInsteadOfBlocking(t *testing.T) {
	// Not started, so nothing consumes; the channel fills and Enqueue must
	// still return immediately.
	q := NewQueue(&recordingSender{}, "")
	for i := 0; i < defaultQueueSize+10; i++ {
		q.Enqueue(Message{To: "x@example.com"})
	}
	assert.Equal(t, defaultQueueSize, q.PendingJobs())
}

func TestAdminNotesBatchIntoOneSummary(t *testing.T) {
	q := newFastQueue(&recordingSender{}, "admin@example.com")

	q.NotifyAdmin("free entry ENT1")
	q.NotifyAdmin("pool rental paid DRV2")
	q.flushAdminNotes()

	require.Equal(t, 1, q.PendingJobs())
	msg := <-q.jobs
	assert.Equal(t, "admin@example.com", msg.To)
	assert.Equal(t, TemplateAdminActivitySummary, msg.Template)
	assert.Equal(t, 2, msg.Vars["Count"])
	assert.Contains(t, msg.Vars["Lines"], "free entry ENT1")

	// Nothing accumulated, nothing flushed.
	q.flushAdminNotes()
	assert.Zero(t, q.PendingJobs())
}

func TestAdminNotesDroppedWithoutRecipient(t *testing.T) {
	q := newFastQueue(&recordingSender{}, "")
	q.NotifyAdmin("ignored")
	q.flushAdminNotes()
	assert.Zero(t, q.PendingJobs())
}

func TestStartStopIdempotent(t *testing.T) {
	q := newFastQueue(&recordingSender{}, "")
	q.Start()
	q.Start()
	q.Stop()
	q.Stop()
}
