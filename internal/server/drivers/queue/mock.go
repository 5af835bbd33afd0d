package queue

import (
	"context"
	"sync"
	"time"
)

// MockQueue records pushed messages in memory. Used in tests and wherever a
// real broker is not wanted.
type MockQueue struct {
	mu       sync.Mutex
	messages []Message

	PushErr error
}

func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

func (q *MockQueue) Push(ctx context.Context, message Message, scheduledFor *time.Time) error {
	if q.PushErr != nil {
		return q.PushErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, message)
	return nil
}

func (q *MockQueue) Pull(ctx context.Context, numberOfJobs int64) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := int64(len(q.messages))
	if n > numberOfJobs {
		n = numberOfJobs
	}

	jobs := make([]Job, 0, n)
	for i := int64(0); i < n; i++ {
		jobs = append(jobs, Job{ID: i + 1, Message: q.messages[i]})
	}
	q.messages = q.messages[n:]
	return jobs, nil
}

func (q *MockQueue) DeleteJob(ctx context.Context, jobID int64) error {
	return nil
}

func (q *MockQueue) FailJob(ctx context.Context, job Job) error {
	return nil
}

// Messages returns a copy of everything pushed so far.
func (q *MockQueue) Messages() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.messages))
	copy(out, q.messages)
	return out
}
