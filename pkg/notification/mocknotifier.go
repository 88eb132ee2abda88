package notification

import (
	"context"
	"sync"
)

type SentCode struct {
	To              string
	Subject         string
	Code            string
	DurationMinutes int
}

// MockNotifier records every Send and returns Err.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentCode
	Err  error
}

func (m *MockNotifier) Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentCode{
		To:              toAddress,
		Subject:         subject,
		Code:            code,
		DurationMinutes: durationMinutes,
	})
	return m.Err
}

// Last returns the most recent Send.
func (m *MockNotifier) Last() (SentCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentCode{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
