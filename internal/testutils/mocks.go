package testutils

import (
	"fmt"
	"sync"
	"time"
)

// MockBackend records every payload it is asked to deliver.
type MockBackend struct {
	Payloads   [][]byte
	mu         sync.Mutex
	ShouldFail bool
	Delay      time.Duration
	SendCalls  int
}

func (m *MockBackend) Send(payload []byte) error {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SendCalls++
	if m.ShouldFail {
		return fmt.Errorf("mock send failed")
	}

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)
	m.Payloads = append(m.Payloads, payloadCopy)
	return nil
}

func (m *MockBackend) GetPayloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Payloads
}

func (m *MockBackend) GetSendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SendCalls
}
