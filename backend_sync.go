package lokiship

import (
	"net/http"
)

// SyncBackend issues the push on the calling goroutine and blocks until the
// request completes or the client timeout elapses. No retries; every
// failure is surfaced to the flush caller.
type SyncBackend struct {
	target pushTarget
	client *http.Client
}

func newSyncBackend(target pushTarget) *SyncBackend {
	return &SyncBackend{
		target: target,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (b *SyncBackend) Send(payload []byte) error {
	return doPush(b.client, b.target, payload)
}
