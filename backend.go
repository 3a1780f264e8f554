package lokiship

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

// Backend delivers a serialized payload to the remote endpoint.
type Backend interface {
	Send(payload []byte) error
}

// NoopBackend discards every payload and always succeeds. It is used when
// no network backend is configured, so that intake and buffering can run
// without a network dependency.
type NoopBackend struct{}

func (NoopBackend) Send([]byte) error { return nil }

// pushTarget holds everything needed to build a push request: the joined
// push URL, the authentication header material, and whether the payload is
// gzip-compressed. Credentials are stored pre-encoded, never plaintext.
type pushTarget struct {
	url            string
	authentication AuthMethod
	credentials    string
	compressed     bool
}

func (t pushTarget) newRequest(payload []byte) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create push request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if t.compressed {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if t.authentication == AuthBasic {
		req.Header.Set("Authorization", "Basic "+t.credentials)
	}

	return req, nil
}

// doPush performs a single delivery attempt. Both HTTP backends share it.
func doPush(client *http.Client, target pushTarget, payload []byte) error {
	req, err := target.newRequest(payload)
	if err != nil {
		return &DeliveryError{Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("send push request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("endpoint responded %q", string(body)),
		}
	}

	return nil
}
