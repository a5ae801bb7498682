package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	clientOnce sync.Once
	netClient  *http.Client
)

// single shared client so deliveries reuse connections
func newNetClient() *http.Client {
	clientOnce.Do(func() {
		netClient = &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 2 * time.Second,
			},
		}
	})
	return netClient
}

// WebhookNotifier POSTs score events as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: newNetClient()}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, ev ScoreEvent) error {
	payload := struct {
		Type string `json:"type"`
		ScoreEvent
	}{Type: "score.computed", ScoreEvent: ev}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode score event")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "deliver score event")
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("webhook responded %d", res.StatusCode)
	}
	return nil
}
