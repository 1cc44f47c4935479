// Package maintenance tells an operator endpoint when the vault store
// outgrows its threshold. Notifications are fire-and-forget: they run in
// the background, are rate limited and never fail the caller.
package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two notifications.
const DefaultInterval = time.Minute

// Sizer reports the store footprint in bytes.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

// Status is the JSON body posted to the notification URL.
type Status struct {
	Size      int64     `json:"size"`
	Threshold int64     `json:"threshold"`
	Time      time.Time `json:"time"`
}

// Notifier posts a Status to URL whenever Maintain finds the store above
// Threshold, at most once per interval.
type Notifier struct {
	sizer     Sizer
	url       string
	threshold int64
	client    *http.Client
	limiter   *rate.Limiter
	log       *zap.Logger
	wg        sync.WaitGroup
}

// New creates a Notifier. An empty url disables notifications.
func New(sizer Sizer, url string, threshold int64, interval time.Duration, log *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Notifier{
		sizer:     sizer,
		url:       url,
		threshold: threshold,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		log:       log,
	}
}

// Maintain checks the store size and, if it is over the threshold,
// starts a notification in the background. It never blocks on the network.
func (n *Notifier) Maintain(ctx context.Context) {
	if n.url == "" {
		return
	}
	size, err := n.sizer.Size(ctx)
	if err != nil {
		n.log.Error("maintenance: store size", zap.Error(err))
		return
	}
	if size <= n.threshold {
		return
	}
	if !n.limiter.Allow() {
		return
	}

	st := Status{Size: size, Threshold: n.threshold, Time: time.Now().UTC()}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.post(st); err != nil {
			n.log.Error("maintenance: notification failed", zap.Error(err))
			return
		}
		n.log.Warn("maintenance: store over threshold",
			zap.Int64("size", st.Size), zap.Int64("threshold", st.Threshold))
	}()
}

// Wait blocks until notifications in flight have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) post(st Status) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post: unexpected status %s", resp.Status)
	}
	return nil
}
