package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Camera wakes the camera's live stream up.
type Camera interface {
	TriggerStream(ctx context.Context) error
}

// HTTPCamera requests the live manifest; the camera starts pushing the
// MPEG-TS stream as a side effect. The body is discarded.
type HTTPCamera struct {
	http        *resty.Client
	manifestURL string
}

func NewHTTPCamera(manifestURL string, timeout time.Duration) *HTTPCamera {
	return &HTTPCamera{
		http:        resty.New().SetTimeout(timeout),
		manifestURL: manifestURL,
	}
}

func (c *HTTPCamera) TriggerStream(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.manifestURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("manifest request answered %s", resp.Status())
	}
	return nil
}
