// Package controller forwards movement commands to the microcontroller that
// drives the vehicle's motors.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"com.aiac.relay/pkg/config"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrControllerUnreachable is returned when the controller cannot be
	// reached or does not answer in time.
	ErrControllerUnreachable = errors.New("controller unreachable")
	// ErrControllerRejected is returned when the controller answers with
	// anything other than 200 and a JSON body.
	ErrControllerRejected = errors.New("controller rejected command")
)

// RejectedError carries the status the controller answered with.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrControllerRejected, e.StatusCode)
}

func (e *RejectedError) Unwrap() error {
	return ErrControllerRejected
}

type moveRequest struct {
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
}

// Client talks to the controller's move endpoint.
type Client struct {
	http   *resty.Client
	url    string
	logger *log.Entry
}

func NewClient(cfg config.ControllerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		http:   resty.New().SetTimeout(timeout),
		url:    cfg.URL,
		logger: log.WithField("module", "controller-client"),
	}
}

// SendMove posts {direction, speed} to the controller and returns its
// decoded JSON answer.
func (c *Client) SendMove(ctx context.Context, direction string, speed int) (interface{}, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(moveRequest{Direction: direction, Speed: speed}).
		Post(c.url)
	if err != nil {
		c.logger.Warnf("move %s/%d: %v", direction, speed, err)
		return nil, fmt.Errorf("%w: %v", ErrControllerUnreachable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Warnf("move %s/%d rejected with status %d", direction, speed, resp.StatusCode())
		return nil, &RejectedError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var body interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.logger.Warnf("move %s/%d: invalid response body: %v", direction, speed, err)
		return nil, &RejectedError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	c.logger.Infof("move %s/%d delivered", direction, speed)
	return body, nil
}
