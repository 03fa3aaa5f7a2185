// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_upload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

// Completion receives the outcome of one upload on the owner's goroutine.
// The in-flight counter has already been released when it runs.
type Completion func(req internal_type.UploadRequest, res *internal_type.UploadResult, err error)

// Client runs one upload per segment and counts uploads in flight. Uploads
// are never retried.
type Client struct {
	logger    commons.Logger
	transport internal_type.Transport
	dispatch  func(func())
	timeout   time.Duration
	inFlight  atomic.Int64
}

type Option func(*Client)

// WithDispatcher routes completions onto the owner's goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(c *Client) { c.dispatch = dispatch }
}

// WithTimeout bounds each upload call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(logger commons.Logger, transport internal_type.Transport, opts ...Option) *Client {
	c := &Client{
		logger:    logger,
		transport: transport,
		dispatch:  func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) InFlight() int {
	return int(c.inFlight.Load())
}

// Upload increments the in-flight counter before returning and starts the
// call in the background. The counter is released exactly once, before
// done runs, whatever the outcome.
func (c *Client) Upload(ctx context.Context, req internal_type.UploadRequest, done Completion) {
	c.inFlight.Add(1)
	go func() {
		var (
			res *internal_type.UploadResult
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				res = nil
				err = &internal_type.UploadError{Index: req.Index, LocalID: req.LocalID, Err: fmt.Errorf("transport panic: %v", r)}
			}
			c.dispatch(func() {
				c.inFlight.Add(-1)
				if err != nil {
					c.logger.Errorf("upload: %v", err)
				}
				if done != nil {
					done(req, res, err)
				}
			})
		}()
		res, err = c.call(ctx, req)
	}()
}

func (c *Client) call(ctx context.Context, req internal_type.UploadRequest) (*internal_type.UploadResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	started := time.Now()
	res, err := c.transport.Upload(ctx, req)
	if err != nil {
		var uploadErr *internal_type.UploadError
		if errors.As(err, &uploadErr) {
			return nil, err
		}
		return nil, &internal_type.UploadError{Index: req.Index, LocalID: req.LocalID, Err: err}
	}
	if res == nil {
		return nil, &internal_type.UploadError{Index: req.Index, LocalID: req.LocalID, Err: errors.New("empty response")}
	}
	c.logger.Debugf("upload: segment %d done in %s with %d result(s)", req.Index, time.Since(started), len(res.ProviderResults))
	return res, nil
}
