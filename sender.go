// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

import (
	"context"
	"log"
	"sync"
)

// Installer installs a pulse train on a device channel. *Device implements it.
type Installer interface {
	InstallAndSend(channel int, train *PulseTrain) error
}

type sendRequest struct {
	channel  int
	train    *PulseTrain
	complete chan<- error
}

// Sender owns all writes to an Installer from a single goroutine, so that
// callers that must stay responsive (sample processing, operator input) never
// wait on the serial link. Requests are sent in the order they were queued.
type Sender struct {
	inst Installer

	mu     sync.Mutex
	closed bool
	reqs   chan sendRequest
	wg     sync.WaitGroup
}

// SenderOption applies an option to the sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	depth int
}

// WithQueueDepth sets how many requests may wait to be sent.
func WithQueueDepth(n int) SenderOption {
	return func(c *senderConfig) { c.depth = n }
}

// NewSender starts a sender writing to inst.
func NewSender(inst Installer, opts ...SenderOption) *Sender {
	cfg := senderConfig{depth: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.depth <= 0 {
		cfg.depth = 1
	}
	s := &Sender{
		inst: inst,
		reqs: make(chan sendRequest, cfg.depth),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sender) run() {
	defer s.wg.Done()
	for r := range s.reqs {
		err := s.inst.InstallAndSend(r.channel, r.train)
		if r.complete == nil {
			if err != nil {
				log.Printf("stimjim send on channel %d failed: %s", r.channel, err)
			}
			continue
		}
		// The completion channel should be buffered; never stall the queue on it.
		select {
		case r.complete <- err:
		default:
			log.Printf("stimjim send on channel %d: completion not received (err=%v)", r.channel, err)
		}
	}
}

// Enqueue queues train for channel without waiting for it to be written.
// Failures of the eventual write are logged.
func (s *Sender) Enqueue(channel int, train *PulseTrain) error {
	return s.EnqueueWithCompletion(channel, train, nil)
}

// EnqueueWithCompletion queues train for channel. When the write finishes its
// result is sent on complete, which should have buffer space for it.
func (s *Sender) EnqueueWithCompletion(channel int, train *PulseTrain, complete chan<- error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	select {
	case s.reqs <- sendRequest{channel: channel, train: train, complete: complete}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send queues train for channel and waits for the write to finish or for ctx
// to be done. A request abandoned through ctx is still written.
func (s *Sender) Send(ctx context.Context, channel int, train *PulseTrain) error {
	complete := make(chan error, 1)
	if err := s.EnqueueWithCompletion(channel, train, complete); err != nil {
		return err
	}
	select {
	case err := <-complete:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting requests and waits for queued ones to be written.
func (s *Sender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.reqs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
