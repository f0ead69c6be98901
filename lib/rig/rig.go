// Package rig owns the stimulator of an experiment rig. A Rig is created by
// the application and passed to whatever needs to stimulate, replacing any
// process-wide device state.
package rig

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/txbdc/stimjim"
)

// Rig holds the connected StimJim, if any, and the queue that writes to it.
// The zero value is not usable; use New.
type Rig struct {
	mu     sync.Mutex
	dev    *stimjim.Device
	sender *stimjim.Sender

	devOpts    []stimjim.DeviceOption
	senderOpts []stimjim.SenderOption
	connect    func(port string, opts ...stimjim.DeviceOption) (*stimjim.Device, error)
}

// Option applies an option to the rig.
type Option func(*Rig)

// WithDeviceOptions passes options to every device the rig connects.
func WithDeviceOptions(opts ...stimjim.DeviceOption) Option {
	return func(r *Rig) { r.devOpts = append(r.devOpts, opts...) }
}

// WithSenderOptions configures the send queue of every connection.
func WithSenderOptions(opts ...stimjim.SenderOption) Option {
	return func(r *Rig) { r.senderOpts = append(r.senderOpts, opts...) }
}

// New returns a rig with no stimulator connected.
func New(opts ...Option) *Rig {
	r := &Rig{connect: stimjim.Connect}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect opens the StimJim on the named serial port, replacing any current
// connection.
func (r *Rig) Connect(port string) error {
	dev, err := r.connect(port, r.devOpts...)
	if err != nil {
		return err
	}
	r.Attach(dev)
	return nil
}

// Attach makes dev the rig's stimulator, disconnecting any previous one.
func (r *Rig) Attach(dev *stimjim.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked()
	r.dev = dev
	r.sender = stimjim.NewSender(dev, r.senderOpts...)
}

// Disconnect waits for queued commands, then closes the stimulator. It is safe
// to call when nothing is connected.
func (r *Rig) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked()
}

func (r *Rig) disconnectLocked() {
	if r.sender != nil {
		r.sender.Close()
		r.sender = nil
	}
	if r.dev != nil {
		log.Printf("disconnecting stimjim %s", r.dev.Port())
		r.dev.Disconnect()
		r.dev = nil
	}
}

// Connected reports whether a stimulator is attached and open.
func (r *Rig) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dev != nil && r.dev.Connected()
}

// Device returns the attached stimulator, or nil.
func (r *Rig) Device() *stimjim.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dev
}

func (r *Rig) queue() (*stimjim.Sender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return nil, fmt.Errorf("%w: stimjim not connected", stimjim.ErrConnection)
	}
	return r.sender, nil
}

// Stimulate queues train on its channel and returns without waiting for the
// write. Write failures are logged by the queue.
func (r *Rig) Stimulate(train *stimjim.PulseTrain) error {
	if train == nil {
		return fmt.Errorf("%w: nil pulse train", stimjim.ErrInvalidParameter)
	}
	s, err := r.queue()
	if err != nil {
		return err
	}
	return s.Enqueue(train.Channel(), train)
}

// Apply sends train and waits until it has been written or ctx is done.
func (r *Rig) Apply(ctx context.Context, train *stimjim.PulseTrain) error {
	if train == nil {
		return fmt.Errorf("%w: nil pulse train", stimjim.ErrInvalidParameter)
	}
	s, err := r.queue()
	if err != nil {
		return err
	}
	return s.Send(ctx, train.Channel(), train)
}

// ApplyMonophasic sends a single monophasic pulse of amplitudeMA milliamps.
func (r *Rig) ApplyMonophasic(ctx context.Context, amplitudeMA float64) error {
	train, err := stimjim.MonophasicPulse(amplitudeMA)
	if err != nil {
		return err
	}
	return r.Apply(ctx, train)
}

// ApplyStandardVNS sends the standard VNS train.
func (r *Rig) ApplyStandardVNS(ctx context.Context) error {
	train, err := stimjim.StandardVNS()
	if err != nil {
		return err
	}
	return r.Apply(ctx, train)
}
