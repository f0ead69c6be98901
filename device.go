// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

import (
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// BaudRate is the serial speed of the StimJim firmware.
const BaudRate = 115200

// NumChannels is the number of pulse train channels on the device.
const NumChannels = 2

// Device models a StimJim stimulator on a serial link. The zero value is not
// usable; use Connect or NewDevice. All methods are safe for concurrent use,
// and writes are serialized since the link has no interleaving.
type Device struct {
	mu     sync.Mutex
	port   string
	rw     io.ReadWriteCloser
	trains [NumChannels]*PulseTrain

	baud     int
	limit    int
	lineTerm byte
	debug    bool // if true, log commands before sending. Set via WithDebug().
	hook     func(cmd string, err error)
}

// DeviceOption applies an option to the device.
type DeviceOption func(*Device)

// WithDebug causes commands to be logged before they are sent.
func WithDebug() DeviceOption { return func(d *Device) { d.debug = true } }

// WithBaudRate overrides the serial speed used by Connect.
func WithBaudRate(baud int) DeviceOption { return func(d *Device) { d.baud = baud } }

// WithAmplitudeLimit sets the largest amplitude magnitude, in microamps, the
// device will accept.
func WithAmplitudeLimit(ua int) DeviceOption { return func(d *Device) { d.limit = ua } }

// WithCommandHook registers a function called after every command write with
// the command (without terminator) and the write error, if any.
func WithCommandHook(fn func(cmd string, err error)) DeviceOption {
	return func(d *Device) { d.hook = fn }
}

func newDevice(opts []DeviceOption) *Device {
	d := &Device{
		baud:     BaudRate,
		limit:    DefaultAmplitudeLimit,
		lineTerm: '\n',
	}
	// Apply options using the functional option pattern.
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens the named serial port at the protocol baud rate and returns a
// device using it.
func Connect(portName string, opts ...DeviceOption) (*Device, error) {
	d := newDevice(opts)
	if d.limit <= 0 {
		return nil, fmt.Errorf("%w: amplitude limit %d uA must be positive", ErrInvalidParameter, d.limit)
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: d.baud})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrConnection, portName, err)
	}
	d.port = portName
	d.rw = port
	log.Printf("stimjim connected on %s at %d baud", portName, d.baud)
	return d, nil
}

// NewDevice returns a device using an already open transport, such as a
// serial port opened elsewhere or a loopback for simulation.
func NewDevice(rw io.ReadWriteCloser, opts ...DeviceOption) *Device {
	d := newDevice(opts)
	if d.limit <= 0 {
		d.limit = DefaultAmplitudeLimit
	}
	d.rw = rw
	return d
}

// Port returns the serial port name given to Connect, if any.
func (d *Device) Port() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Connected reports whether the device has an open transport.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rw != nil
}

// Train returns the train last installed on channel, or nil.
func (d *Device) Train(channel int) *PulseTrain {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !isChannelValid(channel) {
		return nil
	}
	return d.trains[channel]
}

// Disconnect closes the transport and forgets all installed trains. It may be
// called any number of times. Errors while closing are logged, not returned.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rw != nil {
		var err error
		// Wait for pending output before closing; not every transport can.
		if dr, ok := d.rw.(interface{ Drain() error }); ok {
			err = multierr.Append(err, dr.Drain())
		}
		err = multierr.Append(err, d.rw.Close())
		if err != nil {
			log.Printf("error closing stimjim port %s: %s", d.port, err)
		}
		d.rw = nil
	}
	d.trains = [NumChannels]*PulseTrain{}
}

// InstallAndSend encodes train, records it as the current train of channel and
// writes the command to the device. Validation and encoding failures leave the
// device untouched. A failed write leaves the train recorded even though the
// hardware may not have received it.
func (d *Device) InstallAndSend(channel int, train *PulseTrain) error {
	if train == nil {
		return fmt.Errorf("%w: nil pulse train", ErrInvalidParameter)
	}
	if !isChannelValid(channel) {
		return fmt.Errorf("%w: channel %d (must be 0-%d)", ErrInvalidParameter, channel, NumChannels-1)
	}
	if train.Channel() != channel {
		return fmt.Errorf("%w: train targets channel %d, not %d", ErrInvalidParameter, train.Channel(), channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	cmd, err := train.EncodeWithLimit(d.limit)
	if err != nil {
		return err
	}
	if d.rw == nil {
		return fmt.Errorf("%w: %w: stimjim not connected", ErrIO, ErrConnection)
	}
	d.trains[channel] = train
	return d.writeLine(cmd)
}

// writeLine sends cmd followed by the line terminator. d.mu must be held.
func (d *Device) writeLine(cmd string) error {
	if d.debug {
		log.Printf("cmd %q", cmd)
	}
	buf := make([]byte, 0, len(cmd)+1)
	buf = append(buf, cmd...)
	buf = append(buf, d.lineTerm)
	_, err := d.rw.Write(buf)
	if err != nil {
		err = fmt.Errorf("%w: writing %q: %v", ErrIO, cmd, err)
	}
	if d.hook != nil {
		d.hook(cmd, err)
	}
	return err
}

// isChannelValid checks that the channel is between 0 and NumChannels-1,
// inclusive.
func isChannelValid(channel int) bool {
	if channel < 0 || channel >= NumChannels {
		return false
	}
	return true
}
