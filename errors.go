// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

import "errors"

// Error classes returned by this package. Concrete failures wrap one of these,
// so callers should test with errors.Is.
var (
	// ErrInvalidParameter reports an out-of-range argument, such as a negative
	// timing value or a channel index the device does not have.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidProtocolParameters reports a pulse train that cannot be
	// expressed as a StimJim command.
	ErrInvalidProtocolParameters = errors.New("invalid protocol parameters")

	// ErrConnection reports a serial port that could not be opened or is not
	// open.
	ErrConnection = errors.New("connection error")

	// ErrIO reports a failed write to the serial port.
	ErrIO = errors.New("i/o error")

	// ErrQueueFull is returned by the Sender when its queue has no room.
	ErrQueueFull = errors.New("send queue full")

	// ErrSenderClosed is returned by the Sender after Close.
	ErrSenderClosed = errors.New("sender closed")
)
