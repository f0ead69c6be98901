// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol constants for the StimJim firmware.
const (
	// CommandMarker starts every pulse train command.
	CommandMarker = 'S'

	// SubChannels is the number of outputs that make up one device channel.
	SubChannels = 2

	// DefaultAmplitudeLimit is the largest amplitude magnitude, in microamps,
	// that an encoded train may carry unless the device is configured with a
	// different ceiling.
	DefaultAmplitudeLimit = 20000

	// AmplitudePlaceholder replaces the amplitude field of a stage when the
	// channel has no current-sourcing output. The firmware ignores it.
	AmplitudePlaceholder = "X"
)

// OutputMode is the capability of one output of a device channel. Each mode is
// a distinct power of two so a channel's modes combine into one protocol field.
type OutputMode uint

// Available output modes.
const (
	OutputCurrent  OutputMode = 1 << iota // drives current
	OutputGrounded                        // tied to ground
)

var outputModeDesc = map[OutputMode]string{
	OutputCurrent:  "current",
	OutputGrounded: "grounded",
}

func (m OutputMode) String() string {
	if s, ok := outputModeDesc[m]; ok {
		return s
	}
	return fmt.Sprintf("OutputMode(%d)", uint(m))
}

func (m OutputMode) valid() bool {
	_, ok := outputModeDesc[m]
	return ok
}

// ModeFlags returns the protocol mode field for the given outputs: the bitwise
// sum of each distinct mode weight.
func ModeFlags(modes []OutputMode) uint {
	var flags uint
	for _, m := range modes {
		flags |= uint(m)
	}
	return flags
}

// MicroampsFromMilliamps converts a milliamp amplitude to the integer microamp
// field used on the wire, truncating toward zero.
func MicroampsFromMilliamps(ma float64) int {
	return int(ma * 1000.0)
}

// PulseStage is one timed segment of a pulse train. Amplitude is in microamps
// and may be negative for the reversed phase of a biphasic pulse. Delay and
// Duration are in microseconds.
type PulseStage struct {
	Amplitude int
	Delay     int
	Duration  int
}

// NewPulseStage returns a validated pulse stage.
func NewPulseStage(amplitude, delay, duration int) (PulseStage, error) {
	ps := PulseStage{Amplitude: amplitude, Delay: delay, Duration: duration}
	if err := ps.validate(); err != nil {
		return PulseStage{}, err
	}
	return ps, nil
}

func (ps PulseStage) validate() error {
	if ps.Delay < 0 {
		return fmt.Errorf("%w: stage delay %d us is negative", ErrInvalidParameter, ps.Delay)
	}
	if ps.Duration < 0 {
		return fmt.Errorf("%w: stage duration %d us is negative", ErrInvalidParameter, ps.Duration)
	}
	return nil
}

// span is the time the stage occupies from train onset.
func (ps PulseStage) span() int { return ps.Delay + ps.Duration }

// PulseTrain is the waveform played on one device channel. A train is
// read-only after construction; build a new one when parameters change.
type PulseTrain struct {
	channel  int
	period   int
	duration int
	modes    []OutputMode
	stages   []PulseStage
}

// NewPulseTrain creates a pulse train for the given device channel. Period and
// duration are in microseconds; a zero period plays the train once. There must
// be one output mode per sub-channel, in the device's output order.
func NewPulseTrain(
	channel, period, duration int,
	modes []OutputMode,
	stages []PulseStage,
) (*PulseTrain, error) {
	pt := &PulseTrain{
		channel:  channel,
		period:   period,
		duration: duration,
		modes:    append([]OutputMode(nil), modes...),
		stages:   append([]PulseStage(nil), stages...),
	}
	if err := pt.validate(0); err != nil {
		return nil, err
	}
	return pt, nil
}

// Channel returns the device channel the train targets.
func (pt *PulseTrain) Channel() int { return pt.channel }

// Period returns the repeat period in microseconds.
func (pt *PulseTrain) Period() int { return pt.period }

// Duration returns the total train duration in microseconds.
func (pt *PulseTrain) Duration() int { return pt.duration }

// Modes returns a copy of the per-output modes.
func (pt *PulseTrain) Modes() []OutputMode { return append([]OutputMode(nil), pt.modes...) }

// Stages returns a copy of the pulse stages.
func (pt *PulseTrain) Stages() []PulseStage { return append([]PulseStage(nil), pt.stages...) }

// validate checks the train. A positive limit also bounds amplitudes.
func (pt *PulseTrain) validate(limit int) error {
	if pt.channel < 0 {
		return fmt.Errorf("%w: channel %d is negative", ErrInvalidParameter, pt.channel)
	}
	if pt.period < 0 {
		return fmt.Errorf("%w: period %d us is negative", ErrInvalidParameter, pt.period)
	}
	if pt.duration < 0 {
		return fmt.Errorf("%w: duration %d us is negative", ErrInvalidParameter, pt.duration)
	}
	if len(pt.stages) == 0 {
		return fmt.Errorf("%w: pulse train has no stages", ErrInvalidProtocolParameters)
	}
	if len(pt.modes) != SubChannels {
		return fmt.Errorf("%w: got %d output modes, device has %d outputs per channel",
			ErrInvalidProtocolParameters, len(pt.modes), SubChannels)
	}
	for i, m := range pt.modes {
		if !m.valid() {
			return fmt.Errorf("%w: output %d has unknown mode %d", ErrInvalidProtocolParameters, i, uint(m))
		}
	}
	total := 0
	for i, ps := range pt.stages {
		if err := ps.validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
		if limit > 0 && (ps.Amplitude > limit || ps.Amplitude < -limit) {
			return fmt.Errorf("%w: stage %d amplitude %d uA exceeds +/-%d uA",
				ErrInvalidProtocolParameters, i, ps.Amplitude, limit)
		}
		if pt.period == 0 && ps.span() > pt.duration {
			return fmt.Errorf("%w: stage %d spans %d us, train lasts %d us",
				ErrInvalidProtocolParameters, i, ps.span(), pt.duration)
		}
		total += ps.span()
	}
	// Stages of a repeating train play back to back within each repeat.
	if pt.period > 0 && total > pt.duration {
		return fmt.Errorf("%w: stages span %d us, train lasts %d us",
			ErrInvalidProtocolParameters, total, pt.duration)
	}
	return nil
}

// drivesCurrent reports whether any output of the channel sources current.
func (pt *PulseTrain) drivesCurrent() bool {
	return ModeFlags(pt.modes)&uint(OutputCurrent) != 0
}

// Encode returns the StimJim command for the train using the default amplitude
// ceiling. The command has the form
//
//	S<channel>,<stageCount>,<modeFlags>,<period>,<duration>;<amp>,<delay>,<dur>;...
//
// with no line terminator.
func (pt *PulseTrain) Encode() (string, error) {
	return pt.EncodeWithLimit(DefaultAmplitudeLimit)
}

// EncodeWithLimit is like Encode but rejects any stage whose amplitude
// magnitude exceeds limit microamps.
func (pt *PulseTrain) EncodeWithLimit(limit int) (string, error) {
	if limit <= 0 {
		return "", fmt.Errorf("%w: amplitude limit %d uA must be positive", ErrInvalidParameter, limit)
	}
	if err := pt.validate(limit); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(CommandMarker)
	b.WriteString(strconv.Itoa(pt.channel))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(len(pt.stages)))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(ModeFlags(pt.modes)), 10))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(pt.period))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(pt.duration))
	b.WriteByte(';')

	driven := pt.drivesCurrent()
	for _, ps := range pt.stages {
		if driven {
			b.WriteString(strconv.Itoa(ps.Amplitude))
		} else {
			b.WriteString(AmplitudePlaceholder)
		}
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(ps.Delay))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(ps.Duration))
		b.WriteByte(';')
	}
	return b.String(), nil
}

// String returns the encoded command, or a description of why the train cannot
// be encoded.
func (pt *PulseTrain) String() string {
	s, err := pt.Encode()
	if err != nil {
		return fmt.Sprintf("invalid pulse train: %s", err)
	}
	return s
}
