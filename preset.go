// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

// StandardModes drives current on the first output and grounds the second.
var StandardModes = []OutputMode{OutputCurrent, OutputGrounded}

// Standard VNS parameters: 0.8 mA biphasic pulses of 100 us per phase at 30 Hz
// for a 500 ms train (15 pulses).
const (
	VNSAmplitude  = 800
	VNSPhaseWidth = 100
	VNSPeriod     = 33333
	VNSDuration   = 500000
)

// MonophasicWidth is the width in microseconds of the single test pulse.
const MonophasicWidth = 500

// MonophasicPulse returns a single monophasic pulse on channel 0 with the given
// amplitude in milliamps, played once.
func MonophasicPulse(amplitudeMA float64) (*PulseTrain, error) {
	stage, err := NewPulseStage(MicroampsFromMilliamps(amplitudeMA), 0, MonophasicWidth)
	if err != nil {
		return nil, err
	}
	return NewPulseTrain(0, 0, MonophasicWidth, StandardModes, []PulseStage{stage})
}

// StandardVNS returns the standard vagus nerve stimulation train on channel 0.
func StandardVNS() (*PulseTrain, error) {
	return NewPulseTrain(0, VNSPeriod, VNSDuration, StandardModes, []PulseStage{
		{Amplitude: VNSAmplitude, Delay: 0, Duration: VNSPhaseWidth},
		{Amplitude: -VNSAmplitude, Delay: 0, Duration: VNSPhaseWidth},
	})
}
