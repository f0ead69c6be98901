// Copyright (c) 2024 The stimjim developers. All rights reserved.
// Project site: https://github.com/txbdc/stimjim
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package stimjim

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodePresets(t *testing.T) {
	vns, err := StandardVNS()
	if err != nil {
		t.Fatal(err)
	}
	mono, err := MonophasicPulse(1.0)
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		name  string
		train *PulseTrain
		want  string
	}{
		{"standard vns", vns, "S0,2,3,33333,500000;800,0,100;-800,0,100;"},
		{"monophasic 1 mA", mono, "S0,1,3,0,500;1000,0,500;"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.train.Encode()
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != tc.want {
				t.Errorf("\n got %q\nwant %q", got, tc.want)
			}
			again, _ := tc.train.Encode()
			if again != got {
				t.Errorf("encoding not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestEncodeStageSegments(t *testing.T) {
	for n := 1; n <= 6; n++ {
		stages := make([]PulseStage, n)
		for i := range stages {
			stages[i] = PulseStage{Amplitude: 100 * (i + 1), Delay: 10, Duration: 20}
		}
		pt, err := NewPulseTrain(1, 1000, 1000, StandardModes, stages)
		if err != nil {
			t.Fatal(err)
		}
		cmd, err := pt.Encode()
		if err != nil {
			t.Fatal(err)
		}
		// header plus one segment per stage, each semicolon terminated
		if got := strings.Count(cmd, ";"); got != n+1 {
			t.Errorf("%d stages: got %d segments in %q", n, got-1, cmd)
		}
		if !strings.HasSuffix(cmd, ";") {
			t.Errorf("trailing content after last segment: %q", cmd)
		}
	}
}

func TestModeFlags(t *testing.T) {
	testCases := []struct {
		modes []OutputMode
		want  uint
	}{
		{[]OutputMode{OutputCurrent, OutputGrounded}, 3},
		{[]OutputMode{OutputGrounded, OutputCurrent}, 3},
		{[]OutputMode{OutputCurrent, OutputCurrent}, 1},
		{[]OutputMode{OutputGrounded, OutputGrounded}, 2},
		{nil, 0},
	}
	for _, tc := range testCases {
		if got := ModeFlags(tc.modes); got != tc.want {
			t.Errorf("ModeFlags(%v) = %d, want %d", tc.modes, got, tc.want)
		}
	}
}

func TestEncodeGroundedPlaceholder(t *testing.T) {
	pt, err := NewPulseTrain(1, 0, 100,
		[]OutputMode{OutputGrounded, OutputGrounded},
		[]PulseStage{{Amplitude: 500, Delay: 0, Duration: 100}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := pt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if want := "S1,1,2,0,100;X,0,100;"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMicroampsFromMilliamps(t *testing.T) {
	testCases := []struct {
		ma   float64
		want int
	}{
		{1.0, 1000},
		{0.25, 250},
		{-2.5, -2500},
		{1.9999, 1999},
		{-1.9999, -1999},
		{0.0004, 0},
		{0, 0},
	}
	for _, tc := range testCases {
		if got := MicroampsFromMilliamps(tc.ma); got != tc.want {
			t.Errorf("MicroampsFromMilliamps(%v) = %d, want %d", tc.ma, got, tc.want)
		}
	}
	pt, err := MonophasicPulse(2.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := pt.Stages()[0].Amplitude; got != 2500 {
		t.Errorf("monophasic 2.5 mA encoded as %d uA", got)
	}
}

func TestNewPulseStage(t *testing.T) {
	if _, err := NewPulseStage(-300, 0, 100); err != nil {
		t.Errorf("negative amplitude rejected: %s", err)
	}
	if _, err := NewPulseStage(100, -1, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative delay: got %v", err)
	}
	if _, err := NewPulseStage(100, 0, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative duration: got %v", err)
	}
}

func TestPulseTrainRejects(t *testing.T) {
	one := []PulseStage{{Amplitude: 100, Delay: 0, Duration: 100}}
	testCases := []struct {
		name     string
		channel  int
		period   int
		duration int
		modes    []OutputMode
		stages   []PulseStage
		want     error
	}{
		{"no stages", 0, 0, 100, StandardModes, nil, ErrInvalidProtocolParameters},
		{"one mode", 0, 0, 100, []OutputMode{OutputCurrent}, one, ErrInvalidProtocolParameters},
		{"three modes", 0, 0, 100, []OutputMode{OutputCurrent, OutputGrounded, OutputGrounded}, one, ErrInvalidProtocolParameters},
		{"unknown mode", 0, 0, 100, []OutputMode{OutputCurrent, 8}, one, ErrInvalidProtocolParameters},
		{"stage longer than single shot", 0, 0, 99, StandardModes, one, ErrInvalidProtocolParameters},
		{"repeating stages too long", 0, 1000, 500, StandardModes, []PulseStage{{800, 0, 300}, {-800, 0, 300}}, ErrInvalidProtocolParameters},
		{"negative period", 0, -1, 100, StandardModes, one, ErrInvalidParameter},
		{"negative duration", 0, 0, -100, StandardModes, one, ErrInvalidParameter},
		{"negative channel", -1, 0, 100, StandardModes, one, ErrInvalidParameter},
		{"negative stage delay", 0, 0, 100, StandardModes, []PulseStage{{100, -5, 10}}, ErrInvalidParameter},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPulseTrain(tc.channel, tc.period, tc.duration, tc.modes, tc.stages)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEncodeRejectsZeroValue(t *testing.T) {
	var pt PulseTrain
	if _, err := pt.Encode(); !errors.Is(err, ErrInvalidProtocolParameters) {
		t.Errorf("got %v, want %v", err, ErrInvalidProtocolParameters)
	}
}

func TestEncodeAmplitudeCeiling(t *testing.T) {
	mk := func(ua int) *PulseTrain {
		pt, err := NewPulseTrain(0, 0, 100, StandardModes, []PulseStage{{ua, 0, 100}})
		if err != nil {
			t.Fatal(err)
		}
		return pt
	}
	if _, err := mk(DefaultAmplitudeLimit).Encode(); err != nil {
		t.Errorf("amplitude at ceiling rejected: %s", err)
	}
	if _, err := mk(-DefaultAmplitudeLimit).Encode(); err != nil {
		t.Errorf("negative amplitude at ceiling rejected: %s", err)
	}
	if _, err := mk(DefaultAmplitudeLimit + 1).Encode(); !errors.Is(err, ErrInvalidProtocolParameters) {
		t.Errorf("over ceiling: got %v", err)
	}
	if _, err := mk(-DefaultAmplitudeLimit - 1).Encode(); !errors.Is(err, ErrInvalidProtocolParameters) {
		t.Errorf("under negative ceiling: got %v", err)
	}
	if _, err := mk(600).EncodeWithLimit(500); !errors.Is(err, ErrInvalidProtocolParameters) {
		t.Errorf("custom ceiling: got %v", err)
	}
	if _, err := mk(100).EncodeWithLimit(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero ceiling: got %v", err)
	}
}

func TestPulseTrainCopiesInputs(t *testing.T) {
	modes := []OutputMode{OutputCurrent, OutputGrounded}
	stages := []PulseStage{{100, 0, 100}}
	pt, err := NewPulseTrain(0, 0, 100, modes, stages)
	if err != nil {
		t.Fatal(err)
	}
	before := pt.String()
	modes[0] = OutputGrounded
	stages[0].Amplitude = 999
	pt.Stages()[0].Amplitude = 777
	if after := pt.String(); after != before {
		t.Errorf("train changed through caller slices: %q -> %q", before, after)
	}
}

func TestSingleShotStageSpans(t *testing.T) {
	// Each stage of a single-shot train only has to fit the train on its own.
	pt, err := NewPulseTrain(0, 0, 500, StandardModes, []PulseStage{{800, 0, 300}, {-800, 0, 300}})
	if err != nil {
		t.Fatalf("single-shot train rejected: %s", err)
	}
	got, err := pt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if want := "S0,2,3,0,500;800,0,300;-800,0,300;"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := NewPulseTrain(0, 0, 500, StandardModes, []PulseStage{{800, 300, 300}}); !errors.Is(err, ErrInvalidProtocolParameters) {
		t.Errorf("stage ending after the train: got %v", err)
	}
}
