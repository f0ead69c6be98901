package find

import "testing"

var ttys = Usbttys{
	{Dev: "/dev/ttyUSB0", IDv: "0403", IDp: "6001", Prod: "FT232R", Serial: "A603UX94"},
	{Dev: "/dev/ttyACM0", IDv: "16c0", IDp: "0483", Prod: "USB Serial", Serial: "1234560"},
	{Dev: "/dev/ttyACM1", IDv: "16C0", IDp: "0483", Prod: "USB Serial", Serial: "7654320"},
}

func Test_pick(t *testing.T) {
	testCases := []struct {
		name    string
		ttys    Usbttys
		filter  FilterFn
		want    string
		wantErr bool
	}{
		{"teensy picks first", ttys, TeensyFilter, "/dev/ttyACM0", false},
		{"by serial", ttys, SerialFilter("7654320"), "/dev/ttyACM1", false},
		{"ftdi serial", ttys, SerialFilter("A603UX94"), "/dev/ttyUSB0", false},
		{"no match", ttys, SerialFilter("nope"), "", true},
		{"no filter, many", ttys, nil, "", true},
		{"no filter, one", ttys[:1], nil, "/dev/ttyUSB0", false},
		{"nothing attached", nil, TeensyFilter, "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pick(tc.ttys, tc.filter)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func Test_TeensyFilter(t *testing.T) {
	if TeensyFilter(&ttys[0]) {
		t.Errorf("ftdi matched: %s", ttys[0])
	}
	for _, tt := range ttys[1:] {
		if !TeensyFilter(&tt) {
			t.Errorf("teensy not matched: %s", tt)
		}
	}
}
