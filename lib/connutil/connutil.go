package connutil

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/txbdc/stimjim"
	"github.com/txbdc/stimjim/lib/cmdlog"
	"github.com/txbdc/stimjim/lib/find"
	"github.com/txbdc/stimjim/lib/rig"
)

type Conn struct {
	SerialPort   string
	Debug        bool
	MaxMicroamps int
	QueueDepth   int
	Require      bool

	tty     string
	finderr error
}

// AddFlags is to be called before [flag.Parse].
func (c *Conn) AddFlags() {
	c.tty, c.finderr = find.Find(find.TeensyFilter)
	if c.finderr != nil {
		log.Printf("locating stimjim failed: %s", c.finderr)
	}

	flag.StringVar(&c.SerialPort, "port", c.tty, "Serial port of the StimJim (empty to run without one)")
	if c.MaxMicroamps == 0 {
		c.MaxMicroamps = stimjim.DefaultAmplitudeLimit
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = 16
	}
	flag.IntVar(&c.MaxMicroamps, "max-ua", c.MaxMicroamps, "largest stimulus amplitude in uA")
	flag.IntVar(&c.QueueDepth, "queue", c.QueueDepth, "number of commands that may wait to be sent")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "log every command sent to the StimJim")
	flag.BoolVar(&c.Require, "require", c.Require, "exit if no StimJim can be opened")
}

// Options returns the device options selected by the flags.
func (c *Conn) Options() []stimjim.DeviceOption {
	opts := []stimjim.DeviceOption{stimjim.WithAmplitudeLimit(c.MaxMicroamps)}
	if c.Debug {
		opts = append(opts, stimjim.WithCommandHook(cmdlog.Hook()))
	}
	return opts
}

// Setup is to be called after [(Conn).AddFlags] and [flag.Parse]. It returns
// a rig connected to the StimJim, or an unconnected rig when no port is known
// and Require is false.
func (c *Conn) Setup() (r *rig.Rig, cleanup func(), err error) {
	log.SetFlags(log.Lmicroseconds)

	r = rig.New(
		rig.WithDeviceOptions(c.Options()...),
		rig.WithSenderOptions(stimjim.WithQueueDepth(c.QueueDepth)),
	)
	cleanup = r.Disconnect

	if c.SerialPort == "" {
		if c.Require {
			return nil, func() {}, fmt.Errorf("%w: no StimJim port given (-port)", stimjim.ErrConnection)
		}
		log.Printf("no StimJim port; running without stimulator")
		return r, cleanup, nil
	}

	log.Printf("Serial port = %s", c.SerialPort)
	start := time.Now()
	if err := r.Connect(c.SerialPort); err != nil {
		if c.Require {
			return nil, func() {}, err
		}
		log.Printf("running without stimulator: %s", err)
		return r, cleanup, nil
	}
	log.Printf("stimjim ready after %s", time.Since(start))
	return r, cleanup, nil
}
