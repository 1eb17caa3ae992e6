// Command grc-model moves trained device state to and from a CBOR file:
// "download" reads the device's internal state into a file, "upload" pushes
// a previously downloaded file back onto a (cleared) device.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/model"
	"github.com/grovety/grc/pkg/session"
)

var (
	bus      = flag.String("bus", "i2c", "transport backend: i2c or serial")
	i2cBus   = flag.String("i2c-bus", "", "I2C bus name (empty selects the default)")
	i2cAddr  = flag.Uint("i2c-addr", 0x2a, "I2C device address")
	resetPin = flag.String("reset-pin", "", "GPIO pin name for the device reset line (i2c backend only)")

	serialDevice = flag.String("serial-device", "/dev/ttyUSB0", "serial bridge device path")
	serialBaud   = flag.Int("serial-baud", 115200, "serial bridge baud rate")
	serialRead   = flag.Duration("serial-read-timeout", 500*time.Millisecond, "serial bridge read timeout")

	channels = flag.Int("channels", 3, "input channel count")
	neurons  = flag.Int("neurons", 10, "reservoir neuron count")

	file = flag.String("file", "model.cbor", "path to the model file")
)

func openTransport() (transport.Transport, error) {
	switch *bus {
	case "i2c":
		return transport.NewI2CTransport(*i2cBus, uint16(*i2cAddr), *resetPin)
	case "serial":
		return transport.NewSerialBridgeTransport(*serialDevice, *serialBaud, *serialRead)
	default:
		log.Fatalf("unknown -bus %q: want i2c or serial", *bus)
		return nil, nil
	}
}

func usage() {
	log.Fatalf("usage: grc-model [flags] download|upload")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	args := flag.Args()
	if len(args) != 1 {
		usage()
	}

	t, err := openTransport()
	if err != nil {
		log.Fatalf("open transport: %v", err)
	}
	sess, err := session.Open(t, session.Config{InputChannels: *channels, Neurons: *neurons})
	if err != nil {
		log.Fatalf("open session: %v", err)
	}

	switch args[0] {
	case "download":
		values, classCount, err := sess.Download()
		if err != nil {
			log.Fatalf("download: %v", err)
		}
		f := model.File{
			InputChannels: *channels,
			Neurons:       *neurons,
			ClassCount:    classCount,
			Values:        values,
		}
		if err := model.Save(*file, f); err != nil {
			log.Fatalf("save %s: %v", *file, err)
		}
		log.Printf("downloaded %d values, %d classes, to %s", len(values), classCount, *file)
	case "upload":
		f, err := model.Load(*file)
		if err != nil {
			log.Fatalf("load %s: %v", *file, err)
		}
		if err := sess.ClearState(); err != nil {
			log.Fatalf("clear-state before upload: %v", err)
		}
		if err := sess.Upload(f.Values, f.ClassCount); err != nil {
			log.Fatalf("upload: %v", err)
		}
		log.Printf("uploaded %d values, %d classes, from %s", len(f.Values), f.ClassCount, *file)
	default:
		usage()
	}
}
