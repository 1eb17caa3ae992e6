// Command grc-agent is a long-running daemon: it opens a GRC session
// against one of the two transport backends and serves a Redis job queue
// against it until SIGINT/SIGTERM, the GRC-domain counterpart of a
// Redis-command-watching Bluetooth bridge daemon.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovety/grc/pkg/agent"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/redisq"
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

	redisAddr = flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass = flag.String("redis-pass", "", "Redis password")
	redisDB   = flag.Int("redis-db", 0, "Redis database number")

	commandKey    = flag.String("command-key", "grc:commands", "Redis list key the agent BRPOPs jobs from")
	resultChannel = flag.String("result-channel", "grc:results", "Redis pub/sub channel results are published on")
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

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("starting grc-agent, bus=%s", *bus)

	t, err := openTransport()
	if err != nil {
		log.Fatalf("open transport: %v", err)
	}

	sess, err := session.Open(t, session.Config{InputChannels: *channels, Neurons: *neurons})
	if err != nil {
		log.Fatalf("open session: %v", err)
	}
	log.Printf("session opened, sdk version %d", sess.Version())

	redisClient, err := redisq.New(*redisAddr, *redisPass, *redisDB)
	if err != nil {
		log.Fatalf("connect to Redis: %v", err)
	}
	defer redisClient.Close()

	a := agent.New(sess, redisClient, *commandKey, *resultChannel)
	go a.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.Stop()
	log.Printf("shutting down")
}
