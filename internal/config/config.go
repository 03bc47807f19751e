package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
)

// Network-wide constants from the reference deployment.
const (
	// AnchorTime is the network block cadence; the puzzle ticker asks
	// for fresh work once per anchor period.
	AnchorTime = 25 * time.Second

	// ListenerPort is advertised in ChallengeRequest. The prover never
	// actually listens; coordinators expect a plausible port anyway.
	ListenerPort uint16 = 4140
)

// DefaultBeacons is the built-in candidate set used when no beacon is
// configured.
var DefaultBeacons = []netx.Addr{
	"164.92.111.59:4133",
	"159.223.204.96:4133",
	"167.71.219.176:4133",
	"157.245.205.209:4133",
	"134.122.95.106:4133",
	"161.35.24.55:4133",
	"138.68.103.139:4133",
	"207.154.215.49:4133",
	"46.101.114.158:4133",
	"138.197.190.94:4133",
}

const DefaultTelemetryURL = "https://record.aleopro.com/record"

type Config struct {
	// RewardAddress receives credit for submitted solutions. Required.
	RewardAddress identity.Address

	// Beacons is the candidate coordinator set; one is chosen uniformly
	// at random per connection attempt.
	Beacons []netx.Addr

	// Worker labels this machine in telemetry records.
	Worker string

	// Threads sizes the solver pool.
	Threads int

	DataDir     string
	MetricsAddr string
	NoiseTunnel bool

	TelemetryURL   string
	ReportInterval time.Duration

	ConnectTimeout time.Duration
	RetryCooldown  time.Duration
	PuzzleInterval time.Duration
	QueueSize      int
}

func Default() Config {
	return Config{
		Beacons:        DefaultBeacons,
		Threads:        1,
		TelemetryURL:   DefaultTelemetryURL,
		ReportInterval: time.Minute,
		ConnectTimeout: 5 * time.Second,
		RetryCooldown:  5 * time.Second,
		PuzzleInterval: AnchorTime,
		QueueSize:      1024,
	}
}

// Validate checks the configuration before any session is attempted.
// Errors here are fatal to the process.
func (c *Config) Validate() error {
	if c.RewardAddress.IsZero() {
		return errors.New("prover reward address is required")
	}
	if len(c.Beacons) == 0 {
		return errors.New("no beacon addresses configured")
	}
	for _, b := range c.Beacons {
		if _, err := net.ResolveTCPAddr("tcp", string(b)); err != nil {
			return fmt.Errorf("invalid beacon address %q: %w", b, err)
		}
	}
	if c.Worker == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve worker name: %w", err)
		}
		c.Worker = host
	}
	if c.Threads < 1 {
		return errors.New("threads must be at least 1")
	}
	if c.QueueSize < 1 {
		return errors.New("queue size must be at least 1")
	}
	return nil
}
