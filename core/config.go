package core

import (
	"fmt"
	"time"
)

const (
	DefaultMaxUnconfirmed    = 1024
	DefaultBatchSize         = 64
	DefaultPollInterval      = 6 * time.Second
	DefaultRetryBaseDelay    = time.Second
	DefaultRetryMaxDelay     = time.Minute
	DefaultRetryMaxAttempts  = 5
	DefaultRetryMaxElapsed   = 10 * time.Minute
	DefaultSubmitDelayJitter = 2 * time.Second
	DefaultInclusionTimeout  = 2 * time.Minute
	DefaultLaneID            = "00000000"
)

// ChainConfig defines a chain configuration and its builder
type ChainConfig interface {
	Build() (Chain, error)
	Validate() error
}

// RelayConfig holds the tunables of a relay direction
type RelayConfig struct {
	MaxUnconfirmed       uint64        `mapstructure:"max-unconfirmed" yaml:"max-unconfirmed" json:"max-unconfirmed"`
	Lanes                []string      `mapstructure:"lanes" yaml:"lanes" json:"lanes"`
	PollInterval         time.Duration `mapstructure:"poll-interval" yaml:"poll-interval" json:"poll-interval"`
	BatchSize            uint64        `mapstructure:"batch-size" yaml:"batch-size" json:"batch-size"`
	ConfirmationLowWater uint64        `mapstructure:"confirmation-low-water" yaml:"confirmation-low-water" json:"confirmation-low-water"`
	RetryBaseDelay       time.Duration `mapstructure:"retry-base-delay" yaml:"retry-base-delay" json:"retry-base-delay"`
	RetryMaxDelay        time.Duration `mapstructure:"retry-max-delay" yaml:"retry-max-delay" json:"retry-max-delay"`
	RetryMaxAttempts     uint          `mapstructure:"retry-max-attempts" yaml:"retry-max-attempts" json:"retry-max-attempts"`
	RetryMaxElapsed      time.Duration `mapstructure:"retry-max-elapsed" yaml:"retry-max-elapsed" json:"retry-max-elapsed"`
	SubmitDelayJitter    time.Duration `mapstructure:"submit-delay-jitter" yaml:"submit-delay-jitter" json:"submit-delay-jitter"`
	InclusionTimeout     time.Duration `mapstructure:"inclusion-timeout" yaml:"inclusion-timeout" json:"inclusion-timeout"`
	OnlyMandatoryHeaders bool          `mapstructure:"only-mandatory-headers" yaml:"only-mandatory-headers" json:"only-mandatory-headers"`
	LanePriority         LanePriority  `mapstructure:"lane-priority" yaml:"lane-priority" json:"lane-priority"`
}

// DefaultRelayConfig returns the config used for keys missing in the config file
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxUnconfirmed:    DefaultMaxUnconfirmed,
		Lanes:             []string{DefaultLaneID},
		PollInterval:      DefaultPollInterval,
		BatchSize:         DefaultBatchSize,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		RetryMaxAttempts:  DefaultRetryMaxAttempts,
		RetryMaxElapsed:   DefaultRetryMaxElapsed,
		SubmitDelayJitter: DefaultSubmitDelayJitter,
		InclusionTimeout:  DefaultInclusionTimeout,
		LanePriority:      PriorityLaneID,
	}
}

// LaneIDs parses the configured lanes
func (c RelayConfig) LaneIDs() ([]LaneID, error) {
	ids := make([]LaneID, 0, len(c.Lanes))
	seen := make(map[LaneID]bool)
	for _, s := range c.Lanes {
		id, err := ParseLaneID(s)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, ErrInvalidConfig.Wrapf("duplicate lane: %s", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func (c RelayConfig) Validate() error {
	if c.MaxUnconfirmed == 0 {
		return ErrInvalidConfig.Wrap("max-unconfirmed must be positive")
	}
	if c.BatchSize == 0 {
		return ErrInvalidConfig.Wrap("batch-size must be positive")
	}
	if c.PollInterval <= 0 {
		return ErrInvalidConfig.Wrap("poll-interval must be positive")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 || c.RetryMaxElapsed < 0 || c.SubmitDelayJitter < 0 {
		return ErrInvalidConfig.Wrap("retry delays must not be negative")
	}
	if c.RetryMaxDelay > 0 && c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrInvalidConfig.Wrapf("retry-max-delay(%s) < retry-base-delay(%s)", c.RetryMaxDelay, c.RetryBaseDelay)
	}
	if c.RetryMaxAttempts == 0 {
		return ErrInvalidConfig.Wrap("retry-max-attempts must be positive")
	}
	if c.InclusionTimeout <= 0 {
		return ErrInvalidConfig.Wrap("inclusion-timeout must be positive")
	}
	if c.ConfirmationLowWater >= c.MaxUnconfirmed {
		return ErrInvalidConfig.Wrapf("confirmation-low-water(%d) must be lower than max-unconfirmed(%d)", c.ConfirmationLowWater, c.MaxUnconfirmed)
	}
	if err := c.LanePriority.Validate(); err != nil {
		return err
	}
	lanes, err := c.LaneIDs()
	if err != nil {
		return err
	}
	if len(lanes) == 0 {
		return ErrInvalidConfig.Wrap("at least one lane is required")
	}
	return nil
}

// RelayMode selects what a relay direction relays
type RelayMode int

const (
	RelayHeadersAndMessages RelayMode = iota
	RelayHeadersOnly
	RelayMessagesOnly
)

func (m RelayMode) relaysHeaders() bool {
	return m != RelayMessagesOnly
}

func (m RelayMode) relaysMessages() bool {
	return m != RelayHeadersOnly
}

func (m RelayMode) String() string {
	switch m {
	case RelayHeadersAndMessages:
		return "headers-and-messages"
	case RelayHeadersOnly:
		return "headers"
	case RelayMessagesOnly:
		return "messages"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// DirectionConfig is everything needed to run the relay from Source to Target
type DirectionConfig struct {
	Bridge string
	Source Chain
	Target Chain
	Relay  RelayConfig
	Mode   RelayMode

	// Sink receives the events of the loop. Defaults to logging and metrics.
	Sink EventSink
	// Clock defaults to the system clock
	Clock Clock
}

// Name returns a human readable name of the direction
func (c DirectionConfig) Name() string {
	return fmt.Sprintf("%s:%s->%s", c.Bridge, c.Source.ChainID(), c.Target.ChainID())
}

// Validate checks everything that would prevent the loop from running
func (c DirectionConfig) Validate() error {
	if c.Source == nil || c.Target == nil {
		return ErrInvalidConfig.Wrap("source and target chains are required")
	}
	if c.Source.ChainID() == c.Target.ChainID() {
		return ErrInvalidConfig.Wrapf("source and target are the same chain: %s", c.Source.ChainID())
	}
	if c.Mode < RelayHeadersAndMessages || c.Mode > RelayMessagesOnly {
		return ErrInvalidConfig.Wrapf("unknown relay mode: %d", c.Mode)
	}
	return c.Relay.Validate()
}
