package bridge

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process bring-up configuration, read from BRIDGE_* environment
// variables. Parameter defaults mirror mainnet governance values.
type Config struct {
	DatabasePath string `envconfig:"DATABASE_PATH" default:"bridge.db"`
	// AdminAddress is the hex-encoded identity allowed to manage the
	// coordinator allow-list and use the manual unlock escape hatch.
	AdminAddress string `envconfig:"ADMIN_ADDRESS"`

	ChallengeDepositAmount        uint64        `envconfig:"CHALLENGE_DEPOSIT_AMOUNT" default:"5000000000000000000"`
	ChallengeDefeatTimeout        time.Duration `envconfig:"CHALLENGE_DEFEAT_TIMEOUT" default:"168h"`
	ChallengeRewardMultiplier     uint8         `envconfig:"CHALLENGE_REWARD_MULTIPLIER" default:"100"`
	DepositTxMaxFee               uint64        `envconfig:"DEPOSIT_TX_MAX_FEE" default:"100000"`
	DepositMinAge                 time.Duration `envconfig:"DEPOSIT_MIN_AGE" default:"32h"`
	RefundSafetyMargin            time.Duration `envconfig:"REFUND_SAFETY_MARGIN" default:"24h"`
	MaxSweepSize                  uint16        `envconfig:"MAX_SWEEP_SIZE" default:"20"`
	HeartbeatRequestValidity      time.Duration `envconfig:"HEARTBEAT_REQUEST_VALIDITY" default:"1h"`
	DepositSweepProposalValidity  time.Duration `envconfig:"DEPOSIT_SWEEP_PROPOSAL_VALIDITY" default:"4h"`
	HeartbeatRequestGasOffset     uint64        `envconfig:"HEARTBEAT_REQUEST_GAS_OFFSET" default:"10000"`
	DepositSweepProposalGasOffset uint64        `envconfig:"DEPOSIT_SWEEP_PROPOSAL_GAS_OFFSET" default:"20000"`
	ChallengeDefeatGasOffset      uint64        `envconfig:"CHALLENGE_DEFEAT_GAS_OFFSET" default:"30000"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("bridge", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment config: %w", err)
	}
	return cfg, nil
}

// Parameters converts the configured governance values into a validated
// parameter set.
func (c Config) Parameters() (Parameters, error) {
	params := Parameters{
		ChallengeDepositAmount:        c.ChallengeDepositAmount,
		ChallengeDefeatTimeout:        c.ChallengeDefeatTimeout,
		ChallengeRewardMultiplier:     c.ChallengeRewardMultiplier,
		DepositTxMaxFee:               c.DepositTxMaxFee,
		DepositMinAge:                 c.DepositMinAge,
		RefundSafetyMargin:            c.RefundSafetyMargin,
		MaxSweepSize:                  c.MaxSweepSize,
		HeartbeatRequestValidity:      c.HeartbeatRequestValidity,
		DepositSweepProposalValidity:  c.DepositSweepProposalValidity,
		HeartbeatRequestGasOffset:     c.HeartbeatRequestGasOffset,
		DepositSweepProposalGasOffset: c.DepositSweepProposalGasOffset,
		ChallengeDefeatGasOffset:      c.ChallengeDefeatGasOffset,
	}
	if err := params.Validate(); err != nil {
		return Parameters{}, err
	}
	return params, nil
}

// Admin parses the configured admin address.
func (c Config) Admin() (Address, error) {
	var admin Address
	if c.AdminAddress == "" {
		return admin, nil
	}
	raw, err := hex.DecodeString(c.AdminAddress)
	if err != nil {
		return admin, fmt.Errorf("failed to decode admin address: %w", err)
	}
	if len(raw) != len(admin) {
		return admin, fmt.Errorf("admin address must be %d bytes, got %d", len(admin), len(raw))
	}
	copy(admin[:], raw)
	return admin, nil
}
