// Package genesis maintains access to the genesis file which carries the
// starting balances and every economic parameter of the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Set of reward curves.
const (
	CurveLinear           = "linear"
	CurveQuadratic        = "quadratic"
	CurveConvergentLinear = "convergent_linear"
	CurveSquareRoot       = "square_root"
)

// ValidateCurve checks the curve name is known.
func ValidateCurve(curve string) error {
	switch curve {
	case CurveLinear, CurveQuadratic, CurveConvergentLinear, CurveSquareRoot:
		return nil
	}
	return fmt.Errorf("unknown reward curve %q", curve)
}

// Genesis represents the genesis file.
type Genesis struct {
	Date                time.Time         `json:"date" yaml:"date"`
	ChainID             uint16            `json:"chain_id" yaml:"chain_id"`                               // The chain id represents an unique id for this running instance.
	TransPerBlock       uint16            `json:"trans_per_block" yaml:"trans_per_block"`                 // The maximum number of transactions that can be in a block.
	BlockIntervalSec    uint32            `json:"block_interval_sec" yaml:"block_interval_sec"`           // Seconds between blocks.
	Producers           []string          `json:"producers" yaml:"producers"`                             // Accounts allowed to produce blocks and publish feeds.
	Balances            map[string]uint64 `json:"balances" yaml:"balances"`                               // Liquid native tokens per account.
	Stakes              map[string]uint64 `json:"stakes" yaml:"stakes"`                                   // Native tokens converted to stake per account.
	InitialVestingRatio int64             `json:"initial_vesting_ratio" yaml:"initial_vesting_ratio"`     // Stake units per native unit before any stake exists.
	AccountCreationFee  int64             `json:"account_creation_fee" yaml:"account_creation_fee"`       // Native units burned to create an account without a subsidy.
	ValidateInvariants  bool              `json:"validate_invariants" yaml:"validate_invariants"`         // Audit supply after every block.
	Inflation           Inflation         `json:"inflation" yaml:"inflation"`
	Rewards             Rewards           `json:"rewards" yaml:"rewards"`
	Interest            Interest          `json:"interest" yaml:"interest"`
	Vesting             Vesting           `json:"vesting" yaml:"vesting"`
	Recurrent           Recurrent         `json:"recurrent" yaml:"recurrent"`
	Subsidy             Subsidy           `json:"subsidy" yaml:"subsidy"`
	Feed                Feed              `json:"feed" yaml:"feed"`
	Conversion          Conversion        `json:"conversion" yaml:"conversion"`
}

// Inflation defines the per block supply injection and how it is split.
type Inflation struct {
	RateBP          int64 `json:"rate_bp" yaml:"rate_bp"`                     // Annual inflation of current supply.
	ContentRewardBP int64 `json:"content_reward_bp" yaml:"content_reward_bp"` // Share of new supply sent to the reward fund.
	VestingRewardBP int64 `json:"vesting_reward_bp" yaml:"vesting_reward_bp"` // Share of new supply sent to the vesting fund.
}

// Rewards defines the content reward parameters.
type Rewards struct {
	CashoutWindowSec     int64  `json:"cashout_window_sec" yaml:"cashout_window_sec"`
	AuthorCurve          string `json:"author_curve" yaml:"author_curve"`
	CurationCurve        string `json:"curation_curve" yaml:"curation_curve"`
	ContentConstant      uint64 `json:"content_constant" yaml:"content_constant"`
	CuratorPercentBP     int64  `json:"curator_percent_bp" yaml:"curator_percent_bp"`
	RecentClaimsDecaySec int64  `json:"recent_claims_decay_sec" yaml:"recent_claims_decay_sec"`
	VoteRegenerationSec  int64  `json:"vote_regeneration_sec" yaml:"vote_regeneration_sec"`
	MaxBeneficiaries     int    `json:"max_beneficiaries" yaml:"max_beneficiaries"`
}

// Interest defines the pegged token interest policy.
type Interest struct {
	RateBP              int64 `json:"rate_bp" yaml:"rate_bp"`
	Liquid              bool  `json:"liquid" yaml:"liquid"` // Pay interest on liquid balances, savings always accrue.
	CompoundIntervalSec int64 `json:"compound_interval_sec" yaml:"compound_interval_sec"`
}

// Vesting defines the stake withdrawal and delegation parameters.
type Vesting struct {
	WithdrawIntervals   uint8 `json:"withdraw_intervals" yaml:"withdraw_intervals"`
	WithdrawIntervalSec int64 `json:"withdraw_interval_sec" yaml:"withdraw_interval_sec"`
	DelegationReturnSec int64 `json:"delegation_return_sec" yaml:"delegation_return_sec"`
	MaxWithdrawRoutes   int   `json:"max_withdraw_routes" yaml:"max_withdraw_routes"`
}

// Recurrent defines the recurrent transfer limits.
type Recurrent struct {
	MinRecurrenceHours uint16 `json:"min_recurrence_hours" yaml:"min_recurrence_hours"`
	MaxExecutions      uint16 `json:"max_executions" yaml:"max_executions"`
	FailureLimit       uint8  `json:"failure_limit" yaml:"failure_limit"`
	MaxOpenPerAccount  int    `json:"max_open_per_account" yaml:"max_open_per_account"`
}

// Pool holds the constants of one decaying subsidy pool.
type Pool struct {
	BudgetPerBlock int64  `json:"budget_per_block" yaml:"budget_per_block"`
	DecayPerBlock  uint64 `json:"decay_per_block" yaml:"decay_per_block"`
	Shift          uint   `json:"shift" yaml:"shift"`
	Cap            int64  `json:"cap" yaml:"cap"`
}

// Subsidy defines the account creation subsidy pools.
type Subsidy struct {
	Precision int64 `json:"precision" yaml:"precision"` // Pool units consumed by one subsidized action.
	Global    Pool  `json:"global" yaml:"global"`
	Producer  Pool  `json:"producer" yaml:"producer"`
}

// Feed defines the price feed aggregation and stabilization parameters.
type Feed struct {
	WindowSec     int64 `json:"window_sec" yaml:"window_sec"`
	HistoryLength int   `json:"history_length" yaml:"history_length"`
	MaxFeedAgeSec int64 `json:"max_feed_age_sec" yaml:"max_feed_age_sec"`
	MinFeeds      int   `json:"min_feeds" yaml:"min_feeds"`
	HBDStartBP    int64 `json:"hbd_start_bp" yaml:"hbd_start_bp"` // Pegged share of market cap where print rate starts dropping.
	HBDStopBP     int64 `json:"hbd_stop_bp" yaml:"hbd_stop_bp"`   // Pegged share of market cap where printing stops and the feed is clamped.
}

// Conversion defines the conversion request parameters.
type Conversion struct {
	DelaySec           int64 `json:"delay_sec" yaml:"delay_sec"`
	CollateralFeeBP    int64 `json:"collateral_fee_bp" yaml:"collateral_fee_bp"`
	SavingsWithdrawSec int64 `json:"savings_withdraw_sec" yaml:"savings_withdraw_sec"`
	MaxSavingsRequests int   `json:"max_savings_requests" yaml:"max_savings_requests"`
}

// =============================================================================

// Default returns the genesis parameters used when the file leaves a value out.
func Default() Genesis {
	const day = 24 * 60 * 60

	return Genesis{
		ChainID:             1,
		TransPerBlock:       1000,
		BlockIntervalSec:    3,
		Balances:            map[string]uint64{},
		Stakes:              map[string]uint64{},
		InitialVestingRatio: 1000,
		AccountCreationFee:  3000,
		Inflation: Inflation{
			RateBP:          800,
			ContentRewardBP: 6500,
			VestingRewardBP: 1500,
		},
		Rewards: Rewards{
			CashoutWindowSec:     7 * day,
			AuthorCurve:          CurveConvergentLinear,
			CurationCurve:        CurveLinear,
			ContentConstant:      2_000_000_000_000,
			CuratorPercentBP:     5000,
			RecentClaimsDecaySec: 15 * day,
			VoteRegenerationSec:  5 * day,
			MaxBeneficiaries:     8,
		},
		Interest: Interest{
			RateBP:              1500,
			Liquid:              false,
			CompoundIntervalSec: 0,
		},
		Vesting: Vesting{
			WithdrawIntervals:   13,
			WithdrawIntervalSec: 7 * day,
			DelegationReturnSec: 5 * day,
			MaxWithdrawRoutes:   10,
		},
		Recurrent: Recurrent{
			MinRecurrenceHours: 24,
			MaxExecutions:      1000,
			FailureLimit:       10,
			MaxOpenPerAccount:  255,
		},
		Subsidy: Subsidy{
			Precision: 10000,
			Global: Pool{
				BudgetPerBlock: 797,
				DecayPerBlock:  347321,
				Shift:          36,
				Cap:            1 << 40,
			},
			Producer: Pool{
				BudgetPerBlock: 797,
				DecayPerBlock:  347321,
				Shift:          36,
				Cap:            1 << 40,
			},
		},
		Feed: Feed{
			WindowSec:     60 * 60,
			HistoryLength: 84,
			MaxFeedAgeSec: 7 * day,
			MinFeeds:      1,
			HBDStartBP:    900,
			HBDStopBP:     1000,
		},
		Conversion: Conversion{
			DelaySec:           day * 7 / 2,
			CollateralFeeBP:    500,
			SavingsWithdrawSec: 3 * day,
			MaxSavingsRequests: 100,
		},
	}
}

// Load opens and consumes the genesis file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. Values the file leaves out keep
// their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	default:
		err = json.Unmarshal(content, &genesis)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating genesis %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the parameters are internally consistent.
func (g Genesis) Validate() error {
	switch {
	case g.BlockIntervalSec == 0:
		return errors.New("block interval must be positive")
	case len(g.Producers) == 0:
		return errors.New("at least one producer is required")
	case g.InitialVestingRatio <= 0:
		return errors.New("initial vesting ratio must be positive")
	case g.Inflation.ContentRewardBP+g.Inflation.VestingRewardBP > 10000:
		return errors.New("inflation shares exceed 100%")
	case g.Rewards.CuratorPercentBP < 0 || g.Rewards.CuratorPercentBP > 10000:
		return errors.New("curator percent out of range")
	case g.Rewards.CashoutWindowSec <= 0:
		return errors.New("cashout window must be positive")
	case g.Rewards.RecentClaimsDecaySec <= 0:
		return errors.New("recent claims decay must be positive")
	case g.Vesting.WithdrawIntervals == 0 || g.Vesting.WithdrawIntervalSec <= 0:
		return errors.New("withdraw schedule must be positive")
	case g.Recurrent.FailureLimit == 0:
		return errors.New("recurrent failure limit must be positive")
	case g.Subsidy.Precision <= 0:
		return errors.New("subsidy precision must be positive")
	case g.Feed.WindowSec <= 0 || g.Feed.HistoryLength <= 0:
		return errors.New("feed window and history must be positive")
	case g.Feed.HBDStartBP > g.Feed.HBDStopBP:
		return errors.New("pegged print start must not exceed stop")
	case g.Recurrent.MinRecurrenceHours == 0:
		return errors.New("recurrent minimum recurrence must be positive")
	case g.Recurrent.MaxExecutions < 2:
		return errors.New("recurrent maximum executions must be at least 2")
	case g.Recurrent.MaxOpenPerAccount <= 0:
		return errors.New("recurrent open transfers per account must be positive")
	}

	if err := ValidateCurve(g.Rewards.AuthorCurve); err != nil {
		return fmt.Errorf("author curve: %w", err)
	}
	if err := ValidateCurve(g.Rewards.CurationCurve); err != nil {
		return fmt.Errorf("curation curve: %w", err)
	}

	if err := g.Subsidy.Global.validate(g.Subsidy.Precision); err != nil {
		return fmt.Errorf("global subsidy pool: %w", err)
	}
	if err := g.Subsidy.Producer.validate(g.Subsidy.Precision); err != nil {
		return fmt.Errorf("producer subsidy pool: %w", err)
	}

	return nil
}

// validate checks the pool can fill and hold at least one action and that
// the decay never takes the whole pool in a single block.
func (p Pool) validate(precision int64) error {
	switch {
	case p.BudgetPerBlock <= 0:
		return errors.New("budget per block must be positive")
	case p.Cap < precision:
		return errors.New("cap must hold at least one action")
	case p.Shift >= 64:
		return errors.New("shift must be below 64")
	case p.DecayPerBlock >= 1<<p.Shift:
		return errors.New("decay per block must be below one")
	}

	return nil
}

// BlocksPerYear returns the number of blocks produced in a year.
func (g Genesis) BlocksPerYear() int64 {
	return 365 * 24 * 60 * 60 / int64(g.BlockIntervalSec)
}

// IsProducer reports whether the account is in the producer set.
func (g Genesis) IsProducer(account string) bool {
	for _, p := range g.Producers {
		if p == account {
			return true
		}
	}
	return false
}

// Seconds converts a number of seconds to a duration.
func Seconds(sec int64) time.Duration {
	return time.Duration(sec) * time.Second
}
