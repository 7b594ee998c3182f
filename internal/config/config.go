// Package config holds process configuration and the versioned settings
// snapshots read by the ledger core.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the static process configuration read once at startup.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	AuditFile   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   envOr("JWT_SECRET_KEY", "metax-jwt-secret-change-in-production"),
		AuditFile:   strings.TrimSpace(os.Getenv("ADMIN_AUDIT_FILE")),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Limits bounds transaction amounts per type. Amounts are USDT.
type Limits struct {
	MinDeposit    decimal.Decimal
	MaxDeposit    decimal.Decimal
	MinWithdrawal decimal.Decimal
	MaxWithdrawal decimal.Decimal
	WithdrawalFee decimal.Decimal
}

// RankThreshold maps a minimum total investment to a rank name. Thresholds
// are evaluated highest first.
type RankThreshold struct {
	Rank    string
	Minimum decimal.Decimal
}

// Settings is an immutable snapshot of the operational parameters. Services
// read one snapshot at the start of each operation; a snapshot never changes
// under an in-flight operation.
type Settings struct {
	Version       int
	Limits        Limits
	ReferralRates map[int]decimal.Decimal // level -> percent
	MaxLevels     int
	StakingAPY    decimal.Decimal // percent per year
	Ranks         []RankThreshold
	AssignmentTTL time.Duration
}

// DefaultSettings returns the platform defaults.
func DefaultSettings() Settings {
	return Settings{
		Version: 1,
		Limits: Limits{
			MinDeposit:    decimal.NewFromInt(10),
			MaxDeposit:    decimal.NewFromInt(100000),
			MinWithdrawal: decimal.NewFromInt(5),
			MaxWithdrawal: decimal.NewFromInt(50000),
			WithdrawalFee: decimal.NewFromInt(2),
		},
		ReferralRates: map[int]decimal.Decimal{
			1: decimal.NewFromInt(10),
			2: decimal.NewFromInt(5),
			3: decimal.NewFromInt(3),
			4: decimal.NewFromInt(2),
			5: decimal.NewFromInt(1),
		},
		MaxLevels:  5,
		StakingAPY: decimal.NewFromInt(12),
		Ranks: []RankThreshold{
			{Rank: "Diamond", Minimum: decimal.NewFromInt(50000)},
			{Rank: "Platinum", Minimum: decimal.NewFromInt(20000)},
			{Rank: "Gold", Minimum: decimal.NewFromInt(5000)},
			{Rank: "Silver", Minimum: decimal.NewFromInt(1000)},
			{Rank: "Bronze", Minimum: decimal.Zero},
		},
		AssignmentTTL: 30 * time.Minute,
	}
}

// RankFor returns the rank name for a total investment amount.
func (s Settings) RankFor(totalInvestment decimal.Decimal) string {
	for _, t := range s.Ranks {
		if totalInvestment.GreaterThanOrEqual(t.Minimum) {
			return t.Rank
		}
	}
	return "Bronze"
}

// Provider yields the current settings snapshot.
type Provider interface {
	Current() Settings
}

// StaticProvider always returns the same snapshot.
type StaticProvider struct {
	Settings Settings
}

func (p StaticProvider) Current() Settings { return p.Settings }

// UpdatableProvider swaps snapshots atomically, bumping the version on each
// update. In-flight operations keep the snapshot they started with.
type UpdatableProvider struct {
	mu       sync.RWMutex
	settings Settings
}

// NewUpdatableProvider seeds a provider with an initial snapshot.
func NewUpdatableProvider(initial Settings) *UpdatableProvider {
	return &UpdatableProvider{settings: initial}
}

func (p *UpdatableProvider) Current() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Update replaces the snapshot. Maps are not copied; callers must treat the
// supplied settings as frozen after this call.
func (p *UpdatableProvider) Update(next Settings) Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	next.Version = p.settings.Version + 1
	p.settings = next
	return next
}

// ParseDecimalEnv reads a decimal from the environment, falling back when
// unset or malformed.
func ParseDecimalEnv(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return d
}

// ParseIntEnv reads an int from the environment with a fallback.
func ParseIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// SettingsFromEnv overlays environment overrides on the defaults.
func SettingsFromEnv() Settings {
	s := DefaultSettings()
	s.Limits.MinDeposit = ParseDecimalEnv("MIN_DEPOSIT", s.Limits.MinDeposit)
	s.Limits.MaxDeposit = ParseDecimalEnv("MAX_DEPOSIT", s.Limits.MaxDeposit)
	s.Limits.MinWithdrawal = ParseDecimalEnv("MIN_WITHDRAWAL", s.Limits.MinWithdrawal)
	s.Limits.MaxWithdrawal = ParseDecimalEnv("MAX_WITHDRAWAL", s.Limits.MaxWithdrawal)
	s.Limits.WithdrawalFee = ParseDecimalEnv("WITHDRAWAL_FEE", s.Limits.WithdrawalFee)
	s.StakingAPY = ParseDecimalEnv("STAKING_APY", s.StakingAPY)
	s.MaxLevels = ParseIntEnv("MAX_REFERRAL_LEVELS", s.MaxLevels)
	if minutes := ParseIntEnv("WALLET_ASSIGNMENT_DURATION", 0); minutes > 0 {
		s.AssignmentTTL = time.Duration(minutes) * time.Minute
	}
	return s
}

// String renders the snapshot version for logs.
func (s Settings) String() string {
	return fmt.Sprintf("settings v%d (apy=%s, levels=%d)", s.Version, s.StakingAPY, s.MaxLevels)
}
