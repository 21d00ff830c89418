package conf

import (
	"fmt"
	"sync"
	"time"
)

type config struct {
	// Protocol constants mirrored from the circle contract.
	feeBasisPoints uint64
	blocksPerDay   uint64

	// Average block interval used to convert block deltas to wall clock.
	blockInterval time.Duration

	// Cache TTLs per entry class.
	circleTTL time.Duration
	escrowTTL time.Duration
	floorTTL  time.Duration

	// Interval of the cache janitor sweep.
	sweepInterval time.Duration

	// Timeout applied to outgoing gateway requests.
	requestTimeout time.Duration

	// Confirmation polling for broadcast transactions.
	confirmPollInterval time.Duration
	confirmTimeout      time.Duration

	// Periodic session refresh.
	refreshInterval time.Duration

	// Marketplace scan bounds.
	scanWorkers     int
	scanRatePerSec  float64
	scanDefaultSpan uint64

	// Frequency label thresholds, in payout-interval days.
	monthlyMinDays  uint64
	biweeklyMinDays uint64
}

var (
	l sync.RWMutex

	defaultConf = defaultConfig()
	c           = defaultConf
)

func defaultConfig() config {
	return config{
		feeBasisPoints: 200,
		blocksPerDay:   144,

		blockInterval: 10 * time.Minute,

		circleTTL: 5 * time.Minute,
		escrowTTL: time.Minute,
		floorTTL:  15 * time.Minute,

		sweepInterval: time.Minute,

		requestTimeout: 5 * time.Second,

		confirmPollInterval: 10 * time.Second,
		confirmTimeout:      30 * time.Minute,

		refreshInterval: 30 * time.Second,

		scanWorkers:     4,
		scanRatePerSec:  10,
		scanDefaultSpan: 50,

		monthlyMinDays:  25,
		biweeklyMinDays: 12,
	}
}

type Option func(*config)

func WithFeeBasisPoints(bps uint64) Option {
	return func(c *config) {
		c.feeBasisPoints = bps
	}
}

func WithBlocksPerDay(n uint64) Option {
	return func(c *config) {
		c.blocksPerDay = n
	}
}

func WithBlockInterval(d time.Duration) Option {
	return func(c *config) {
		c.blockInterval = d
	}
}

func WithCircleTTL(d time.Duration) Option {
	return func(c *config) {
		c.circleTTL = d
	}
}

func WithEscrowTTL(d time.Duration) Option {
	return func(c *config) {
		c.escrowTTL = d
	}
}

func WithFloorTTL(d time.Duration) Option {
	return func(c *config) {
		c.floorTTL = d
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		c.sweepInterval = d
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) {
		c.requestTimeout = d
	}
}

func WithConfirmPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.confirmPollInterval = d
	}
}

func WithConfirmTimeout(d time.Duration) Option {
	return func(c *config) {
		c.confirmTimeout = d
	}
}

func WithRefreshInterval(d time.Duration) Option {
	return func(c *config) {
		c.refreshInterval = d
	}
}

func WithScanWorkers(n int) Option {
	return func(c *config) {
		c.scanWorkers = n
	}
}

func WithScanRatePerSec(r float64) Option {
	return func(c *config) {
		c.scanRatePerSec = r
	}
}

func WithScanDefaultSpan(n uint64) Option {
	return func(c *config) {
		c.scanDefaultSpan = n
	}
}

func WithFrequencyThresholds(monthlyMinDays, biweeklyMinDays uint64) Option {
	return func(c *config) {
		c.monthlyMinDays = monthlyMinDays
		c.biweeklyMinDays = biweeklyMinDays
	}
}

func GetFeeBasisPoints() uint64 {
	l.RLock()
	t := c.feeBasisPoints
	l.RUnlock()

	return t
}

func GetBlocksPerDay() uint64 {
	l.RLock()
	t := c.blocksPerDay
	l.RUnlock()

	return t
}

func GetBlockInterval() time.Duration {
	l.RLock()
	t := c.blockInterval
	l.RUnlock()

	return t
}

func GetCircleTTL() time.Duration {
	l.RLock()
	t := c.circleTTL
	l.RUnlock()

	return t
}

func GetEscrowTTL() time.Duration {
	l.RLock()
	t := c.escrowTTL
	l.RUnlock()

	return t
}

func GetFloorTTL() time.Duration {
	l.RLock()
	t := c.floorTTL
	l.RUnlock()

	return t
}

func GetSweepInterval() time.Duration {
	l.RLock()
	t := c.sweepInterval
	l.RUnlock()

	return t
}

func GetRequestTimeout() time.Duration {
	l.RLock()
	t := c.requestTimeout
	l.RUnlock()

	return t
}

func GetConfirmPollInterval() time.Duration {
	l.RLock()
	t := c.confirmPollInterval
	l.RUnlock()

	return t
}

func GetConfirmTimeout() time.Duration {
	l.RLock()
	t := c.confirmTimeout
	l.RUnlock()

	return t
}

func GetRefreshInterval() time.Duration {
	l.RLock()
	t := c.refreshInterval
	l.RUnlock()

	return t
}

func GetScanWorkers() int {
	l.RLock()
	t := c.scanWorkers
	l.RUnlock()

	return t
}

func GetScanRatePerSec() float64 {
	l.RLock()
	t := c.scanRatePerSec
	l.RUnlock()

	return t
}

func GetScanDefaultSpan() uint64 {
	l.RLock()
	t := c.scanDefaultSpan
	l.RUnlock()

	return t
}

func GetMonthlyMinDays() uint64 {
	l.RLock()
	t := c.monthlyMinDays
	l.RUnlock()

	return t
}

func GetBiweeklyMinDays() uint64 {
	l.RLock()
	t := c.biweeklyMinDays
	l.RUnlock()

	return t
}

func Update(options ...Option) {
	l.Lock()

	for _, option := range options {
		option(&c)
	}

	l.Unlock()
}

func Stringify() string {
	l.RLock()
	s := fmt.Sprintf("%+v", c)
	l.RUnlock()

	return s
}

func Reset() {
	l.Lock()
	c = defaultConf
	l.Unlock()
}
