package debounce

import "time"

type Config struct {
	action func([]uint64)
	period time.Duration
}

type ConfigOption func(cfg *Config)

func parseOptions(opts []ConfigOption) *Config {
	cfg := &Config{
		action: func([]uint64) {},
		period: 50 * time.Millisecond,
	}

	for _, cs := range opts {
		cs(cfg)
	}

	return cfg
}

func WithAction(action func([]uint64)) ConfigOption {
	return func(cfg *Config) {
		cfg.action = action
	}
}

func WithPeriod(period time.Duration) ConfigOption {
	return func(cfg *Config) {
		cfg.period = period
	}
}
