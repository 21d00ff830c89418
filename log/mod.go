// Copyright (c) 2026 Susu Protocol
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package log

import (
	"io"

	"github.com/rs/zerolog"
)

var (
	output = &multiWriter{
		writers: make(map[string]io.Writer),
	}
	logger = zerolog.New(output).With().Timestamp().Logger()

	circle  zerolog.Logger
	tx      zerolog.Logger
	escrow  zerolog.Logger
	market  zerolog.Logger
	cache   zerolog.Logger
	gateway zerolog.Logger
	wallet  zerolog.Logger
)

const (
	KeyModule = "mod"
	KeyEvent  = "event"

	ModuleCircle  = "circle"
	ModuleTX      = "tx"
	ModuleEscrow  = "escrow"
	ModuleMarket  = "market"
	ModuleCache   = "cache"
	ModuleGateway = "gateway"
	ModuleWallet  = "wallet"
)

func init() { // nolint:gochecknoinits
	zerolog.MessageFieldName = "message"
	zerolog.LevelFieldName = "level"
	zerolog.ErrorFieldName = "error"

	setupChildLoggers()
}

func setupChildLoggers() {
	circle = logger.With().Str(KeyModule, ModuleCircle).Logger()
	tx = logger.With().Str(KeyModule, ModuleTX).Logger()
	escrow = logger.With().Str(KeyModule, ModuleEscrow).Logger()
	market = logger.With().Str(KeyModule, ModuleMarket).Logger()
	cache = logger.With().Str(KeyModule, ModuleCache).Logger()
	gateway = logger.With().Str(KeyModule, ModuleGateway).Logger()
	wallet = logger.With().Str(KeyModule, ModuleWallet).Logger()
}

func SetLevel(level string) {
	if l, err := zerolog.ParseLevel(level); err == nil {
		circle = circle.Level(l)
		tx = tx.Level(l)
		escrow = escrow.Level(l)
		market = market.Level(l)
		cache = cache.Level(l)
		gateway = gateway.Level(l)
		wallet = wallet.Level(l)
	}
}

func SetWriter(key string, writer io.Writer) {
	output.Set(key, writer)
}

func RemoveWriter(key string) {
	output.Remove(key)
}

func Circle(event string) zerolog.Logger {
	return circle.With().Str(KeyEvent, event).Logger()
}

func TX(event string) zerolog.Logger {
	return tx.With().Str(KeyEvent, event).Logger()
}

func Escrow(event string) zerolog.Logger {
	return escrow.With().Str(KeyEvent, event).Logger()
}

func Market(event string) zerolog.Logger {
	return market.With().Str(KeyEvent, event).Logger()
}

func Cache(event string) zerolog.Logger {
	return cache.With().Str(KeyEvent, event).Logger()
}

func Gateway(event string) zerolog.Logger {
	return gateway.With().Str(KeyEvent, event).Logger()
}

func Wallet(event string) zerolog.Logger {
	return wallet.With().Str(KeyEvent, event).Logger()
}
