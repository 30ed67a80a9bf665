package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Feature: price-catalog, Property: known level names map to their zap level
func TestProperty_ParseLevelKnownNames(t *testing.T) {
	properties := gopter.NewProperties(nil)

	expected := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}

	properties.Property("level names parse to the matching level", prop.ForAll(
		func(name string) bool {
			return ParseLevel(name) == expected[name]
		},
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.Property("unknown level names fall back to info", prop.ForAll(
		func(name string) bool {
			return ParseLevel("x-"+name) == zapcore.InfoLevel
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: price-catalog, Property: price mutation logs are structured JSON
func TestProperty_PriceLogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("log entries carry message and price fields", prop.ForAll(
		func(message string, amount int64) bool {
			var buf bytes.Buffer

			encoderConfig := zap.NewProductionEncoderConfig()
			encoderConfig.TimeKey = "timestamp"
			encoderConfig.MessageKey = "message"

			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)
			log := zap.New(core).With(zap.String("service", "price-catalog"))

			log.Info(message, zap.Int64("amount", amount))
			_ = log.Sync()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}

			if entry["message"] != message || entry["service"] != "price-catalog" {
				return false
			}
			if _, ok := entry["timestamp"]; !ok {
				return false
			}
			got, ok := entry["amount"].(float64)
			return ok && int64(got) == amount
		},
		gen.AlphaString(),
		gen.Int64Range(0, 1<<40),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewBuildsLoggersForBothEnvironments(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := New(env, "debug")
		if err != nil {
			t.Fatalf("failed to create %s logger: %v", env, err)
		}
		if !log.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("%s logger should enable debug level", env)
		}
	}
}
