package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "SBOMGEN"
	defaultConfigName = ".sbomgen"
)

// loadConfig layers the config file and SBOMGEN_* variables under the flags
// of cmd. Flag names map to variables with "-" replaced by "_", so
// --source-dir is SBOMGEN_SOURCE_DIR.
func (a *app) loadConfig(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return &usageError{err: fmt.Errorf("failed to read config file: %w", err)}
		}
		return nil
	}

	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &usageError{err: fmt.Errorf("failed to read config file: %w", err)}
		}
	}
	return nil
}

// requireString returns a configured value that must not be empty
func (a *app) requireString(key string) (string, error) {
	value := a.v.GetString(key)
	if value == "" {
		return "", usageErrorf("--%s is required (or set %s_%s)", key, envPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
	}
	return value, nil
}

// sourceDateEpoch reads SOURCE_DATE_EPOCH; ok is false when it is unset
func sourceDateEpoch(lookup func(string) (string, bool)) (t time.Time, ok bool, err error) {
	raw, set := lookup("SOURCE_DATE_EPOCH")
	if !set || raw == "" {
		return time.Time{}, false, nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, usageErrorf("SOURCE_DATE_EPOCH %q is not a number of seconds", raw)
	}
	return time.Unix(seconds, 0).UTC(), true, nil
}

// parseTimestamp accepts RFC 3339 or Unix seconds
func parseTimestamp(raw string) (time.Time, error) {
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, usageErrorf("--timestamp %q is neither RFC 3339 nor Unix seconds", raw)
	}
	return t.UTC(), nil
}
