// Package config reads service settings from the process environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the environment. Variables that are
// already set win, and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// String returns the first non-empty variable among keys, or def.
func String(def string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func Int(def int, keys ...string) int {
	if v := String("", keys...); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func Bool(def bool, keys ...string) bool {
	if v := String("", keys...); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Duration accepts Go duration strings ("90s", "5m").
func Duration(def time.Duration, keys ...string) time.Duration {
	if v := String("", keys...); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// List splits a comma separated variable.
func List(keys ...string) []string {
	v := String("", keys...)
	if v == "" {
		return nil
	}
	var res []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}
