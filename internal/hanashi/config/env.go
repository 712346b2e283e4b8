package config

import (
	"os"
	"strings"
)

// applyEnv overlays values from the environment. Credentials are usually
// injected this way so they never have to live in the YAML file.
func (c *Config) applyEnv() {
	c.APIURL = stringFromEnv("HANASHI_API_URL", c.APIURL)
	c.APIKey = stringFromEnv("HANASHI_API_KEY", c.APIKey)
	c.Matrix.Homeserver = stringFromEnv("HANASHI_MATRIX_HOMESERVER", c.Matrix.Homeserver)
	c.Matrix.UserID = stringFromEnv("HANASHI_MATRIX_USER_ID", c.Matrix.UserID)
	c.Matrix.AccessToken = stringFromEnv("HANASHI_MATRIX_ACCESS_TOKEN", c.Matrix.AccessToken)
	c.Matrix.Rooms = stringSliceFromEnv("HANASHI_MATRIX_ROOMS", c.Matrix.Rooms)
	c.Matrix.AdminSenders = stringSliceFromEnv("HANASHI_ADMIN_SENDERS", c.Matrix.AdminSenders)
	c.DatabasePath = stringFromEnv("HANASHI_DATABASE_PATH", c.DatabasePath)
	c.HTTPAddr = stringFromEnv("HANASHI_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = stringFromEnv("HANASHI_LOG_LEVEL", c.LogLevel)
	c.LogFormat = stringFromEnv("HANASHI_LOG_FORMAT", c.LogFormat)
}

// stringFromEnv returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func stringFromEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// stringSliceFromEnv parses a comma-separated list, trimming whitespace and
// dropping empty elements. Returns fallback if nothing usable is set.
func stringSliceFromEnv(name string, fallback []string) []string {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
