// Package raw reads env for code that runs before the logger exists
// it must not import logger or config
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf reads variables under a fixed prefix
type Conf struct {
	prefix string
	env    func(string) string
}

// New reads from the process env
func New() Conf { return Conf{env: os.Getenv} }

// Prefix narrows the view, e.g. New().Prefix("LOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, env: c.env} }

func (c Conf) value(key string) string {
	get := c.env
	if get == nil {
		get = os.Getenv
	}
	return strings.TrimSpace(get(c.prefix + key))
}

// Get returns the trimmed value or def
func (c Conf) Get(key, def string) string {
	if v := c.value(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts strconv spellings plus yes/no and on/off; anything else is def
func (c Conf) GetBool(key string, def bool) bool {
	v := strings.ToLower(c.value(key))
	switch v {
	case "":
		return def
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetInt returns a non-negative int or def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.value(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Fields parses "k=v,k2=v2"; pairs without a key are skipped
func (c Conf) Fields(key string) map[string]string {
	v := c.value(key)
	if v == "" {
		return nil
	}
	out := map[string]string{}
	for pair := range strings.SplitSeq(v, ",") {
		k, val, _ := strings.Cut(pair, "=")
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(val)
		}
	}
	return out
}
