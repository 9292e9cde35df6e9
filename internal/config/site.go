package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "500ms", "2s", or "1m30s". Plain integers are rejected so that
// a bare "5" cannot silently mean five nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SiteConfig holds per-domain crawl settings. Keys in the config file are
// bare domains (e.g., "example.com"), matched against the domain of each
// URL being fetched.
type SiteConfig struct {
	// Delay overrides the global crawl delay for this domain. Useful
	// for sites known to be fragile (raise it) or sites you operate
	// yourself (lower it). robots.txt Crawl-delay directives can still
	// raise the effective interval above this value.
	Delay Duration `yaml:"delay,omitempty"`
}

// File represents the structure of the .webspider configuration file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	// Keys are bare domains without a scheme (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains settings applied to every domain unless
	// overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// DefaultDelay returns the config file's default crawl delay, or ok=false
// when the file does not set one and the built-in default should apply.
func (cf *File) DefaultDelay() (time.Duration, bool) {
	if cf.Defaults.Delay > 0 {
		return cf.Defaults.Delay.Std(), true
	}
	return 0, false
}

// SiteDelays returns the explicit per-domain delay overrides, keyed by
// domain. Domains without an explicit delay are absent; the rate limiter
// falls back to the default delay for them.
func (cf *File) SiteDelays() map[string]time.Duration {
	if len(cf.Sites) == 0 {
		return nil
	}

	delays := make(map[string]time.Duration, len(cf.Sites))
	for domain, site := range cf.Sites {
		if site.Delay > 0 {
			delays[domain] = site.Delay.Std()
		}
	}

	if len(delays) == 0 {
		return nil
	}
	return delays
}
