// Package config provides configuration structures and utilities for
// webspider. It defines the crawl options populated from CLI flags, the
// .webspider YAML file with per-domain politeness settings, and the XDG
// directory helpers used for persistent storage.
package config
