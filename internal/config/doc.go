// Package config provides configuration structures and utilities for bizscout.
// It defines the crawl settings populated from CLI flags, the YAML profile
// file that carries search filters, lexicons and CSS selectors, and the
// validation errors returned for inconsistent settings.
package config
