// Package config defines the askgate-server configuration structure.
package config
