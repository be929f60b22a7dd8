package config

import (
	"errors"
	"fmt"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyQueue(&cfg.Queue); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyAuth(&cfg.Auth); err != nil {
		return err
	}
	if cfg.Relay.RoutedWindowSize < 1 {
		return errors.New("relay.routed_window_size must be at least 1")
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if cfg.TLSCertFile != "" {
		for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile} {
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("tls file %q: %w", f, err)
			}
		}
	}
	return nil
}

func verifyQueue(cfg *QueueSection) error {
	if cfg.URL == "" {
		return errors.New("queue.url is required")
	}
	if cfg.InputQueue == "" || cfg.OutputQueue == "" {
		return errors.New("queue.input_queue and queue.output_queue are required")
	}
	if cfg.InputQueue == cfg.OutputQueue {
		return errors.New("queue.input_queue and queue.output_queue must differ")
	}
	if cfg.Prefetch < 1 {
		return errors.New("queue.prefetch must be at least 1")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "memory":
		return nil
	case "badger":
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		return nil
	default:
		return fmt.Errorf("unknown storage.backend %q (want badger or memory)", cfg.Backend)
	}
}

func verifyAuth(cfg *AuthSection) error {
	if len(cfg.APIKeys) == 0 && cfg.APIKeysFile == "" {
		return errors.New("auth.api_keys or auth.api_keys_file is required")
	}
	if cfg.RateLimit < 0 {
		return errors.New("auth.rate_limit cannot be negative")
	}
	return nil
}
