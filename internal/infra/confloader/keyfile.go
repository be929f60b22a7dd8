package confloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadKeysFile reads an API key file: one key per line, blank lines
// and #-comments ignored. Used for the initial key set and on every
// watcher-driven reload.
func ReadKeysFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	return keys, nil
}
