// Package confloader provides configuration loading mechanism.
//
// It uses Koanf for flexible configuration loading from multiple
// sources with priority: Env > File > Default. It also carries the
// fsnotify watcher used for live reload of the API key file and log
// level.
package confloader
