// Package main provides the entry point for askgate-server.
package main
