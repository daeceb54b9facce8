//go:build mage

// Package main provides build targets for paradox-mcp using Mage.
//
// Usage:
//
//	mage build             Compile the paradox-mcp binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests (exclude integration)
//	mage test:integration  Run only integration tests (builds first)
//	mage test:cover        Run unit tests with a coverage profile
//	mage lint              Run golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install paradox-mcp to GOPATH/bin
//	mage stats             Print Go LOC for production and test code
package main

const (
	binGo      = "go"
	binaryName = "paradox-mcp"
	binaryDir  = "bin"
	cmdDir     = "./cmd/paradox-mcp"
)
