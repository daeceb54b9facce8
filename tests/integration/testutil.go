// Package integration provides end-to-end tests that run the built
// paradox-mcp binary.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	// serverBin is the path to the built paradox-mcp binary.
	serverBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetServerBin sets the path to the paradox-mcp binary (called from TestMain).
func SetServerBin(path string) {
	serverBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv provides an isolated test environment with its own config
// directory and table location.
type TestEnv struct {
	t        *testing.T
	TempDir  string
	Config   string
	Location string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build paradox-mcp: %v", buildErr)
	}
	if serverBin == "" {
		t.Fatal("paradox-mcp binary not built (serverBin is empty)")
	}

	tempDir := t.TempDir()
	location := filepath.Join(tempDir, "tables")
	configDir := filepath.Join(tempDir, "config")

	if err := os.MkdirAll(location, 0o755); err != nil {
		t.Fatalf("failed to create location: %v", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	return &TestEnv{
		t:        t,
		TempDir:  tempDir,
		Config:   configDir,
		Location: location,
	}
}

// CmdResult holds the result of a paradox-mcp execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes paradox-mcp with stdin and the given arguments.
func (e *TestEnv) Run(stdin string, args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config, "--location", e.Location}, args...)
	cmd := exec.Command(serverBin, allArgs...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run paradox-mcp: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun executes paradox-mcp and fails the test if it exits non-zero.
func (e *TestEnv) MustRun(stdin string, args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(stdin, args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("paradox-mcp %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// Response is a JSON-RPC response line.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Request encodes one JSON-RPC request line.
func Request(id int, method string, params any) string {
	msg := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return string(data) + "\n"
}

// ParseResponses decodes every line of stdout.
func ParseResponses(t *testing.T, stdout string) []Response {
	t.Helper()
	var out []Response
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Response
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("failed to parse response %q: %v", line, err)
		}
		out = append(out, r)
	}
	return out
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", data, err)
	}
	return result
}
