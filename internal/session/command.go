// Package session implements the subprocess session runtime (4.F): launch
// a provider CLI, stream its output into the event log, extract token
// usage and context-compaction signals, and finalize the run record — plus
// the process-wide session registry (4.L).
package session

// BuiltCommand describes one subprocess invocation a driver wants
// launched.
type BuiltCommand struct {
	Argv              []string
	StdinText         string
	FinalTextFileAbs  string
	FinalTextParser   func(stdout, stderr string) (string, error)
}

// Capabilities are declared per driver so the runtime knows what to
// expect from its output (streaming, resumable, token usage reporting,
// patch export, worktree isolation requirement).
type Capabilities struct {
	Streaming               bool
	Resumable               bool
	ReportsTokenUsage       bool
	SupportsPatchExport     bool
	RequiresWorktreeIsolation bool
}

// Driver adapts one provider CLI to the session runtime's contract.
type Driver struct {
	Provider     string
	Capabilities Capabilities
	Build        func() (BuiltCommand, error)
}
