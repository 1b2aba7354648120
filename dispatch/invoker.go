package dispatch

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
)

// Invoker runs one tool to completion with positional arguments.
type Invoker interface {
	Invoke(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// ScriptInvoker runs a script through an interpreter, or directly when
// Interpreter is empty.
type ScriptInvoker struct {
	Interpreter string
	Script      string
}

func (s ScriptInvoker) Invoke(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	name, argv := s.Script, args
	if s.Interpreter != "" {
		name, argv = s.Interpreter, append([]string{s.Script}, args...)
	}

	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}

func (s ScriptInvoker) String() string {
	if s.Interpreter == "" {
		return s.Script
	}

	return s.Interpreter + " " + s.Script
}

// Registry maps every runnable tool to the way it is invoked. It is built
// once at startup and read concurrently afterwards.
type Registry map[Tool]Invoker

// NewRegistry registers every known tool's bundled script from scriptsDir.
func NewRegistry(scriptsDir string) Registry {
	r := make(Registry, len(tools))
	for t, s := range tools {
		r[t] = ScriptInvoker{Interpreter: s.interpreter, Script: filepath.Join(scriptsDir, s.script)}
	}

	return r
}

// Lookup returns the invoker for t.
func (r Registry) Lookup(t Tool) (Invoker, error) {
	inv, ok := r[t]
	if !ok {
		return nil, fmt.Errorf("tool %s is not registered", t)
	}

	return inv, nil
}
