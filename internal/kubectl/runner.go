package kubectl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner spawns a process and returns its merged stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// ExecRunner runs processes with os/exec. Directories in SearchPath are
// searched before PATH when resolving the binary, and are prepended to the
// child's PATH so kubectl can find its exec credential plugin.
type ExecRunner struct {
	searchPath []string
	env        []string
}

// NewExecRunner returns an ExecRunner for the given search path.
func NewExecRunner(searchPath []string) *ExecRunner {
	r := &ExecRunner{searchPath: searchPath}
	if len(searchPath) > 0 {
		r.env = childEnv(os.Environ(), searchPath)
	}
	return r
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	if r.env != nil {
		cmd.Env = r.env
	}
	return cmd.CombinedOutput()
}

func (r *ExecRunner) resolve(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		return name, nil
	}
	for _, dir := range r.searchPath {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}
	return path, nil
}

// childEnv returns environ with searchPath prepended to PATH.
func childEnv(environ []string, searchPath []string) []string {
	prefix := strings.Join(searchPath, string(os.PathListSeparator))
	env := make([]string, 0, len(environ)+1)
	found := false
	for _, kv := range environ {
		if strings.HasPrefix(kv, "PATH=") {
			current := strings.TrimPrefix(kv, "PATH=")
			if current != "" {
				kv = "PATH=" + prefix + string(os.PathListSeparator) + current
			} else {
				kv = "PATH=" + prefix
			}
			found = true
		}
		env = append(env, kv)
	}
	if !found {
		env = append(env, "PATH="+prefix)
	}
	return env
}
