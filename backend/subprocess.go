package backend

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ducks/llmux/core"
)

// Subprocess invokes a local CLI as `<command> <args…> <prompt>` with
// stdin closed and stdout/stderr piped.
type Subprocess struct {
	BackendName string
	Command     string
	Args        []string
	Env         map[string]string
	Enabled     bool
	Timeout     time.Duration
	Logger      core.Logger
}

var _ Executor = (*Subprocess)(nil)

// Name returns the stable backend identifier used in results/templates.
func (s *Subprocess) Name() string { return s.BackendName }

// IsAvailable probes whether Command resolves on PATH or as an absolute
// executable path. It is advisory only — Execute still surfaces the
// authoritative spawn failure.
func (s *Subprocess) IsAvailable() bool {
	_, err := exec.LookPath(s.Command)
	return err == nil
}

// Execute spawns the subprocess with the rendered prompt as its final
// argument, draining stdout and stderr concurrently to avoid a
// pipe-buffer deadlock, under a timeout (request override, else the
// backend's configured default).
func (s *Subprocess) Execute(req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.Timeout
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	args := append(append([]string{}, s.Args...), req.Prompt)
	cmd := exec.Command(s.Command, args...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	cmd.Env = s.buildEnv()
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, newError(core.KindUnavail, "stdout pipe for %q: %v", s.Command, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, newError(core.KindUnavail, "stderr pipe for %q: %v", s.Command, err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, newError(core.KindUnavail, "spawning %q: %v", s.Command, err)
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); stdout.ReadFrom(stdoutPipe) }()
	go func() { defer wg.Done(); stderr.ReadFrom(stderrPipe) }()

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case waitErr := <-done:
		duration := time.Since(start)
		if waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				s.logger().Warn("subprocess backend exited nonzero", map[string]interface{}{
					"backend": s.BackendName, "command": s.Command, "exit_code": exitErr.ExitCode(),
				})
				return nil, newError(core.KindExecFailed,
					"%s exited %d: %s", s.Command, exitErr.ExitCode(), stderr.String())
			}
			s.logger().Error("subprocess backend failed to run", map[string]interface{}{
				"backend": s.BackendName, "command": s.Command, "error": waitErr.Error(),
			})
			return nil, newError(core.KindUnavail, "%s: %v", s.Command, waitErr)
		}
		s.logger().Debug("subprocess backend call completed", map[string]interface{}{
			"backend": s.BackendName, "command": s.Command, "duration": duration.String(),
		})
		return s.buildResponse(stdout.String(), duration), nil

	case <-time.After(timeout):
		// Kill the whole process group, not just s.Command itself, so a
		// grandchild holding the stdout/stderr pipes open can't keep the
		// drain goroutines blocked forever.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		s.logger().Warn("subprocess backend timed out", map[string]interface{}{
			"backend": s.BackendName, "command": s.Command, "timeout": timeout.String(),
		})
		return nil, newError(core.KindTimeout, "%s exceeded %s", s.Command, timeout)
	}
}

func (s *Subprocess) logger() core.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return core.NoOpLogger{}
}

func (s *Subprocess) buildEnv() []string {
	env := os.Environ()
	for k, v := range s.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// buildResponse joins stdout lines with newlines for Text, and
// additionally attempts a structured JSON parse when the backend is
// configured with --json/-j. A parse failure there is non-fatal — the
// structured field just stays empty.
func (s *Subprocess) buildResponse(stdout string, d time.Duration) *Response {
	text := strings.Join(splitNonEmptyLines(stdout), "\n")
	resp := &Response{Text: text, Backend: s.BackendName, Duration: d}

	if s.wantsJSON() {
		var structured map[string]interface{}
		if err := json.Unmarshal([]byte(stdout), &structured); err == nil {
			resp.Structured = structured
		}
	}
	return resp
}

func (s *Subprocess) wantsJSON() bool {
	for _, a := range s.Args {
		if a == "--json" || a == "-j" {
			return true
		}
	}
	return false
}

func splitNonEmptyLines(s string) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
