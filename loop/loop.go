// Package loop orchestrates the parse → apply → verify → rollback →
// retry cycle over one LLM output blob (spec component E).
package loop

import (
	"strconv"
	"strings"
	"time"

	"github.com/ducks/llmux/apply"
	"github.com/ducks/llmux/core"
	"github.com/ducks/llmux/edit"
	"github.com/ducks/llmux/verify"
)

const defaultRetryPrompt = "The previous edit attempt failed verification.\n\n" +
	"Original edits:\n{{ original }}\n\n" +
	"Verification error:\n{{ error }}\n\n" +
	"Please provide corrected edits."

// MaxRetriesExceededError is the terminal error when every attempt
// fails verification.
type MaxRetriesExceededError struct {
	Attempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return "verification failed after " + strconv.Itoa(e.Attempts) + " attempts"
}

func (e *MaxRetriesExceededError) ErrorKind() core.Kind { return core.KindRetries }

// Config parameterizes one apply-verify cycle.
type Config struct {
	VerifyCommand    string
	MaxRetries       int
	RollbackStrategy verify.Strategy
	VerifyTimeout    time.Duration
	RetryPrompt      string
	Logger           core.Logger
}

func (c Config) logger() core.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return core.NoOpLogger{}
}

// AttemptResult records one pass through parse/apply/verify.
type AttemptResult struct {
	Attempt      int
	Manifest     *apply.Manifest
	VerifyResult *verify.Result
	Success      bool
	Duration     time.Duration
}

// Result is the final outcome of Run.
type Result struct {
	Success  bool
	Attempts []AttemptResult
	Output   string
}

// Run executes the apply-verify-retry cycle against sourceOutput, the
// free-form LLM blob to parse edits from, under workingDir.
func Run(sourceOutput string, cfg Config, workingDir string) (*Result, error) {
	maxAttempts := cfg.MaxRetries + 1
	currentOutput := sourceOutput
	var attempts []AttemptResult

	applier := apply.New(workingDir)
	applier.Logger = cfg.logger()

	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		start := time.Now()

		ops, err := edit.ParseEdits(currentOutput)
		if err != nil {
			return nil, err
		}

		manifest, err := applier.ApplyEdits(ops)
		if err != nil {
			return nil, err
		}

		var verifyResult *verify.Result
		if cfg.VerifyCommand != "" {
			verifyResult, err = verify.Run(cfg.VerifyCommand, workingDir, cfg.VerifyTimeout)
			if err != nil {
				return nil, err
			}
		}

		success := verifyResult == nil || verifyResult.Success
		attempt := AttemptResult{
			Attempt:      attemptNum,
			Manifest:     manifest,
			VerifyResult: verifyResult,
			Success:      success,
			Duration:     time.Since(start),
		}
		attempts = append(attempts, attempt)

		if success {
			if err := verify.Cleanup(manifest); err != nil {
				return nil, err
			}
			output := ""
			if verifyResult != nil {
				output = verifyResult.Stdout
			}
			return &Result{Success: true, Attempts: attempts, Output: output}, nil
		}

		// Verification failed: roll back regardless of whether we'll retry.
		cfg.logger().Warn("verification failed, rolling back", map[string]interface{}{
			"attempt": attemptNum, "strategy": cfg.RollbackStrategy,
		})
		_, _ = verify.Rollback(cfg.RollbackStrategy, workingDir, manifest)

		if attemptNum < maxAttempts {
			errContext := ""
			if verifyResult != nil {
				errContext = combinedOutput(verifyResult)
			}
			currentOutput = buildRetryPrompt(currentOutput, errContext, cfg.RetryPrompt)
			cfg.logger().Debug("retrying apply-verify cycle", map[string]interface{}{
				"next_attempt": attemptNum + 1, "max_attempts": maxAttempts,
			})
		}
	}

	cfg.logger().Error("apply-verify cycle exhausted retries", map[string]interface{}{
		"attempts": maxAttempts,
	})
	return &Result{Success: false, Attempts: attempts}, &MaxRetriesExceededError{Attempts: maxAttempts}
}

func combinedOutput(r *verify.Result) string {
	var b strings.Builder
	if r.Stdout != "" {
		b.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Stderr)
	}
	return b.String()
}

func buildRetryPrompt(original, errContext, template string) string {
	if template == "" {
		template = defaultRetryPrompt
	}
	out := strings.ReplaceAll(template, "{{ original }}", original)
	out = strings.ReplaceAll(out, "{{ error }}", errContext)
	return out
}
