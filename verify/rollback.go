package verify

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ducks/llmux/apply"
)

// Strategy selects how Rollback restores the working tree after a
// failed verification.
type Strategy string

const (
	StrategyGit    Strategy = "git"
	StrategyBackup Strategy = "backup"
	StrategyNone   Strategy = "none"
)

// RollbackResult reports which paths were restored and, for a partial
// failure, which ones could not be.
type RollbackResult struct {
	Restored []string
	Failed   map[string]error
}

// Rollback restores workingDir to its pre-attempt state per strategy,
// using m to know which files were modified (and need restoring) versus
// newly created (and need removing). A git rollback shells out to `git
// checkout` for modified paths and deletes created ones; a backup
// rollback copies each backup blob back in place and deletes the
// backup; none is a diagnostic no-op.
func Rollback(strategy Strategy, workingDir string, m *apply.Manifest) (*RollbackResult, error) {
	result := &RollbackResult{Failed: map[string]error{}}

	if strategy == StrategyNone {
		return result, nil
	}

	for _, fc := range m.Changed {
		var err error
		switch strategy {
		case StrategyGit:
			err = gitCheckout(workingDir, fc.Path)
		case StrategyBackup:
			err = restoreBackup(fc)
		default:
			err = fmt.Errorf("verify: unknown rollback strategy %q", strategy)
		}
		if err != nil {
			result.Failed[fc.Path] = err
			continue
		}
		result.Restored = append(result.Restored, fc.Path)
	}

	for _, created := range m.Created {
		if err := os.Remove(created); err != nil && !os.IsNotExist(err) {
			result.Failed[created] = err
			continue
		}
		result.Restored = append(result.Restored, created)
	}

	if len(result.Failed) > 0 {
		return result, &RollbackPartialError{Restored: result.Restored, Failed: result.Failed}
	}
	return result, nil
}

func gitCheckout(workingDir, path string) error {
	rel, err := filepath.Rel(workingDir, path)
	if err != nil {
		rel = path
	}
	cmd := exec.Command("git", "checkout", "--", rel)
	cmd.Dir = workingDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git checkout %s: %w: %s", rel, err, out)
	}
	return nil
}

func restoreBackup(fc apply.FileChange) error {
	raw, err := os.ReadFile(fc.BackupPath)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", fc.BackupPath, err)
	}
	if err := os.WriteFile(fc.Path, raw, 0o644); err != nil {
		return fmt.Errorf("restoring %s from backup: %w", fc.Path, err)
	}
	return os.Remove(fc.BackupPath)
}

// Cleanup removes every backup blob recorded in m, reclaiming space
// after a successful verification. Created files and live changed paths
// are left untouched.
func Cleanup(m *apply.Manifest) error {
	var firstErr error
	for _, fc := range m.Changed {
		if fc.BackupPath == "" {
			continue
		}
		if err := os.Remove(fc.BackupPath); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
