// Package fileops holds filesystem helpers for swapping processed audio
// files into place without ever losing the previous version.
package fileops

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// BackupSuffix marks the rollback copy kept while a replacement is in flight.
const BackupSuffix = ".plmr.bak"

// Seams for the rollback tests.
var (
	statFile   = os.Stat
	renameFile = os.Rename
	removeFile = os.Remove
)

// ReplaceFileSafely moves tempPath over targetPath. An existing target is
// parked at target+BackupSuffix first and restored if the final rename
// fails, so an interrupted replacement never leaves the target missing.
func ReplaceFileSafely(tempPath, targetPath string) error {
	temp := strings.TrimSpace(tempPath)
	target := strings.TrimSpace(targetPath)
	switch {
	case temp == "":
		return errors.New("replacement source path is empty")
	case target == "":
		return errors.New("replacement target path is empty")
	case temp == target:
		return errors.New("replacement source and target are the same path")
	}

	info, err := statFile(temp)
	if err != nil {
		return fmt.Errorf("stat replacement source %q: %w", temp, err)
	}
	if info.IsDir() {
		return fmt.Errorf("replacement source %q is a directory", temp)
	}

	backup := target + BackupSuffix
	if err := clearStaleBackup(backup); err != nil {
		return err
	}

	parked, err := parkTarget(target, backup)
	if err != nil {
		return err
	}

	if err := renameFile(temp, target); err != nil {
		if parked {
			if restoreErr := renameFile(backup, target); restoreErr != nil {
				return fmt.Errorf("replace failed (%v) and restore failed (%w)", err, restoreErr)
			}
		}
		return fmt.Errorf("replace %q: %w", target, err)
	}

	if parked {
		if err := removeFile(backup); err != nil {
			return fmt.Errorf("remove backup %q: %w", backup, err)
		}
	}
	return nil
}

func clearStaleBackup(backup string) error {
	_, err := statFile(backup)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat backup %q: %w", backup, err)
	}
	if err := removeFile(backup); err != nil {
		return fmt.Errorf("remove stale backup %q: %w", backup, err)
	}
	return nil
}

// parkTarget moves an existing target aside and reports whether it did.
func parkTarget(target, backup string) (bool, error) {
	_, err := statFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat target %q: %w", target, err)
	}
	if err := renameFile(target, backup); err != nil {
		return false, fmt.Errorf("park target %q: %w", target, err)
	}
	return true, nil
}
