// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Locker guards a results file against concurrent sweeps.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type Locker interface {
	// Acquire takes the lock or fails immediately.
	Acquire() error

	// Release drops the lock. Safe to call multiple times or if the lock
	// was never acquired.
	Release() error

	// IsHeld reports whether this instance holds the lock.
	IsHeld() bool

	// HolderPID returns the PID recorded by the current holder, or 0.
	HolderPID() int
}

// ResultsLock implements Locker with flock(2) on "<target>.lock".
//
// # How It Works
//
//  1. Opens (creating if needed) the lock file
//  2. Attempts a non-blocking exclusive flock
//  3. Writes this process's PID to "<target>.pid"
//  4. On release, removes the PID file and unlocks
//
// The lock file is left in place after release. If the process dies
// without releasing, the OS drops the flock and only a stale PID file
// remains.
type ResultsLock struct {
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewResultsLock creates a lock for the results file at target. It does not
// acquire the lock.
func NewResultsLock(target string) *ResultsLock {
	return &ResultsLock{
		lockPath: target + ".lock",
		pidPath:  target + ".pid",
	}
}

// Acquire attempts to get the exclusive lock.
//
// # Description
//
// Uses a non-blocking flock. If another process holds the lock, returns
// *ErrLockHeld at once with the holder's PID when known.
//
// # Outputs
//
//   - error: nil if acquired; *ErrLockHeld if held elsewhere; a wrapped
//     error if the lock file cannot be created or locked
func (p *ResultsLock) Acquire() error {
	if p.held {
		return nil
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("create lock file %s: %w", p.lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return &ErrLockHeld{HolderPID: p.readHolderPID(), LockPath: p.lockPath}
		}
		return fmt.Errorf("acquire lock %s: %w", p.lockPath, err)
	}

	p.lockFile = f
	p.held = true

	// Best effort; the flock is what excludes.
	_ = p.writePID()

	return nil
}

// Release removes the PID file and releases the flock.
func (p *ResultsLock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	os.Remove(p.pidPath)

	err := unix.Flock(int(p.lockFile.Fd()), unix.LOCK_UN)
	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	if err != nil {
		return fmt.Errorf("release lock %s: %w", p.lockPath, err)
	}
	return nil
}

// IsHeld checks local state only.
func (p *ResultsLock) IsHeld() bool {
	return p.held
}

// HolderPID reads the PID file. May be stale if the holder crashed.
func (p *ResultsLock) HolderPID() int {
	return p.readHolderPID()
}

// LockPath returns the lock file path.
func (p *ResultsLock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the PID file path.
func (p *ResultsLock) PIDPath() string {
	return p.pidPath
}

func (p *ResultsLock) writePID() error {
	return os.WriteFile(p.pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func (p *ResultsLock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// ErrLockHeld is returned when another process holds the lock.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

// Error implements the error interface.
func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("results file is in use by another sweep (PID %d)", e.HolderPID)
	}
	return fmt.Sprintf("results file is in use by another sweep (check: lsof %s)", e.LockPath)
}

// Compile-time interface satisfaction check
var _ Locker = (*ResultsLock)(nil)
