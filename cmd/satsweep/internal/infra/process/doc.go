// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package process provides inter-process exclusion for sweeps.

Two sweeps appending to the same results file would interleave rows and
corrupt the dataset. ResultsLock takes an advisory flock(2) on a sibling
"<results>.lock" file for the lifetime of a sweep, and records the holder's
PID in "<results>.pid" so the refusal message can name it.

	lock := process.NewResultsLock("results.csv")
	if err := lock.Acquire(); err != nil {
	    return err // *ErrLockHeld if another sweep owns the file
	}
	defer lock.Release()

# Thread Safety

ResultsLock is NOT safe for concurrent use from multiple goroutines. It
synchronises processes, not goroutines.

# Limitations

  - Advisory only; a process that does not take the lock is not stopped
  - NFS and some network filesystems do not honour flock
  - Unix only
*/
package process
