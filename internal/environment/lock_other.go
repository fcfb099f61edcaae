// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package environment

import "errors"

// errFlockUnavailable makes the metadata store fall back to its in-process mutex.
var errFlockUnavailable = errors.New("flock not available on this platform")

func acquireFileLock(string) (*fileLock, error) {
	return nil, errFlockUnavailable
}

// fileLock is the non-Linux stub. Release is a no-op.
type fileLock struct{}

// Release is a no-op on non-Linux platforms.
func (l *fileLock) Release() {}
