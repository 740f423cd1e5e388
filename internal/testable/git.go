// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package testable

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

// RepoDetector reports whether a directory lies inside a git work tree.
// Agent CLIs such as Codex refuse to run outside one unless told otherwise.
type RepoDetector interface {
	InsideWorkTree(path string) (bool, error)
}

// RealRepoDetector is the production RepoDetector backed by go-git. It walks
// up from path looking for a .git directory, the same way git itself does.
type RealRepoDetector struct{}

// InsideWorkTree opens the repository containing path, if any.
func (RealRepoDetector) InsideWorkTree(path string) (bool, error) {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	return false, err
}

// StaticRepoDetector is a RepoDetector that always returns the same answer.
type StaticRepoDetector struct {
	Inside bool
	Err    error
}

// InsideWorkTree returns the configured answer.
func (s StaticRepoDetector) InsideWorkTree(string) (bool, error) {
	return s.Inside, s.Err
}
