// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	repoDir              = "repo"
	defaultCommitMessage = "Automated commit"
)

func (e *Env) cloneAndCommitRepo(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in cloneRepoArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CommitMessage == "" {
		in.CommitMessage = defaultCommitMessage
	}

	path, err := e.Guard.Resolve(repoDir)
	if err != nil {
		return nil, err
	}

	unlock := e.Outputs.Lock(path)
	defer unlock()

	repo, err := git.PlainOpen(path)
	switch {
	case err == nil:
		wt, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("failed to open worktree: %w", err)
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName})
		// A local repository without an origin has nothing to pull.
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) && !errors.Is(err, git.ErrRemoteNotFound) {
			return Failure(fmt.Sprintf("git pull failed: %v", err)), nil
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		if err := requireStrings("repo_url", in.RepoURL); err != nil {
			return nil, err
		}
		e.Logger.Debug().Str("url", in.RepoURL).Str("path", path).Msg("cloning repository")
		repo, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: in.RepoURL})
		if err != nil {
			return Failure(fmt.Sprintf("git clone failed: %v", err)), nil
		}
	default:
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	if err := writeAtomic(filepath.Join(path, "dummy.txt"), []byte("Test commit\n")); err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("failed to stage changes: %w", err)
	}
	hash, err := wt.Commit(in.CommitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  e.Settings.GitAuthorName,
			Email: e.Settings.GitAuthorEmail,
			When:  e.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	result := Success("Commit created successfully")
	result.Data = map[string]string{"commit": hash.String()}
	return result, nil
}
