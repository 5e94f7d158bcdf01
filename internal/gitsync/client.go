// Package gitsync mirrors remote content sources into the local content
// tree so articles maintained in other repositories build alongside the
// local ones.
package gitsync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Client clones and updates content source repositories under a workspace
// directory.
type Client struct {
	workspaceDir string
}

// NewClient creates a client rooted at workspaceDir.
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir}
}

// EnsureWorkspace creates the workspace directory if missing.
func (c *Client) EnsureWorkspace() error {
	if err := os.MkdirAll(c.workspaceDir, 0o755); err != nil {
		return sgerrors.GitSyncError(c.workspaceDir, err)
	}
	return nil
}

// Sync brings the source's checkout up to date, cloning on first use, and
// returns the directory holding the source's content. When the source names
// a subdirectory, the returned path points inside the checkout.
func (c *Client) Sync(source config.Source) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, source.Name)

	var err error
	if _, statErr := os.Stat(filepath.Join(repoPath, ".git")); statErr == nil {
		err = c.update(repoPath, source)
	} else {
		err = c.clone(repoPath, source)
	}
	if err != nil {
		return "", sgerrors.GitSyncError(source.Name, err)
	}

	contentPath := repoPath
	if source.Path != "" {
		contentPath = filepath.Join(repoPath, filepath.FromSlash(source.Path))
	}
	if _, err := os.Stat(contentPath); err != nil {
		return "", sgerrors.GitSyncError(source.Name, fmt.Errorf("content path %s: %w", source.Path, err))
	}
	return contentPath, nil
}

func (c *Client) clone(repoPath string, source config.Source) error {
	slog.Debug("Cloning content source", logfields.Name(source.Name), logfields.URL(source.URL), logfields.Path(repoPath))

	if err := os.RemoveAll(repoPath); err != nil {
		return fmt.Errorf("remove existing directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{URL: source.URL}
	if source.Branch != "" {
		cloneOptions.ReferenceName = plumbing.ReferenceName("refs/heads/" + source.Branch)
		cloneOptions.SingleBranch = true
	}

	repository, err := git.PlainClone(repoPath, false, cloneOptions)
	if err != nil {
		return fmt.Errorf("clone %s: %w", source.URL, err)
	}

	if ref, herr := repository.Head(); herr == nil {
		slog.Info("Content source cloned", logfields.Name(source.Name), slog.String("commit", ref.Hash().String()[:8]))
	} else {
		slog.Info("Content source cloned", logfields.Name(source.Name))
	}
	return nil
}

func (c *Client) update(repoPath string, source config.Source) error {
	slog.Debug("Updating content source", logfields.Name(source.Name), logfields.Path(repoPath))

	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.Pull(&git.PullOptions{RemoteName: "origin"})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("pull %s: %w", source.URL, err)
	}

	if err == git.NoErrAlreadyUpToDate {
		slog.Info("Content source already up to date", logfields.Name(source.Name))
	} else if ref, herr := repository.Head(); herr == nil {
		slog.Info("Content source updated", logfields.Name(source.Name), slog.String("commit", ref.Hash().String()[:8]))
	}
	return nil
}

// SyncAll syncs every source and returns the content directories in source
// order. A failing source stops the sync; partial content trees are worse
// than a reported failure.
func (c *Client) SyncAll(sources []config.Source) ([]string, error) {
	paths := make([]string, 0, len(sources))
	for _, source := range sources {
		path, err := c.Sync(source)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
