// Package worktree wraps the git CLI for worktree operations.
//
// Git's own worktree registry (git worktree list --porcelain) is the
// single source of truth for which worktrees exist; nothing here caches
// it. We shell out to git rather than use a Go git library because
// worktree semantics need full CLI compatibility and library support for
// them is incomplete.
package worktree
