// Package model defines the domain types and error taxonomy for treeport.
//
// Every entity here is a transient in-memory representation. Durable state
// lives in the filesystem artifacts the other packages manage: lock files,
// per-worktree env files, and the line-oriented registries. The git worktree
// list is the only authority on which worktrees exist; nothing in this
// package caches it.
package model
