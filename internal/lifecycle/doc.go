// Package lifecycle orchestrates the create, open and delete flows across
// git, the port allocator, the multiplexer and the registries.
//
// The Manager owns ordering and rollback; the actual work is behind small
// interfaces so each flow can be tested against fakes. Two ordering rules
// are load-bearing: the deletion safety gate runs before the interactive
// confirmation (an unsafe target is never even offered for deletion), and
// a port allocated during create is released if the env file recording it
// cannot be written.
package lifecycle
