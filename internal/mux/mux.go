package mux

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/treeport/internal/model"
)

// killGrace is how long to wait after a graceful kill before checking
// whether the session record survived and needs an explicit delete.
const killGrace = 500 * time.Millisecond

// exitedMarker flags dead-but-registered sessions in the listing output.
const exitedMarker = "EXITED"

// Client wraps the multiplexer binary. All invocations are synchronous;
// create and attach take over the terminal until the user detaches.
type Client struct {
	binary string
	layout string
	grace  time.Duration
	log    *log.Logger

	// Indirections over os/exec, replaced in tests.
	lookPath       func(file string) (string, error)
	run            func(args ...string) (string, error)
	runInteractive func(dir string, args ...string) error
}

// NewClient creates a Client for the given binary. layout, when non-empty,
// is passed to the multiplexer as a layout template on session creation.
func NewClient(binary, layout string, logger *log.Logger) *Client {
	c := &Client{
		binary:   binary,
		layout:   layout,
		grace:    killGrace,
		log:      logger,
		lookPath: exec.LookPath,
	}
	c.run = c.runCaptured
	c.runInteractive = c.runAttached
	return c
}

// Installed reports whether the multiplexer binary can be found.
func (c *Client) Installed() bool {
	_, err := c.lookPath(c.binary)
	return err == nil
}

// State classifies the named session from the multiplexer's own listing.
func (c *Client) State(name string) (model.SessionState, error) {
	out, err := c.run("list-sessions", "--no-formatting")
	if err != nil {
		return "", fmt.Errorf("%w: listing sessions: %v", model.ErrMultiplexer, err)
	}
	return classify(out, name), nil
}

// Reconcile ends with the caller either attached to a live session or
// inside a freshly created one, per the state machine:
//
//	absent → create
//	alive  → attach
//	exited → delete the record, then create
//
// A missing multiplexer binary is an error here: the interactive session
// is the whole point of an open operation.
func (c *Client) Reconcile(name, workDir string) error {
	if !c.Installed() {
		return fmt.Errorf("%w: %s is not installed", model.ErrMultiplexer, c.binary)
	}

	state, err := c.State(name)
	if err != nil {
		return err
	}

	switch state {
	case model.SessionAlive:
		c.log.Debug("attaching to running session", "session", name)
		return c.attach(name, workDir)
	case model.SessionExited:
		c.log.Debug("removing exited session record", "session", name)
		if _, err := c.run("delete-session", "--force", name); err != nil {
			return fmt.Errorf("%w: deleting exited session %s: %v", model.ErrMultiplexer, name, err)
		}
		return c.create(name, workDir)
	default:
		return c.create(name, workDir)
	}
}

// Kill tears down a session as part of worktree deletion: graceful kill,
// fixed grace period, then an explicit delete if the record survived.
// Everything here is best-effort: a missing binary or an already-gone
// session silently succeeds, since the goal state (no session) holds.
func (c *Client) Kill(name string) error {
	if !c.Installed() {
		c.log.Debug("multiplexer not installed, skipping session teardown", "session", name)
		return nil
	}

	state, err := c.State(name)
	if err != nil || state == model.SessionAbsent {
		return nil
	}

	if _, err := c.run("kill-session", name); err != nil {
		c.log.Warn("session kill failed", "session", name, "err", err)
	}

	time.Sleep(c.grace)

	state, err = c.State(name)
	if err != nil || state == model.SessionAbsent {
		return nil
	}
	if _, err := c.run("delete-session", "--force", name); err != nil {
		c.log.Warn("session delete failed", "session", name, "err", err)
	}
	return nil
}

// create launches a fresh session named name in workDir.
func (c *Client) create(name, workDir string) error {
	c.log.Debug("creating session", "session", name, "dir", workDir)
	if err := c.runInteractive(workDir, c.createArgs(name)...); err != nil {
		return fmt.Errorf("%w: creating session %s: %v", model.ErrMultiplexer, name, err)
	}
	return nil
}

func (c *Client) attach(name, workDir string) error {
	if err := c.runInteractive(workDir, "attach", name); err != nil {
		return fmt.Errorf("%w: attaching to session %s: %v", model.ErrMultiplexer, name, err)
	}
	return nil
}

// createArgs builds the session-creation argument list. With a layout
// configured, the session is started through it; the layout file is an
// opaque template handed to the multiplexer, never parsed here.
func (c *Client) createArgs(name string) []string {
	if c.layout != "" {
		return []string{"--session", name, "--new-session-with-layout", c.layout}
	}
	return []string{"attach", "--create", name}
}

// classify scans listing output for the named session. The first
// whitespace-separated field of each line is the session name; a line
// carrying the EXITED marker is a dead-but-registered session.
func classify(listing, name string) model.SessionState {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != name {
			continue
		}
		if strings.Contains(line, exitedMarker) {
			return model.SessionExited
		}
		return model.SessionAlive
	}
	return model.SessionAbsent
}

// runCaptured executes the multiplexer with captured output. An empty
// session table is reported by the binary as an error-like message rather
// than an empty list, so that case is normalized to empty output.
func (c *Client) runCaptured(args ...string) (string, error) {
	cmd := exec.Command(c.binary, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	combined := stdout.String() + stderr.String()
	if strings.Contains(combined, "No active") && strings.Contains(combined, "sessions") {
		return "", nil
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s %s: %s", c.binary, args[0], msg)
	}
	return stdout.String(), nil
}

// runAttached executes the multiplexer wired to the caller's terminal,
// blocking until the user detaches or the session ends.
func (c *Client) runAttached(dir string, args ...string) error {
	cmd := exec.Command(c.binary, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
