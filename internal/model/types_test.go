package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBranch_Accepts(t *testing.T) {
	for _, branch := range []string{
		"main",
		"feature-auth",
		"feature/auth",
		"fix/issue-42",
		"release-1.2.3",
		"a",
		"user_name/wip",
	} {
		assert.NoError(t, ValidateBranch(branch), "branch %q should be accepted", branch)
	}
}

func TestValidateBranch_Rejects(t *testing.T) {
	for _, branch := range []string{
		"",
		"-leading-dash",
		"has space",
		"dots..path",
		"trailing/",
		"semi;colon",
		"back\\slash",
	} {
		err := ValidateBranch(branch)
		assert.Error(t, err, "branch %q should be rejected", branch)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "myapp-feature-auth", SessionName("myapp", "feature-auth"))

	// Slashes fold to double hyphens so the identifier is valid for the
	// multiplexer without colliding with a hyphenated branch name.
	assert.Equal(t, "myapp-feature--auth", SessionName("myapp", "feature/auth"))
	assert.NotEqual(t,
		SessionName("myapp", "feature-auth"),
		SessionName("myapp", "feature/auth"))
}

func TestProjectName(t *testing.T) {
	p := Project{Path: "/home/dev/src/myapp"}
	assert.Equal(t, "myapp", p.Name())
}

// TestExitCodeFor verifies the sentinel → exit code mapping, including
// errors wrapped with additional context, which is how core packages
// actually surface them.
func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		code ExitCode
	}{
		{nil, ExitSuccess},
		{errors.New("plain"), ExitGeneralError},
		{fmt.Errorf("%w: bad branch", ErrValidation), ExitValidation},
		{fmt.Errorf("%w: offset 100", ErrAllocationExhausted), ExitAllocationExhausted},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w: /tmp/x", ErrUnsafeLocation)), ExitUnsafeLocation},
		{fmt.Errorf("%w", ErrCancelled), ExitCancelled},
		{WrapCLIError(ExitCreationFailed, "git worktree add failed", errors.New("exit 128")), ExitCreationFailed},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, ExitCodeFor(tc.err), "error: %v", tc.err)
	}
}
