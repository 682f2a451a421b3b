package env

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test scripts use /bin/sh")
	}
}

func TestExecuteScript(t *testing.T) {
	skipWithoutShell(t)

	baseline := OS()
	baseline.Set("AAA_BEGIN", "Begin")

	script := "#!/bin/sh\nexport ZZZ_END=End\n"
	result, err := ExecuteScript(context.Background(), script, baseline)
	require.NoError(t, err)

	assert.Equal(t, "Begin", result.Get("AAA_BEGIN"))
	assert.Equal(t, "End", result.Get("ZZZ_END"))
}

func TestExecuteScriptMultilineValue(t *testing.T) {
	skipWithoutShell(t)

	script := "#!/bin/sh\nexport MULTI=\"Line 1\nLine 2\nLast line\"\n"
	result, err := ExecuteScript(context.Background(), script, OS())
	require.NoError(t, err)

	lines := []string{"Line 1", "Line 2", "Last line"}
	assert.Equal(t, lines[0]+"\n"+lines[1]+"\n"+lines[2], result.Get("MULTI"))
}

func TestExecuteScriptIgnoresOutputBeforeMarker(t *testing.T) {
	skipWithoutShell(t)

	script := "#!/bin/sh\necho \"NOT_A=VARIABLE\"\nexport REAL=yes\n"
	result, err := ExecuteScript(context.Background(), script, OS())
	require.NoError(t, err)

	assert.False(t, result.Has("NOT_A"))
	assert.Equal(t, "yes", result.Get("REAL"))
}

func TestExecuteScriptFailure(t *testing.T) {
	skipWithoutShell(t)

	script := "#!/bin/sh\nexit 3\n"
	_, err := ExecuteScript(context.Background(), script, OS())
	assert.ErrorIs(t, err, ErrExecution)
}

func TestExecuteScriptTimeout(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	script := "#!/bin/sh\nsleep 5\n"
	_, err := ExecuteScript(ctx, script, OS())
	assert.ErrorIs(t, err, ErrTimeout)
}
