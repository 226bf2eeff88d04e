package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineCommandDefaultFraming(t *testing.T) {
	cmd, err := WriteLineCommand(`print("hi")`)
	require.NoError(t, err)
	assert.Equal(t, `file.writeline([==[print("hi")]==])`, cmd)

	cmd, err = WriteLineCommand("")
	require.NoError(t, err)
	assert.Equal(t, "file.writeline([==[]==])", cmd)
}

func TestWriteLineCommandRaisesBracketLevelOnCollision(t *testing.T) {
	cmd, err := WriteLineCommand("s = [==[x]==]")
	require.NoError(t, err)
	assert.Equal(t, "file.writeline([===[s = [==[x]==]]===])", cmd)

	// a line ending in "]==" would close the default literal one byte early
	cmd, err = WriteLineCommand("t[1]==")
	require.NoError(t, err)
	assert.Equal(t, "file.writeline([===[t[1]==]===])", cmd)

	cmd, err = WriteLineCommand("x = t[y[1]]")
	require.NoError(t, err)
	assert.Equal(t, "file.writeline([==[x = t[y[1]]]==])", cmd)
}

func TestWriteLineCommandFitsBuffer(t *testing.T) {
	cmd, err := WriteLineCommand(strings.Repeat("a", MaxLineLength))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(cmd)+len(Terminator), InputBufferSize)

	_, err = WriteLineCommand(strings.Repeat("a", MaxLineLength-4) + "]==]")
	require.ErrorIs(t, err, ErrFraming)

	_, err = WriteLineCommand("a\rb")
	require.ErrorIs(t, err, ErrFraming)
}

func TestFileNameQuoting(t *testing.T) {
	cmd, err := OpenCommand("init.lua", ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, `file.open("init.lua", "a+")`, cmd)

	cmd, err = RemoveCommand("init.lua")
	require.NoError(t, err)
	assert.Equal(t, `file.remove("init.lua")`, cmd)

	for _, bad := range []string{"", `a"b`, `a\b`, "a\nb"} {
		_, err := RemoveCommand(bad)
		assert.ErrorIs(t, err, ErrFraming, "name %q", bad)
	}
}

func TestCompiledName(t *testing.T) {
	assert.Equal(t, "init.lc", CompiledName("init.lua"))
	assert.Equal(t, "boot.lc", CompiledName("boot"))
}
