package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/buckleypaul/luatool/internal/device"
)

func TestConsoleMirrorsCommands(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.CommandSent("file.close()")
	c.CommandDone("file.close()", device.Result{Status: device.Confirmed}, nil)
	c.CommandSent(`dofile("init.lua")`)
	c.CommandDone(`dofile("init.lua")`, device.Result{Status: device.Unsent}, nil)

	out := buf.String()
	for _, want := range []string{"->file.close()", "ok", `->dofile("init.lua")`, "sent without check"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got=%q", want, out)
		}
	}
}

func TestConsoleDescribesMismatch(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	err := &device.MismatchError{Sent: "file.flush()", Received: "garbage"}
	c.CommandSent("file.flush()")
	c.CommandDone("file.flush()", device.Result{}, err)

	out := buf.String()
	if !strings.Contains(out, "ERROR") {
		t.Errorf("expected ERROR badge, got=%q", out)
	}
	if !strings.Contains(out, "but got answer : 'garbage'") {
		t.Errorf("expected received line, got=%q", out)
	}
}

func TestConsoleDescribesInterpreterError(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.CommandDone("x()", device.Result{}, &device.InterpreterError{Line: "lua: stdin:1: boom"})
	if !strings.Contains(buf.String(), "lua: stdin:1: boom") {
		t.Errorf("expected interpreter message, got=%q", buf.String())
	}
}

func TestConsoleStages(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.StageStarted(device.StagePreflight)
	c.StageSkipped(device.StagePurge)
	c.StageStarted(device.StageOpen)

	out := buf.String()
	if !strings.Contains(out, "[SKIPPED] Stage 1. Deleting old file from flash memory") {
		t.Errorf("expected skipped purge stage, got=%q", out)
	}
	if !strings.Contains(out, "Stage 2. Creating file in flash memory") {
		t.Errorf("expected open stage, got=%q", out)
	}
}

func TestConsoleCompactFoldsWrites(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.StageStarted(device.StageStream)
	for i := 1; i <= 4; i++ {
		c.CommandSent("file.writeline([==[x]==])")
		c.CommandDone("file.writeline([==[x]==])", device.Result{Status: device.Confirmed}, nil)
		c.LineWritten(i, 4)
	}
	c.CommandSent("file.flush()")

	out := buf.String()
	if strings.Contains(out, "writeline") {
		t.Errorf("expected write commands to be folded, got=%q", out)
	}
	if !strings.Contains(out, "4/4") {
		t.Errorf("expected progress counter, got=%q", out)
	}
	if !strings.Contains(out, "->file.flush()") {
		t.Errorf("expected commands after streaming to be shown, got=%q", out)
	}
}

func TestConsoleRetryHint(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.RetryHint()
	if !strings.Contains(buf.String(), "run the upload again") {
		t.Errorf("expected retry hint, got=%q", buf.String())
	}
}

func TestCatalogLines(t *testing.T) {
	lines := CatalogLines(device.Catalog{
		"main.lua": {Name: "main.lua", Size: 45},
		"init.lua": {Name: "init.lua", Size: 120},
	})
	want := []string{"init.lua\t(size=120)", "main.lua\t(size=45)"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got=%q", i, want[i], lines[i])
		}
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"PORT", "USB ID"}, [][]string{{"/dev/ttyUSB0", "1a86:7523"}})
	for _, want := range []string{"PORT", "USB ID", "/dev/ttyUSB0", "1a86:7523"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got=%q", want, out)
		}
	}
}
