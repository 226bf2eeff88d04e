package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/buckleypaul/luatool/internal/device"
)

// Console mirrors a device session to a terminal: each sent command with
// its status, stage headings, and a progress bar while lines stream. In
// compact mode the individual write commands are folded into the bar.
type Console struct {
	w         io.Writer
	compact   bool
	bar       progress.Model
	streaming bool
	stageNo   int
}

// NewConsole writes to w. compact is meant for interactive terminals.
func NewConsole(w io.Writer, compact bool) *Console {
	return &Console{
		w:       w,
		compact: compact,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (c *Console) folded() bool { return c.compact && c.streaming }

func (c *Console) CommandSent(cmd string) {
	if c.folded() {
		return
	}
	fmt.Fprintf(c.w, "\n%s%s", ArrowStyle.Render("->"), CommandStyle.Render(cmd))
}

func (c *Console) CommandDone(cmd string, res device.Result, err error) {
	if err != nil {
		if c.folded() {
			fmt.Fprintf(c.w, "\n%s%s", ArrowStyle.Render("->"), CommandStyle.Render(cmd))
		}
		fmt.Fprintf(c.w, " %s\n", ErrorBadge("ERROR"))
		c.describe(err)
		return
	}
	if c.folded() {
		return
	}
	switch res.Status {
	case device.Confirmed:
		fmt.Fprintf(c.w, " -> %s", SuccessBadge("ok"))
	default:
		fmt.Fprintf(c.w, " -> %s", DimStyle.Render(res.Status.String()))
	}
}

func (c *Console) describe(err error) {
	var me *device.MismatchError
	var ie *device.InterpreterError
	var te *device.TimeoutError
	switch {
	case errors.As(err, &me):
		fmt.Fprintf(c.w, " send string    : '%s'\n", me.Sent)
		fmt.Fprintf(c.w, " expected echo  : '%s'\n", me.Sent)
		fmt.Fprintf(c.w, " but got answer : '%s'\n", me.Received)
	case errors.As(err, &ie):
		fmt.Fprintf(c.w, " %s %s\n", ErrorTextStyle.Render("Lua ERROR:"), ie.Line)
	case errors.As(err, &te):
		fmt.Fprintf(c.w, " %s\n", ErrorTextStyle.Render("No proper answer from MCU"))
	}
}

func (c *Console) StageStarted(stage device.Stage) {
	c.stageNo++
	c.streaming = stage == device.StageStream
	if stage == device.StagePreflight {
		return
	}
	fmt.Fprintf(c.w, "\n%s\n", StageStyle.Render(fmt.Sprintf("Stage %d. %s", c.stageNo-1, stage)))
}

func (c *Console) StageSkipped(stage device.Stage) {
	c.stageNo++
	fmt.Fprintf(c.w, "\n%s\n", SkippedStyle.Render(fmt.Sprintf("[SKIPPED] Stage %d. %s", c.stageNo-1, stage)))
}

func (c *Console) LineWritten(n, total int) {
	if !c.compact {
		return
	}
	fmt.Fprintf(c.w, "\r%s %d/%d", c.bar.ViewAs(float64(n)/float64(total)), n, total)
	if n == total {
		fmt.Fprintln(c.w)
		c.streaming = false
	}
}

// Done prints the closing banner.
func (c *Console) Done() {
	fmt.Fprintf(c.w, "\n%s\n", AccentStyle.Render("--->>> All done <<<---"))
}

// RetryHint tells the user the remote file may be left half-written.
func (c *Console) RetryHint() {
	fmt.Fprintln(c.w, HintStyle.Render("The remote file may be incomplete; run the upload again without --append."))
}

var _ device.Progress = (*Console)(nil)
