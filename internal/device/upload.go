package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Device drives file operations on the interpreter through a Channel.
type Device struct {
	ch       *Channel
	progress Progress
}

// New creates a Device on top of ch.
func New(ch *Channel) *Device {
	return &Device{ch: ch, progress: nopProgress{}}
}

// SetProgress installs p on the device and its channel.
func (d *Device) SetProgress(p Progress) {
	if p == nil {
		p = nopProgress{}
	}
	d.progress = p
	d.ch.SetProgress(p)
}

// Session describes one upload.
type Session struct {
	Source  string // local name, used in messages
	Dest    string
	Append  bool
	Compile bool
	Restart bool
	Run     bool
}

// Report summarizes a finished upload.
type Report struct {
	Lines int
	Bytes int
	// Artifact is the name left on the device: Dest, or its compiled form.
	Artifact string
}

// ReadLines reads src and strips the line terminators. A trailing newline
// does not produce an extra empty line.
func ReadLines(src io.Reader) ([]string, error) {
	br := bufio.NewReader(src)
	var lines []string
	for {
		s, err := br.ReadString('\n')
		if s != "" {
			lines = append(lines, strings.TrimRight(s, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Preflight checks every line against the device buffer and frames it.
// It returns the framed write commands; nothing is sent.
func Preflight(source string, lines []string) ([]string, error) {
	for i, line := range lines {
		if len(line) > MaxLineLength {
			return nil, &LineTooLongError{Source: source, Line: i + 1, Length: len(line)}
		}
	}
	cmds := make([]string, len(lines))
	for i, line := range lines {
		cmd, err := WriteLineCommand(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, i+1, err)
		}
		cmds[i] = cmd
	}
	return cmds, nil
}

// Upload writes src to s.Dest on the device. Any failure after pre-flight
// leaves the remote file in whatever state the last confirmed command left
// it; nothing is rolled back.
func (d *Device) Upload(src io.Reader, s Session) (Report, error) {
	d.progress.StageStarted(StagePreflight)
	lines, err := ReadLines(src)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", s.Source, err)
	}
	writes, err := Preflight(s.Source, lines)
	if err != nil {
		return Report{}, err
	}
	openCmd, err := OpenCommand(s.Dest, ModeWriteTruncate)
	if s.Append {
		openCmd, err = OpenCommand(s.Dest, ModeAppend)
	}
	if err != nil {
		return Report{}, err
	}

	if s.Append {
		log.Info("[SKIPPED] Stage 1. Deleting old file from flash memory")
		d.progress.StageSkipped(StagePurge)
	} else {
		log.Info("Stage 1. Deleting old file from flash memory")
		d.progress.StageStarted(StagePurge)
		if err := d.purge(s.Dest); err != nil {
			return Report{}, fmt.Errorf("purge %s: %w", s.Dest, err)
		}
	}

	log.Info("Stage 2. Creating file in flash memory")
	d.progress.StageStarted(StageOpen)
	if err := d.exec(openCmd); err != nil {
		return Report{}, fmt.Errorf("open %s: %w", s.Dest, err)
	}

	log.Info("Stage 3. Start writing data to flash memory")
	d.progress.StageStarted(StageStream)
	rep := Report{Artifact: s.Dest}
	for i, cmd := range writes {
		if err := d.exec(cmd); err != nil {
			return rep, fmt.Errorf("write %s line %d: %w", s.Dest, i+1, err)
		}
		rep.Lines++
		rep.Bytes += len(lines[i]) + 1
		d.progress.LineWritten(i+1, len(writes))
	}

	log.Info("Stage 4. Flush data and closing file")
	d.progress.StageStarted(StageFinalize)
	for _, cmd := range []string{FlushCommand, CloseCommand} {
		if err := d.exec(cmd); err != nil {
			return rep, fmt.Errorf("finalize %s: %w", s.Dest, err)
		}
	}

	if s.Compile {
		log.Info("Stage 5. Compiling")
		d.progress.StageStarted(StageCompile)
		if err := d.compile(s.Dest); err != nil {
			return rep, fmt.Errorf("compile %s: %w", s.Dest, err)
		}
		rep.Artifact = CompiledName(s.Dest)
	}

	switch {
	case s.Restart:
		if s.Run {
			log.Debug("run request ignored, device restarts")
		}
		d.progress.StageStarted(StageRestart)
		if err := d.exec(RestartCommand); err != nil {
			return rep, fmt.Errorf("restart: %w", err)
		}
	case s.Run:
		d.progress.StageStarted(StageRun)
		cmd, err := DofileCommand(rep.Artifact)
		if err != nil {
			return rep, err
		}
		if _, err := d.ch.Execute(cmd, false); err != nil {
			return rep, fmt.Errorf("run %s: %w", rep.Artifact, err)
		}
	}
	return rep, nil
}

// purge makes sure name exists and then removes it; file.remove fails on a
// name that was never opened.
func (d *Device) purge(name string) error {
	open, err := OpenCommand(name, ModeWrite)
	if err != nil {
		return err
	}
	remove, err := RemoveCommand(name)
	if err != nil {
		return err
	}
	for _, cmd := range []string{open, CloseCommand, remove} {
		if err := d.exec(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) compile(name string) error {
	compile, err := CompileCommand(name)
	if err != nil {
		return err
	}
	remove, err := RemoveCommand(name)
	if err != nil {
		return err
	}
	if err := d.exec(compile); err != nil {
		return err
	}
	return d.exec(remove)
}

// Remove deletes name from the device.
func (d *Device) Remove(name string) error {
	cmd, err := RemoveCommand(name)
	if err != nil {
		return err
	}
	if err := d.exec(cmd); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Wipe removes every file in the device catalog and returns the removed
// names in the order they were deleted.
func (d *Device) Wipe() ([]string, error) {
	catalog, err := d.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	var removed []string
	for _, name := range catalog.Names() {
		log.Debugf("Delete file %s from device", name)
		if err := d.Remove(name); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

func (d *Device) exec(cmd string) error {
	_, err := d.ch.Execute(cmd, true)
	return err
}
