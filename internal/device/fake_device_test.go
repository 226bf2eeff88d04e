package device

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	simOpen      = regexp.MustCompile(`^file\.open\("([^"]+)", "([^"]+)"\)$`)
	simRemove    = regexp.MustCompile(`^file\.remove\("([^"]+)"\)$`)
	simCompile   = regexp.MustCompile(`^node\.compile\("([^"]+)"\)$`)
	simDofile    = regexp.MustCompile(`^dofile\("([^"]+)"\)$`)
	simWriteLine = regexp.MustCompile(`^file\.writeline\(\[(=*)\[`)
)

// fakeDevice is a Transport that behaves like a NodeMCU interpreter with an
// in-memory file system: it echoes each command, prints its output and the
// prompt.
type fakeDevice struct {
	files    map[string]*bytes.Buffer
	open     string
	restarts int
	ran      []string

	commands []string
	discards int

	// 1-based command numbers that misbehave; 0 disables.
	mangleAt int
	errorAt  int
	silentAt int

	in  bytes.Buffer
	out bytes.Buffer
}

func newFakeDevice(files map[string]string) *fakeDevice {
	d := &fakeDevice{files: map[string]*bytes.Buffer{}}
	for name, content := range files {
		d.files[name] = bytes.NewBufferString(content)
	}
	return d
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.in.Write(p)
	for {
		line, err := d.in.ReadString('\r')
		if err != nil {
			// incomplete command, keep it for the next write
			d.in.Reset()
			d.in.WriteString(line)
			return len(p), nil
		}
		d.handle(strings.TrimSuffix(line, "\r"))
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if d.out.Len() == 0 {
		return 0, nil
	}
	return d.out.Read(p)
}

func (d *fakeDevice) ResetInputBuffer() error {
	d.discards++
	d.out.Reset()
	return nil
}

func (d *fakeDevice) content(name string) string {
	if b, ok := d.files[name]; ok {
		return b.String()
	}
	return ""
}

func (d *fakeDevice) names() []string {
	var names []string
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *fakeDevice) countPrefix(prefix string) int {
	n := 0
	for _, c := range d.commands {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (d *fakeDevice) handle(cmd string) {
	d.commands = append(d.commands, cmd)
	n := len(d.commands)

	switch n {
	case d.silentAt:
		d.out.WriteString(cmd + "\r\n")
		return
	case d.mangleAt:
		d.out.WriteString(strings.ToUpper(cmd) + "\r\n> ")
		return
	}

	d.out.WriteString(cmd + "\r\n")
	if n == d.errorAt {
		d.out.WriteString("lua: stdin:1: simulated failure\r\n> ")
		return
	}
	if out := d.eval(cmd); out != "" {
		d.out.WriteString(out)
	}
	d.out.WriteString("> ")
}

func (d *fakeDevice) eval(cmd string) string {
	if cmd == ListCommand {
		var sb strings.Builder
		for _, name := range d.names() {
			fmt.Fprintf(&sb, "name:%s, size:%d\r\n", name, d.files[name].Len())
		}
		return sb.String()
	}
	if m := simOpen.FindStringSubmatch(cmd); m != nil {
		name, mode := m[1], m[2]
		b, ok := d.files[name]
		if !ok || strings.HasPrefix(mode, "w") {
			b = &bytes.Buffer{}
			d.files[name] = b
		}
		d.open = name
		return ""
	}
	if m := simWriteLine.FindStringSubmatch(cmd); m != nil {
		closing := "]" + m[1] + "])"
		body := strings.TrimPrefix(cmd, m[0])
		end := strings.Index(body, closing[:len(closing)-1])
		if end < 0 || body[end:] != closing {
			return "lua: stdin:1: unfinished long string\r\n"
		}
		if d.open == "" {
			return "lua: stdin:1: no file open\r\n"
		}
		d.files[d.open].WriteString(body[:end] + "\n")
		return ""
	}
	if m := simRemove.FindStringSubmatch(cmd); m != nil {
		delete(d.files, m[1])
		return ""
	}
	if m := simCompile.FindStringSubmatch(cmd); m != nil {
		d.files[CompiledName(m[1])] = bytes.NewBufferString("\x1bLua" + d.content(m[1]))
		return ""
	}
	if m := simDofile.FindStringSubmatch(cmd); m != nil {
		d.ran = append(d.ran, m[1])
		return "hello from " + m[1] + "\r\n"
	}
	switch cmd {
	case CloseCommand:
		d.open = ""
		return ""
	case FlushCommand:
		return ""
	case RestartCommand:
		d.restarts++
		return ""
	}
	return "lua: stdin:1: unexpected symbol near '" + cmd + "'\r\n"
}
