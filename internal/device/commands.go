package device

import (
	"strings"
)

const (
	// InputBufferSize is the device's line buffer, terminator included.
	InputBufferSize = 256
	// MaxLineLength leaves room in InputBufferSize for the write wrapper.
	MaxLineLength = 230

	// ErrorPrefix starts every runtime diagnostic printed by the interpreter.
	ErrorPrefix = "lua:"
	// Prompt is printed when the interpreter is ready for the next line.
	Prompt = '>'
	// Terminator ends every command line.
	Terminator = "\r"

	// defaultBracketLevel gives the [==[ ... ]==] literal the device tooling
	// has always sent.
	defaultBracketLevel = 2
)

// ListCommand prints one "name:<NAME>, size:<SIZE>" line per stored file.
const ListCommand = "local l = file.list();for k,v in pairs(l) do print('name:'..k..', size:'..v) end"

// OpenMode is the mode argument of file.open.
type OpenMode string

const (
	ModeWrite         OpenMode = "w"
	ModeWriteTruncate OpenMode = "w+"
	ModeAppend        OpenMode = "a+"
)

func quoteName(name string) (string, error) {
	if name == "" {
		return "", &FramingError{Text: name, Reason: "empty file name"}
	}
	for _, r := range name {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return "", &FramingError{Text: name, Reason: "file name needs escaping"}
		}
	}
	return `"` + name + `"`, nil
}

func nameCall(fn, name string) (string, error) {
	q, err := quoteName(name)
	if err != nil {
		return "", err
	}
	return fn + "(" + q + ")", nil
}

// OpenCommand builds file.open("name", "mode").
func OpenCommand(name string, mode OpenMode) (string, error) {
	q, err := quoteName(name)
	if err != nil {
		return "", err
	}
	return "file.open(" + q + `, "` + string(mode) + `")`, nil
}

// RemoveCommand builds file.remove("name").
func RemoveCommand(name string) (string, error) { return nameCall("file.remove", name) }

// CompileCommand builds node.compile("name").
func CompileCommand(name string) (string, error) { return nameCall("node.compile", name) }

// DofileCommand builds dofile("name").
func DofileCommand(name string) (string, error) { return nameCall("dofile", name) }

const (
	CloseCommand   = "file.close()"
	FlushCommand   = "file.flush()"
	RestartCommand = "node.restart()"
)

// WriteLineCommand wraps line in file.writeline with a long-bracket literal.
// The usual [==[ form is used unless the line itself would terminate it, in
// which case the next level that does not collide is chosen. A line that
// cannot be framed within the device buffer yields a FramingError.
func WriteLineCommand(line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", &FramingError{Text: line, Reason: "embedded line terminator"}
	}
	for level := defaultBracketLevel; ; level++ {
		eq := strings.Repeat("=", level)
		open, closing := "["+eq+"[", "]"+eq+"]"
		cmd := "file.writeline(" + open + line + closing + ")"
		if len(cmd)+len(Terminator) > InputBufferSize {
			return "", &FramingError{Text: line, Reason: "no long-bracket level fits the device buffer"}
		}
		if strings.Index(line+closing, closing) == len(line) {
			return cmd, nil
		}
	}
}

// CompiledName is the artifact node.compile leaves for a source file.
func CompiledName(name string) string {
	if strings.HasSuffix(name, ".lua") {
		return strings.TrimSuffix(name, ".lua") + ".lc"
	}
	return name + ".lc"
}
