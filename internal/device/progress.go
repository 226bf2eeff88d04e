package device

import "fmt"

// Stage is one step of the staged upload.
type Stage int

const (
	StagePreflight Stage = iota
	StagePurge
	StageOpen
	StageStream
	StageFinalize
	StageCompile
	StageRestart
	StageRun
)

var stageNames = map[Stage]string{
	StagePreflight: "Checking line lengths",
	StagePurge:     "Deleting old file from flash memory",
	StageOpen:      "Creating file in flash memory",
	StageStream:    "Writing data to flash memory",
	StageFinalize:  "Flushing data and closing file",
	StageCompile:   "Compiling",
	StageRestart:   "Restarting device",
	StageRun:       "Running uploaded file",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Progress observes a session with the device. Implementations render it
// for a human; none of the calls may fail the operation.
type Progress interface {
	CommandSent(cmd string)
	CommandDone(cmd string, res Result, err error)
	StageStarted(stage Stage)
	StageSkipped(stage Stage)
	LineWritten(n, total int)
}

type nopProgress struct{}

func (nopProgress) CommandSent(string)                {}
func (nopProgress) CommandDone(string, Result, error) {}
func (nopProgress) StageStarted(Stage)                {}
func (nopProgress) StageSkipped(Stage)                {}
func (nopProgress) LineWritten(int, int)              {}
