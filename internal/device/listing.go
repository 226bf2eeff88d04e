package device

import (
	"regexp"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
)

var fileDesc = regexp.MustCompile(`^name:([^, ]+), size:([0-9]+)$`)

// RemoteFile is one entry of the device catalog.
type RemoteFile struct {
	Name string `json:"name"`
	Size uint32 `json:"size"`
}

// Catalog maps remote file names to their entries.
type Catalog map[string]RemoteFile

// Names returns the catalog's file names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListFiles asks the interpreter for its file list.
func (d *Device) ListFiles() (Catalog, error) {
	raw, err := d.ch.Capture(ListCommand)
	if err != nil {
		return nil, err
	}
	return ParseListing(raw)
}

// ParseListing extracts catalog entries from a listing reply. Lines of any
// other shape, including the echoed command, are skipped.
func ParseListing(raw []byte) (Catalog, error) {
	found := Catalog{}
	for _, line := range SplitLines(raw) {
		m := fileDesc.FindStringSubmatch(line)
		if m == nil {
			log.Debugf("Undesired line: '%s'", line)
			continue
		}
		size, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, &InterpreterError{Sent: ListCommand, Line: line, Reason: "file size out of range"}
		}
		found[m[1]] = RemoteFile{Name: m[1], Size: uint32(size)}
	}
	return found, nil
}
