package directory

import (
	"fmt"
	"strings"
)

// FileSystemAccessStrategyName selects how NewFS reads files.
type FileSystemAccessStrategyName int

const (
	// Auto picks Mmap where memory mapping is supported and Nio otherwise.
	Auto FileSystemAccessStrategyName = iota
	// Simple reads the whole file into the heap on open.
	//
	// Deprecated: use Auto. Simple is kept so existing configuration parses.
	Simple
	// Nio keeps the file open and serves positional reads.
	Nio
	// Mmap maps the file read-only into memory.
	Mmap
)

var strategyNames = [...]string{
	Auto:   "auto",
	Simple: "simple",
	Nio:    "nio",
	Mmap:   "mmap",
}

// ExternalRepresentation returns the configuration value of s.
func (s FileSystemAccessStrategyName) ExternalRepresentation() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("FileSystemAccessStrategyName(%d)", int(s))
	}
	return strategyNames[s]
}

// String implements fmt.Stringer.
func (s FileSystemAccessStrategyName) String() string {
	return s.ExternalRepresentation()
}

// ParseFileSystemAccessStrategyName parses a configuration value.
// Matching ignores case and surrounding space.
func ParseFileSystemAccessStrategyName(value string) (FileSystemAccessStrategyName, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for i, name := range strategyNames {
		if v == name {
			return FileSystemAccessStrategyName(i), nil
		}
	}
	return 0, fmt.Errorf("directory: invalid file system access strategy %q: valid values are %s",
		value, strings.Join(strategyNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (s FileSystemAccessStrategyName) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("directory: invalid file system access strategy %d", int(s))
	}
	return []byte(strategyNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FileSystemAccessStrategyName) UnmarshalText(text []byte) error {
	v, err := ParseFileSystemAccessStrategyName(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
