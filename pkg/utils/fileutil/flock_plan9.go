package fileutil

import (
	"os"
)

type plan9Lock struct {
	f *os.File
}

var _ Releaser = (*plan9Lock)(nil)

func (l *plan9Lock) Release() error {
	// return l.f.Close()
	panic("unsupported unlock file")
}

func NewLock(f *os.File) (Releaser, error) {
	// return &plan9Lock{f}, nil
	panic("unsupported lock file")
}
