package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

const defaultMaxSize = 2 << 20 // 2MB

// RotatingWriter appends to a size-capped log file. When the next entry
// would push the file past the cap, the file is moved aside to
// <path>.old (replacing any previous backup) and a fresh file is
// started, so a single entry is never split across the two files.
type RotatingWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	file    *os.File
	written int64
}

// Setup routes the standard logger to stdout plus a rotating file at
// logPath.
func Setup(logPath string) (*RotatingWriter, error) {
	w, err := NewRotatingWriter(logPath, defaultMaxSize)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, w))
	return w, nil
}

func NewRotatingWriter(path string, maxSize int64) (*RotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	w := &RotatingWriter{path: path, maxSize: maxSize}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.written = info.Size()
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written > 0 && w.written+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	backup := w.path + ".old"
	os.Remove(backup)
	if err := os.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
		return err
	}
	return w.open()
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
