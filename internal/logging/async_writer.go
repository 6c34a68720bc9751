package logging

import (
	"os"
	"path/filepath"
	"sync"
)

// AsyncWriter appends log lines to a file from a single background goroutine.
// Write never blocks: when the buffer is full the line is dropped.
type AsyncWriter struct {
	path     string
	buffer   chan []byte
	file     *os.File
	rotation *LogRotation
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewAsyncWriter(path string, bufferSize int, rotation *LogRotation) (*AsyncWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	aw := &AsyncWriter{
		path:     path,
		buffer:   make(chan []byte, bufferSize),
		file:     file,
		rotation: rotation,
		done:     make(chan struct{}),
	}

	aw.wg.Add(1)
	go aw.writeLoop()

	return aw, nil
}

// Write implements io.Writer. The slice is copied because slog reuses its buffers.
func (aw *AsyncWriter) Write(data []byte) (int, error) {
	line := make([]byte, len(data))
	copy(line, data)

	select {
	case aw.buffer <- line:
	default:
	}
	return len(data), nil
}

func (aw *AsyncWriter) writeLoop() {
	defer aw.wg.Done()
	for {
		select {
		case data := <-aw.buffer:
			aw.write(data)
		case <-aw.done:
			for len(aw.buffer) > 0 {
				aw.write(<-aw.buffer)
			}
			return
		}
	}
}

func (aw *AsyncWriter) write(data []byte) {
	if aw.rotation != nil && aw.rotation.ShouldRotate(aw.path) {
		aw.rotate()
	}
	// Diagnostics are best effort.
	_, _ = aw.file.Write(data)
}

func (aw *AsyncWriter) rotate() {
	if err := aw.file.Close(); err != nil {
		return
	}
	_, _ = aw.rotation.Rotate(aw.path)

	file, err := os.OpenFile(aw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Discard until the next rotation.
		file, _ = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	aw.file = file
}

func (aw *AsyncWriter) Close() error {
	var err error
	aw.once.Do(func() {
		close(aw.done)
		aw.wg.Wait()
		err = aw.file.Close()
	})
	return err
}
