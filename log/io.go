package log

import (
	"io"
	"sync"
)

// multiWriter fans every log line out to the registered sinks. Sinks are
// keyed so the CLI's console writer and an embedder's own sink can be
// swapped independently. One failing sink must not starve the others:
// every sink is attempted and the first error is reported afterwards.
type multiWriter struct {
	sync.RWMutex
	writers map[string]io.Writer
}

func (t *multiWriter) Set(key string, writer io.Writer) {
	t.Lock()
	defer t.Unlock()

	t.writers[key] = writer
}

func (t *multiWriter) Remove(key string) {
	t.Lock()
	defer t.Unlock()

	delete(t.writers, key)
}

func (t *multiWriter) Write(p []byte) (int, error) {
	t.RLock()
	defer t.RUnlock()

	var first error

	for _, w := range t.writers {
		n, err := w.Write(p)
		if err == nil && n != len(p) {
			err = io.ErrShortWrite
		}

		if err != nil && first == nil {
			first = err
		}
	}

	return len(p), first
}
