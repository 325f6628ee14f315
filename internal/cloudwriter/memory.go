package cloudwriter

import (
	"bytes"
	"sync"
)

// Memory keeps uploaded objects in process, keyed "bucket/objectPath".
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) NewWriter(bucket, objectPath string) (CloudWriter, error) {
	return &memoryWriter{store: m, key: bucket + "/" + objectPath}, nil
}

func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

type memoryWriter struct {
	store  *Memory
	key    string
	buffer bytes.Buffer
}

func (w *memoryWriter) Write(data []byte) (int, error) {
	return w.buffer.Write(data)
}

func (w *memoryWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = append([]byte(nil), w.buffer.Bytes()...)
	return nil
}
