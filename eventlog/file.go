package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend appends records to two JSONL files, one per stream.
type FileBackend struct {
	mu    sync.Mutex
	chat  *os.File
	polls *os.File
}

// NewFileBackend opens (creating parent directories as needed) the chat and poll result files in append mode.
func NewFileBackend(chatPath, pollPath string) (*FileBackend, error) {
	chat, err := openAppend(chatPath)
	if err != nil {
		return nil, err
	}
	polls, err := openAppend(pollPath)
	if err != nil {
		_ = chat.Close()
		return nil, err
	}
	return &FileBackend{chat: chat, polls: polls}, nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", dir, err)
		}
	}
	//nolint:gosec // G304: path comes from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) WriteChat(_ context.Context, rec ChatMessage) error {
	return b.appendLine(b.chat, rec)
}

func (b *FileBackend) WritePollResult(_ context.Context, rec PollResult) error {
	return b.appendLine(b.polls, rec)
}

func (b *FileBackend) appendLine(f *os.File, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append %s: %w", f.Name(), err)
	}
	return nil
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.chat.Close(), b.polls.Close())
}
