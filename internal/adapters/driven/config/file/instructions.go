package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// InstructionsFile is the name of the editable answer instructions.
const InstructionsFile = "answer_instructions.txt"

// InstructionsStore loads the instructions that open every answer prompt
// from a user-editable file, falling back to a built-in default.
//
// The default file is written lazily on first Load so that construction
// performs no I/O.
type InstructionsStore struct {
	mu       sync.RWMutex
	dir      string
	fallback string
	cached   string
	loaded   bool
	initOnce sync.Once
	initErr  error
}

// NewInstructionsStore creates a store rooted at dir. fallback is written as
// the initial file content and returned whenever the file is unusable.
// If dir is empty, defaults to ~/.sercha-rag/prompts.
func NewInstructionsStore(dir, fallback string) (*InstructionsStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-rag", "prompts")
	}

	return &InstructionsStore{dir: dir, fallback: fallback}, nil
}

// Load returns the current instructions. An empty or missing file yields
// the fallback.
func (s *InstructionsStore) Load() (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return s.fallback, s.initErr
	}

	s.mu.RLock()
	if s.loaded {
		text := s.cached
		s.mu.RUnlock()
		return text, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.Path())
	text := strings.TrimSpace(string(data))
	if err != nil || text == "" {
		text = s.fallback
	}

	s.mu.Lock()
	s.cached = text
	s.loaded = true
	s.mu.Unlock()

	return text, nil
}

// Reload clears the cache so the next Load reads the file again.
func (s *InstructionsStore) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.cached = ""
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *InstructionsStore) Dir() string {
	return s.dir
}

// Path returns the instructions file path.
func (s *InstructionsStore) Path() string {
	return filepath.Join(s.dir, InstructionsFile)
}

// initialise creates the directory and the default file if absent.
func (s *InstructionsStore) initialise() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		if err := os.WriteFile(s.Path(), []byte(s.fallback+"\n"), 0600); err != nil {
			s.initErr = fmt.Errorf("write default instructions: %w", err)
		}
	}
}
