// Package csvfile persists the board state into an externally authored
// issue export. The export is the source of record: columns and rows this
// adapter does not model pass through a load/save cycle untouched, and the
// original row order is kept for every issue that still exists.
package csvfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"sprintboard/internal/models"
	"sprintboard/internal/tabular"
)

// ErrInvalidState marks caller-supplied state rejected by validation, as
// opposed to I/O failures while touching the backing files.
var ErrInvalidState = errors.New("invalid state")

// defaultVisibleFields is the sidecar's field list when none was configured.
var defaultVisibleFields = []string{
	"key", "title", "status", "priority", "assignee", "estimateHours", "sprint",
}

// Store reads and writes the issue export plus its settings sidecar. The
// mutex serializes load-modify-save cycles within this process; across
// processes the contract stays last write wins.
type Store struct {
	mu           sync.Mutex
	csvPath      string
	settingsPath string
	logger       *slog.Logger
}

// New constructs a store over the given export file and settings sidecar.
// Neither file has to exist yet.
func New(csvPath, settingsPath string, logger *slog.Logger) (*Store, error) {
	if csvPath == "" {
		return nil, fmt.Errorf("empty export path")
	}
	if settingsPath == "" {
		settingsPath = csvPath + ".settings.yaml"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{csvPath: csvPath, settingsPath: settingsPath, logger: logger}, nil
}

// Load reads the export and sidecar into a fully resolved State. A missing
// export is an empty board, not an error; malformed fields degrade per row
// instead of failing the load.
func (s *Store) Load() (models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	headers, rows, err := s.readExport()
	if err != nil {
		return models.State{}, err
	}

	cols := resolveColumns(headers)
	issues := buildIssues(rows, cols)

	settings := s.readSettings()

	state := models.State{
		NextID:       nextID(issues),
		ProjectKey:   deriveProjectKey(issues),
		SprintStart:  settings.SprintStart,
		TeamCapacity: settings.TeamCapacity,
		Issues:       issues,
	}

	s.logger.Info("state loaded",
		slog.Int("issues", len(state.Issues)),
		slog.String("project", state.ProjectKey))
	return state, nil
}

// Save reconciles the caller-mutated state with the previously persisted
// rows and writes both files atomically. The issue list replaces the board
// wholesale: rows whose id left the list are deleted, new issues are
// appended after the surviving rows.
func (s *Store) Save(state models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateIssues(state.Issues); err != nil {
		return err
	}

	headers, rows, err := s.readExport()
	if err != nil {
		return err
	}

	cols := resolveColumns(headers)
	headers, rows = mergeRows(headers, rows, cols, state.Issues)

	text := tabular.Serialize(headers, rows)
	if err := writeFileAtomic(s.csvPath, text); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if err := s.writeSettings(state); err != nil {
		return err
	}

	s.logger.Info("state saved", slog.Int("issues", len(state.Issues)))
	return nil
}

func validateIssues(issues []models.Issue) error {
	seen := make(map[int]struct{}, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue.ID]; dup {
			return fmt.Errorf("%w: duplicate issue id %d", ErrInvalidState, issue.ID)
		}
		seen[issue.ID] = struct{}{}
	}
	return nil
}

func (s *Store) readExport() (headers []string, rows [][]string, err error) {
	text, err := os.ReadFile(s.csvPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read export: %w", err)
	}
	headers, rows = tabular.Parse(string(text))
	return headers, rows, nil
}

// readSettings loads the sidecar; a missing or unreadable sidecar yields
// defaults (sprint starting today, no per-assignee overrides).
func (s *Store) readSettings() models.Settings {
	settings := models.Settings{
		SprintStart:   time.Now().Format("2006-01-02"),
		TeamCapacity:  map[string]float64{},
		VisibleFields: defaultVisibleFields,
	}

	raw, err := os.ReadFile(s.settingsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("settings unreadable, using defaults", slog.String("error", err.Error()))
		}
		return settings
	}
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("settings malformed, using defaults", slog.String("error", err.Error()))
	}
	if settings.TeamCapacity == nil {
		settings.TeamCapacity = map[string]float64{}
	}
	if len(settings.VisibleFields) == 0 {
		settings.VisibleFields = defaultVisibleFields
	}
	return settings
}

func (s *Store) writeSettings(state models.State) error {
	// The visible-field list is owned by the client; carry it over.
	settings := s.readSettings()
	settings.SprintStart = state.SprintStart
	settings.TeamCapacity = state.TeamCapacity

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := writeFileAtomic(s.settingsPath, string(raw)); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func writeFileAtomic(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(content))
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
