package csvfile_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintboard/internal/models"
	"sprintboard/internal/storage/csvfile"
	"sprintboard/internal/tabular"
)

// fixture is a small export the way an external tracker writes it: a
// foreign "Team" column, a key-based dependency, a numeric dependency
// token, an unresolvable token, and a row without a usable id.
const fixture = `Summary,Issue key,Issue id,Status,Priority,Assignee,Description,Original Estimate,Inward issue link (Depends),Inward issue link (Finish to Start),Team
"Set up repo, properly",ALPHA-1,1,To Do,High,Alice,Bootstrap everything,28800,,,Platform
Design schema,ALPHA-2,2,In Progress,Medium,Bob,Model the data,14400,ALPHA-1,ALPHA-1,Data
Broken row,,abc,To Do,Low,,,,,,Legacy
Ship it,ALPHA-4,4,Done,Low,Alice,,0,2;ZZZ-9,2,Platform
`

func newStore(t *testing.T) (*csvfile.Store, string) {
	t.Helper()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "issues.csv")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := csvfile.New(csvPath, "", logger)
	require.NoError(t, err)
	return store, csvPath
}

func writeFixture(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	state, err := store.Load()
	require.NoError(t, err)

	assert.Empty(t, state.Issues)
	assert.Equal(t, 1, state.NextID)
	assert.Equal(t, "PROJ", state.ProjectKey)
	assert.NotNil(t, state.TeamCapacity)
	assert.NotEmpty(t, state.SprintStart)
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)
	writeFixture(t, csvPath)

	state, err := store.Load()
	require.NoError(t, err)

	// The row with id "abc" never enters the issue set.
	require.Len(t, state.Issues, 3)
	assert.Equal(t, "ALPHA", state.ProjectKey)
	assert.Equal(t, 5, state.NextID)

	first := state.Issues[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Set up repo, properly", first.Title)
	assert.Equal(t, models.StatusTodo, first.Status)
	assert.Equal(t, models.PriorityHigh, first.Priority)
	assert.Equal(t, 8.0, first.EstimateHours)
	assert.Empty(t, first.DependsOn)

	second := state.Issues[1]
	assert.Equal(t, models.StatusInProgress, second.Status)
	assert.Equal(t, 4.0, second.EstimateHours)
	assert.Equal(t, []int{1}, second.DependsOn, "key token resolves to id")

	third := state.Issues[2]
	assert.Equal(t, 4, third.ID)
	assert.Equal(t, models.StatusDone, third.Status)
	assert.Equal(t, 0.0, third.EstimateHours)
	assert.Equal(t, []int{2}, third.DependsOn, "numeric token kept, unresolvable dropped, union deduplicated")
}

func TestSaveAfterLoadPreservesRows(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)
	writeFixture(t, csvPath)

	state, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(state))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	headers, rows := tabular.Parse(string(raw))

	wantHeaders, wantRows := tabular.Parse(fixture)
	if diff := cmp.Diff(wantHeaders, headers); diff != "" {
		t.Fatalf("headers changed (-want +got):\n%s", diff)
	}

	// Retained rows keep their order; the id-less row is dropped; the only
	// cell rewrites are dependency canonicalization (keys become ids).
	require.Len(t, rows, 3)
	assert.Equal(t, wantRows[0], rows[0])

	assert.Equal(t, "1", rows[1][8])
	assert.Equal(t, "1", rows[1][9])
	assert.Equal(t, "Data", rows[1][10], "foreign column untouched")

	assert.Equal(t, "2", rows[2][8], "unresolvable token not written back")
	assert.Equal(t, "2", rows[2][9])
	assert.Equal(t, "Platform", rows[2][10])
}

func TestSaveAddAndDelete(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)
	writeFixture(t, csvPath)

	state, err := store.Load()
	require.NoError(t, err)

	// Drop issue 2, edit issue 1, add a new issue.
	var kept []models.Issue
	for _, is := range state.Issues {
		if is.ID == 2 {
			continue
		}
		if is.ID == 1 {
			is.Title = "Set up repo (renamed)"
			is.EstimateHours = 2
		}
		kept = append(kept, is)
	}
	kept = append(kept, models.Issue{
		ID:            5,
		Key:           "ALPHA-5",
		Title:         "New work",
		Status:        models.StatusTodo,
		Priority:      models.PriorityHigh,
		Assignee:      "Cara",
		EstimateHours: 2,
		DependsOn:     []int{4},
	})
	state.Issues = kept

	require.NoError(t, store.Save(state))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	_, rows := tabular.Parse(string(raw))

	require.Len(t, rows, 3)

	assert.Equal(t, "Set up repo (renamed)", rows[0][0])
	assert.Equal(t, "7200", rows[0][7], "estimate written back as whole seconds")
	assert.Equal(t, "Platform", rows[0][10], "edit touches known columns only")

	assert.Equal(t, "4", rows[1][2], "row of deleted issue omitted")

	newRow := rows[2]
	assert.Equal(t, "New work", newRow[0])
	assert.Equal(t, "ALPHA-5", newRow[1])
	assert.Equal(t, "5", newRow[2])
	assert.Equal(t, "To Do", newRow[3])
	assert.Equal(t, "High", newRow[4])
	assert.Equal(t, "4", newRow[8])
	assert.Equal(t, "4", newRow[9])
	assert.Equal(t, "", newRow[10], "unknown columns stay empty on new rows")
}

func TestLoadDuplicateIDRowsKeepsFirst(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)
	dup := "Summary,Issue key,Issue id,Status,Priority,Assignee,Description,Original Estimate,Inward issue link (Depends),Inward issue link (Finish to Start)\n" +
		"First copy,DUP-1,1,To Do,High,Alice,,3600,,\n" +
		"Second copy,DUP-9,1,Done,Low,Bob,,7200,,\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(dup), 0o644))

	state, err := store.Load()
	require.NoError(t, err)

	// The first row wins; the duplicate never enters the state, so ids
	// stay unique and the loaded state can be saved straight back.
	require.Len(t, state.Issues, 1)
	assert.Equal(t, "First copy", state.Issues[0].Title)
	assert.Equal(t, 1.0, state.Issues[0].EstimateHours)

	require.NoError(t, store.Save(state))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	_, rows := tabular.Parse(string(raw))
	require.Len(t, rows, 1, "duplicate row collapsed on save")
	assert.Equal(t, "First copy", rows[0][0])
}

func TestEstimateDegradesToZero(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)
	text := "Summary,Issue key,Issue id,Original Estimate\n" +
		"A,ES-1,1,Inf\n" +
		"B,ES-2,2,-Inf\n" +
		"C,ES-3,3,1e999\n" +
		"D,ES-4,4,garbage\n" +
		"E,ES-5,5,-3600\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(text), 0o644))

	state, err := store.Load()
	require.NoError(t, err)
	require.Len(t, state.Issues, 5)
	for _, is := range state.Issues {
		assert.Equal(t, 0.0, is.EstimateHours, "issue %s", is.Key)
	}
}

func TestSaveIntoMissingFile(t *testing.T) {
	t.Parallel()

	store, csvPath := newStore(t)

	state := models.State{
		NextID:       2,
		ProjectKey:   "NEW",
		SprintStart:  "2026-09-07",
		TeamCapacity: map[string]float64{},
		Issues: []models.Issue{{
			ID:       1,
			Key:      "NEW-1",
			Title:    "First",
			Status:   models.StatusTodo,
			Priority: models.PriorityMedium,
		}},
	}
	require.NoError(t, store.Save(state))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	headers, rows := tabular.Parse(string(raw))

	assert.Equal(t, []string{
		"Summary", "Issue key", "Issue id", "Status", "Priority",
		"Assignee", "Description", "Original Estimate",
		"Inward issue link (Depends)", "Inward issue link (Finish to Start)",
	}, headers, "header row synthesized for a fresh export")
	require.Len(t, rows, 1)
	assert.Equal(t, "NEW-1", rows[0][1])
	assert.Equal(t, "Medium", rows[0][4])
}

func TestSaveRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	state := models.State{Issues: []models.Issue{{ID: 1}, {ID: 1}}}
	err := store.Save(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate issue id")
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	state := models.State{
		SprintStart:  "2026-09-01",
		TeamCapacity: map[string]float64{"Alice": 60, "Bob": 32.5},
	}
	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", loaded.SprintStart)
	assert.Equal(t, state.TeamCapacity, loaded.TeamCapacity)
}
