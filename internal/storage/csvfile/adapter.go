package csvfile

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sprintboard/internal/models"
	"sprintboard/internal/vocab"
)

// Column names of the export layout this adapter understands. Matching is
// by name, never by position; every other column is opaque passthrough.
const (
	colSummary     = "Summary"
	colKey         = "Issue key"
	colID          = "Issue id"
	colStatus      = "Status"
	colPriority    = "Priority"
	colAssignee    = "Assignee"
	colDescription = "Description"
	colEstimate    = "Original Estimate"
	colLinkDepends = "Inward issue link (Depends)"
	colLinkFinish  = "Inward issue link (Finish to Start)"
)

// knownColumns is the header synthesized when saving into a file that does
// not exist yet.
var knownColumns = []string{
	colSummary, colKey, colID, colStatus, colPriority,
	colAssignee, colDescription, colEstimate, colLinkDepends, colLinkFinish,
}

const secondsPerHour = 3600

// fallbackProjectKey is used when the export holds no issues to derive a
// project key from.
const fallbackProjectKey = "PROJ"

var keySuffix = regexp.MustCompile(`-\d+$`)

// columnSet holds the resolved position of every known column, -1 when the
// column is absent. It is resolved once per parsed header row and passed
// into each row-mapping call.
type columnSet struct {
	summary     int
	key         int
	id          int
	status      int
	priority    int
	assignee    int
	description int
	estimate    int
	linkDepends int
	linkFinish  int
}

func resolveColumns(headers []string) columnSet {
	index := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		return -1
	}
	return columnSet{
		summary:     index(colSummary),
		key:         index(colKey),
		id:          index(colID),
		status:      index(colStatus),
		priority:    index(colPriority),
		assignee:    index(colAssignee),
		description: index(colDescription),
		estimate:    index(colEstimate),
		linkDepends: index(colLinkDepends),
		linkFinish:  index(colLinkFinish),
	}
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func setCell(row []string, i int, value string) {
	if i >= 0 && i < len(row) {
		row[i] = value
	}
}

// buildIssues turns parsed rows into the issue set. Rows without a
// parseable numeric id are excluded; every other malformed field degrades
// to its zero value instead of failing the load.
func buildIssues(rows [][]string, cols columnSet) []models.Issue {
	type pending struct {
		issue     models.Issue
		depTokens []string
	}

	var loaded []pending
	keyToID := make(map[string]int)
	seen := make(map[int]struct{})

	for _, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(cellAt(row, cols.id)))
		if err != nil {
			continue
		}
		// First row wins when an id repeats; later duplicates are skipped
		// like unparseable-id rows, keeping ids unique in the state.
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		issue := models.Issue{
			ID:            id,
			Key:           cellAt(row, cols.key),
			Title:         cellAt(row, cols.summary),
			Description:   cellAt(row, cols.description),
			Assignee:      cellAt(row, cols.assignee),
			Status:        vocab.StatusFromExternal(cellAt(row, cols.status)),
			Priority:      vocab.PriorityFromExternal(cellAt(row, cols.priority)),
			EstimateHours: estimateHours(cellAt(row, cols.estimate)),
		}

		tokens := splitLinks(cellAt(row, cols.linkDepends))
		tokens = append(tokens, splitLinks(cellAt(row, cols.linkFinish))...)

		if issue.Key != "" {
			keyToID[issue.Key] = id
		}
		loaded = append(loaded, pending{issue: issue, depTokens: tokens})
	}

	known := make(map[int]struct{}, len(loaded))
	for _, p := range loaded {
		known[p.issue.ID] = struct{}{}
	}

	// Second pass: dependency tokens become ids now that all keys are
	// known. Unresolvable tokens and self references are dropped.
	issues := make([]models.Issue, 0, len(loaded))
	for _, p := range loaded {
		issue := p.issue
		issue.DependsOn = resolveDeps(p.depTokens, keyToID, known, issue.ID)
		issues = append(issues, issue)
	}
	return issues
}

func resolveDeps(tokens []string, keyToID map[string]int, known map[int]struct{}, self int) []int {
	var deps []int
	seen := make(map[int]struct{}, len(tokens))
	for _, token := range tokens {
		id, ok := keyToID[token]
		if !ok {
			n, err := strconv.Atoi(token)
			if err != nil {
				continue
			}
			id = n
		}
		if _, exists := known[id]; !exists || id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deps = append(deps, id)
	}
	return deps
}

func splitLinks(cell string) []string {
	var tokens []string
	for _, part := range strings.Split(cell, ";") {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// estimateHours converts the seconds-valued estimate column to hours.
// Absent or malformed values mean "unestimated".
func estimateHours(cell string) float64 {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}
	return seconds / secondsPerHour
}

// deriveProjectKey strips the trailing issue number from the first issue's
// key; "ALPHA-17" yields "ALPHA".
func deriveProjectKey(issues []models.Issue) string {
	if len(issues) == 0 {
		return fallbackProjectKey
	}
	return keySuffix.ReplaceAllString(issues[0].Key, "")
}

func nextID(issues []models.Issue) int {
	next := 1
	for _, issue := range issues {
		if issue.ID >= next {
			next = issue.ID + 1
		}
	}
	return next
}

// mergeRows reconciles the issue list with the previously persisted rows.
// Existing rows keep their order and every column the adapter does not
// model; rows whose id left the issue list are dropped; new issues are
// appended in list order. A missing header row is synthesized from the
// known columns.
func mergeRows(headers []string, rows [][]string, cols columnSet, issues []models.Issue) ([]string, [][]string) {
	if len(headers) == 0 {
		headers = append([]string(nil), knownColumns...)
		cols = resolveColumns(headers)
	}

	byID := make(map[int]models.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}

	out := make([][]string, 0, len(issues))
	written := make(map[int]struct{}, len(issues))

	for _, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(cellAt(row, cols.id)))
		if err != nil {
			continue
		}
		issue, ok := byID[id]
		if !ok {
			continue
		}
		// Duplicate rows for one id collapse onto the first occurrence.
		if _, dup := written[id]; dup {
			continue
		}
		updated := make([]string, len(row))
		copy(updated, row)
		writeIssue(updated, cols, issue)
		out = append(out, updated)
		written[id] = struct{}{}
	}

	for _, issue := range issues {
		if _, ok := written[issue.ID]; ok {
			continue
		}
		row := make([]string, len(headers))
		writeIssue(row, cols, issue)
		out = append(out, row)
	}

	return headers, out
}

func writeIssue(row []string, cols columnSet, issue models.Issue) {
	setCell(row, cols.summary, issue.Title)
	setCell(row, cols.key, issue.Key)
	setCell(row, cols.id, strconv.Itoa(issue.ID))
	setCell(row, cols.status, vocab.StatusToExternal(issue.Status))
	setCell(row, cols.priority, vocab.PriorityToExternal(issue.Priority))
	setCell(row, cols.assignee, issue.Assignee)
	setCell(row, cols.description, issue.Description)
	setCell(row, cols.estimate, formatEstimate(issue.EstimateHours))

	// Both legacy link columns carry the same logical dependency set.
	links := joinLinks(issue.DependsOn)
	setCell(row, cols.linkDepends, links)
	setCell(row, cols.linkFinish, links)
}

func formatEstimate(hours float64) string {
	return strconv.FormatInt(int64(math.Round(hours*secondsPerHour)), 10)
}

func joinLinks(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ";")
}
