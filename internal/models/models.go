package models

// Status is the internal lifecycle state of an issue.
type Status string

// Priority is the internal urgency bucket of an issue.
type Priority string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidStatuses enumerates the statuses the board columns understand.
var ValidStatuses = map[Status]struct{}{
	StatusTodo:       {},
	StatusInProgress: {},
	StatusDone:       {},
}

// ValidPriorities enumerates the supported priority buckets.
var ValidPriorities = map[Priority]struct{}{
	PriorityHigh:   {},
	PriorityMedium: {},
	PriorityLow:    {},
}

// Issue is the scheduling unit. The numeric ID is the identity used for
// dependency edges and for matching rows in the backing export; Key is a
// display identifier only.
type Issue struct {
	ID            int      `json:"id"`
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Assignee      string   `json:"assignee"`
	Status        Status   `json:"status"`
	Priority      Priority `json:"priority"`
	EstimateHours float64  `json:"estimateHours"`
	DependsOn     []int    `json:"dependsOn"`
	Sprint        int      `json:"sprint"`
}

// State is the whole board, loaded and persisted as a unit.
type State struct {
	NextID       int                `json:"nextId"`
	ProjectKey   string             `json:"projectKey"`
	SprintStart  string             `json:"sprintStart"`
	TeamCapacity map[string]float64 `json:"teamCapacity"`
	Issues       []Issue            `json:"issues"`
}

// Settings is the small sidecar persisted next to the issue export. It
// carries the pieces of State that have no column in the export itself.
type Settings struct {
	SprintStart   string             `yaml:"sprint_start"`
	TeamCapacity  map[string]float64 `yaml:"team_capacity"`
	VisibleFields []string           `yaml:"visible_fields"`
}
