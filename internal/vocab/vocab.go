// Package vocab translates the free-text status and priority vocabularies
// found in issue exports into the closed internal sets and back. The
// translation is deliberately lossy: many external labels collapse onto one
// internal value, and writing back always produces the canonical label.
package vocab

import (
	"strings"

	"sprintboard/internal/models"
)

var statusSynonyms = map[string]models.Status{
	"done":           models.StatusDone,
	"closed":         models.StatusDone,
	"resolved":       models.StatusDone,
	"complete":       models.StatusDone,
	"completed":      models.StatusDone,
	"finished":       models.StatusDone,
	"in progress":    models.StatusInProgress,
	"inprogress":     models.StatusInProgress,
	"in development": models.StatusInProgress,
	"in review":      models.StatusInProgress,
	"doing":          models.StatusInProgress,
	"started":        models.StatusInProgress,
	"to do":          models.StatusTodo,
	"todo":           models.StatusTodo,
	"open":           models.StatusTodo,
	"backlog":        models.StatusTodo,
}

var prioritySynonyms = map[string]models.Priority{
	"highest":  models.PriorityHigh,
	"high":     models.PriorityHigh,
	"blocker":  models.PriorityHigh,
	"critical": models.PriorityHigh,
	"urgent":   models.PriorityHigh,
	"medium":   models.PriorityMedium,
	"normal":   models.PriorityMedium,
	"lowest":   models.PriorityLow,
	"low":      models.PriorityLow,
	"minor":    models.PriorityLow,
	"trivial":  models.PriorityLow,
}

var statusLabels = map[models.Status]string{
	models.StatusTodo:       "To Do",
	models.StatusInProgress: "In Progress",
	models.StatusDone:       "Done",
}

var priorityLabels = map[models.Priority]string{
	models.PriorityHigh:   "High",
	models.PriorityMedium: "Medium",
	models.PriorityLow:    "Low",
}

// StatusFromExternal maps an external status label to the internal set.
// Unknown labels fall back to todo.
func StatusFromExternal(text string) models.Status {
	if s, ok := statusSynonyms[normalize(text)]; ok {
		return s
	}
	return models.StatusTodo
}

// StatusToExternal returns the canonical export label for a status.
func StatusToExternal(s models.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[models.StatusTodo]
}

// PriorityFromExternal maps an external priority label to the internal set.
// Unknown labels fall back to medium.
func PriorityFromExternal(text string) models.Priority {
	if p, ok := prioritySynonyms[normalize(text)]; ok {
		return p
	}
	return models.PriorityMedium
}

// PriorityToExternal returns the canonical export label for a priority.
func PriorityToExternal(p models.Priority) string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return priorityLabels[models.PriorityMedium]
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
