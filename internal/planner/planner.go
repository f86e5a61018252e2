// Package planner assigns issues to numbered sprints. The plan respects
// dependency order, processes issues in priority order with a deterministic
// key tiebreak, and never books an assignee past their per-sprint capacity.
// It is a greedy heuristic, not an optimizer.
package planner

import (
	"container/heap"

	"sprintboard/internal/models"
)

const (
	// DefaultCapacity is the per-sprint hour budget for assignees that are
	// missing from the capacity table.
	DefaultCapacity = 80.0

	// MaxSprint bounds the placement scan. An issue that cannot fit below
	// the ceiling is placed at the ceiling sprint instead of pushing the
	// scan further; degraded placement beats an unbounded loop.
	MaxSprint = 100
)

// Schedule plans the given issues and returns them in dependency-and-
// priority order with the Sprint field populated. It is a pure function of
// its inputs and holds no state between calls.
//
// Issues caught in a dependency cycle never become ready and are excluded
// from the returned sequence. Callers must not rely on input order being
// preserved.
func Schedule(issues []models.Issue, capacity map[string]float64) []models.Issue {
	order := topoOrder(issues)

	sprintOf := make(map[int]int, len(order))
	remaining := make(map[slot]float64)

	planned := make([]models.Issue, 0, len(order))
	for _, issue := range order {
		earliest := 1
		for _, dep := range issue.DependsOn {
			if s, ok := sprintOf[dep]; ok && s > earliest {
				earliest = s
			}
		}

		issue.Sprint = place(issue, earliest, capacity, remaining)
		sprintOf[issue.ID] = issue.Sprint
		planned = append(planned, issue)
	}
	return planned
}

// slot identifies one assignee's budget within one sprint.
type slot struct {
	sprint   int
	assignee string
}

func place(issue models.Issue, earliest int, capacity map[string]float64, remaining map[slot]float64) int {
	// Unowned or unestimated issues consume no capacity.
	if issue.Assignee == "" || issue.EstimateHours <= 0 {
		return earliest
	}

	for sprint := earliest; sprint <= MaxSprint; sprint++ {
		s := slot{sprint: sprint, assignee: issue.Assignee}
		left, ok := remaining[s]
		if !ok {
			left = assigneeCapacity(capacity, issue.Assignee)
		}
		if left >= issue.EstimateHours {
			remaining[s] = left - issue.EstimateHours
			return sprint
		}
	}

	s := slot{sprint: MaxSprint, assignee: issue.Assignee}
	if _, ok := remaining[s]; !ok {
		remaining[s] = assigneeCapacity(capacity, issue.Assignee)
	}
	remaining[s] -= issue.EstimateHours
	return MaxSprint
}

func assigneeCapacity(capacity map[string]float64, assignee string) float64 {
	if c, ok := capacity[assignee]; ok {
		return c
	}
	return DefaultCapacity
}

// topoOrder produces a ready-ordered topological sequence: whenever several
// issues are simultaneously unblocked, the highest-priority one (then the
// lexicographically smallest key) goes first. Dependencies pointing outside
// the issue set are ignored; cycle members never drain and are omitted.
func topoOrder(issues []models.Issue) []models.Issue {
	byID := make(map[int]models.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}

	inDegree := make(map[int]int, len(issues))
	dependents := make(map[int][]int)
	for _, issue := range issues {
		inDegree[issue.ID] = 0
	}
	for _, issue := range issues {
		for _, dep := range dedupe(issue.DependsOn) {
			if dep == issue.ID {
				continue
			}
			if _, ok := byID[dep]; !ok {
				continue
			}
			inDegree[issue.ID]++
			dependents[dep] = append(dependents[dep], issue.ID)
		}
	}

	ready := &readyQueue{}
	heap.Init(ready)
	for _, issue := range issues {
		if inDegree[issue.ID] == 0 {
			heap.Push(ready, issue)
		}
	}

	order := make([]models.Issue, 0, len(issues))
	for ready.Len() > 0 {
		issue := heap.Pop(ready).(models.Issue)
		order = append(order, issue)
		for _, id := range dependents[issue.ID] {
			inDegree[id]--
			if inDegree[id] == 0 {
				heap.Push(ready, byID[id])
			}
		}
	}
	return order
}

func dedupe(ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func priorityWeight(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	case models.PriorityLow:
		return 2
	default:
		return 3
	}
}

// readyQueue is a min-heap of unblocked issues keyed by (priority weight,
// key). It replaces the sorted-insertion list a flat implementation would
// use, with identical tie-break semantics.
type readyQueue []models.Issue

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	wi, wj := priorityWeight(q[i].Priority), priorityWeight(q[j].Priority)
	if wi != wj {
		return wi < wj
	}
	return q[i].Key < q[j].Key
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(models.Issue)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
