// Package models defines the shared data types persisted by the task store.
package models

import "strings"

// DependentIDSeparator delimits dependent task IDs in the persisted form.
const DependentIDSeparator = ","

// Task represents a durable unit of work tracked by the task store.
type Task struct {
	// ID is the unique identifier for this task, assigned once at creation.
	ID string `json:"id"`
	// Name is the short description of the task.
	Name string `json:"name"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Completed indicates whether the task is done.
	Completed bool `json:"completed"`
	// ParentTaskID is the ID of the parent task, if any. The referenced
	// task may no longer exist; readers must tolerate dangling parents.
	ParentTaskID string `json:"parent_task_id,omitempty"`
	// DependentTaskIDs lists tasks this task depends on, in order. The
	// store does not validate these references or check for cycles.
	DependentTaskIDs []string `json:"dependent_task_ids,omitempty"`
	// ExpectedResultNote describes what a successful outcome looks like.
	ExpectedResultNote string `json:"expected_result_note,omitempty"`
	// Constraints captures restrictions on how the task may be done.
	Constraints string `json:"constraints,omitempty"`
	// Priority orders tasks; higher values are more urgent.
	Priority int `json:"priority"`
}

// HasParent reports whether the task references a parent task.
func (t *Task) HasParent() bool {
	return t.ParentTaskID != ""
}

// JoinDependentIDs renders a dependent-ID list in the persisted
// delimited form.
func JoinDependentIDs(ids []string) string {
	return strings.Join(ids, DependentIDSeparator)
}

// SplitDependentIDs parses the persisted delimited form back into a
// list. Empty input yields nil.
func SplitDependentIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, DependentIDSeparator)
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
