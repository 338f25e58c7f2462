package taskstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/metaloom/loom/internal/logging"
	"github.com/metaloom/loom/internal/taskstore/textmatch"
	"github.com/metaloom/loom/pkg/models"
)

// DefaultDedupThreshold is the duplicate-detection threshold applied
// when none is configured.
const DefaultDedupThreshold = 0.5

// ErrTaskNotFound indicates an operation against a task id that does
// not exist in the store.
var ErrTaskNotFound = errors.New("task not found")

// CreateOutcome distinguishes the possible results of CreateTask.
type CreateOutcome string

const (
	// OutcomeCreated indicates a new task row was inserted.
	OutcomeCreated CreateOutcome = "created"
	// OutcomeSuppressed indicates creation was skipped because a
	// sufficiently similar task already exists.
	OutcomeSuppressed CreateOutcome = "suppressed_duplicate"
)

// CreateResult reports what CreateTask did. Suppression is a no-op
// outcome, not an error, and is reported distinctly from creation.
type CreateResult struct {
	// Outcome says whether a row was created or suppressed.
	Outcome CreateOutcome
	// ID is the new task's id when Outcome is OutcomeCreated.
	ID string
	// DuplicateOf is the existing task the candidate matched when
	// Outcome is OutcomeSuppressed.
	DuplicateOf string
}

// Created reports whether a row was inserted.
func (r CreateResult) Created() bool {
	return r.Outcome == OutcomeCreated
}

// TaskUpdate holds a partial update: only non-nil fields are written.
type TaskUpdate struct {
	Name               *string
	Description        *string
	Completed          *bool
	ParentTaskID       *string
	DependentTaskIDs   *[]string
	ExpectedResultNote *string
	Constraints        *string
	Priority           *int
}

// empty reports whether the update carries no fields.
func (u TaskUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.Completed == nil &&
		u.ParentTaskID == nil && u.DependentTaskIDs == nil &&
		u.ExpectedResultNote == nil && u.Constraints == nil && u.Priority == nil
}

// Store provides durable CRUD over tasks with duplicate suppression.
type Store struct {
	db     *DB
	logger *logging.DebugLogger

	mu        sync.RWMutex
	threshold float64
}

// Option configures a Store.
type Option func(*Store)

// WithDedupThreshold sets the duplicate-detection threshold (0-1).
// Higher values suppress only closer matches.
func WithDedupThreshold(threshold float64) Option {
	return func(s *Store) {
		s.threshold = threshold
	}
}

// WithLogger attaches a debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open opens (creating if needed) a task store at the given path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{
		db:        db,
		threshold: DefaultDedupThreshold,
		logger:    &logging.DebugLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the path of the backing database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// DedupThreshold returns the current duplicate-detection threshold.
func (s *Store) DedupThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetDedupThreshold replaces the duplicate-detection threshold. Used
// by config hot-reload.
func (s *Store) SetDedupThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

// CreateTask inserts a new task unless an existing task is judged a
// near-duplicate, in which case the insert is suppressed and the
// matching task's id reported. The duplicate check and the insert run
// in one transaction so concurrent creators cannot both pass the
// check. Any ID on the candidate is ignored; ids are generated here.
func (s *Store) CreateTask(t models.Task) (CreateResult, error) {
	threshold := s.DedupThreshold()
	var result CreateResult

	err := s.db.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id, task, COALESCE(description, '') FROM tasks")
		if err != nil {
			return fmt.Errorf("scan existing tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id, name, description string
			if err := rows.Scan(&id, &name, &description); err != nil {
				return fmt.Errorf("scan task row: %w", err)
			}
			// A candidate is a duplicate only when both name and
			// description independently match the same existing task.
			if textmatch.IsDuplicate(t.Name, name, threshold) &&
				textmatch.IsDuplicate(t.Description, description, threshold) {
				result = CreateResult{Outcome: OutcomeSuppressed, DuplicateOf: id}
				return nil
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate tasks: %w", err)
		}

		id := uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO tasks (id, task, description, completed, parent_task_id, dependent_task_ids, expected_result_note, constraints, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, t.Name, t.Description, t.Completed,
			nullable(t.ParentTaskID),
			nullable(models.JoinDependentIDs(t.DependentTaskIDs)),
			nullable(t.ExpectedResultNote),
			nullable(t.Constraints),
			t.Priority)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		result = CreateResult{Outcome: OutcomeCreated, ID: id}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	if result.Created() {
		s.logger.Log("taskstore: created task %s (%q)", result.ID, t.Name)
	} else {
		s.logger.Log("taskstore: suppressed duplicate of %s (%q)", result.DuplicateOf, t.Name)
	}
	return result, nil
}

// CreateSubtask creates a task under the given parent, subject to the
// same duplicate suppression as CreateTask.
func (s *Store) CreateSubtask(parentTaskID string, t models.Task) (CreateResult, error) {
	t.ParentTaskID = parentTaskID
	return s.CreateTask(t)
}

// UpdateTask applies a partial update to the task with the given id.
// Only supplied fields are written. An unknown id is reported as
// ErrTaskNotFound rather than silently ignored.
func (s *Store) UpdateTask(id string, u TaskUpdate) error {
	if u.empty() {
		// Nothing to write, but the caller still deserves to know
		// when the id is bogus.
		var one int
		err := s.db.QueryRow("SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("update task %s: %w", id, ErrTaskNotFound)
		}
		if err != nil {
			return fmt.Errorf("update task %s: %w", id, err)
		}
		return nil
	}

	var fields []string
	var args []any

	if u.Name != nil {
		fields = append(fields, "task = ?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		fields = append(fields, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Completed != nil {
		fields = append(fields, "completed = ?")
		args = append(args, *u.Completed)
	}
	if u.ParentTaskID != nil {
		fields = append(fields, "parent_task_id = ?")
		args = append(args, nullable(*u.ParentTaskID))
	}
	if u.DependentTaskIDs != nil {
		fields = append(fields, "dependent_task_ids = ?")
		args = append(args, nullable(models.JoinDependentIDs(*u.DependentTaskIDs)))
	}
	if u.ExpectedResultNote != nil {
		fields = append(fields, "expected_result_note = ?")
		args = append(args, nullable(*u.ExpectedResultNote))
	}
	if u.Constraints != nil {
		fields = append(fields, "constraints = ?")
		args = append(args, nullable(*u.Constraints))
	}
	if u.Priority != nil {
		fields = append(fields, "priority = ?")
		args = append(args, *u.Priority)
	}

	args = append(args, id)
	res, err := s.db.Exec(
		fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(fields, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update task %s: %w", id, ErrTaskNotFound)
	}
	return nil
}

// MarkCompleted marks the task completed.
func (s *Store) MarkCompleted(id string) error {
	completed := true
	return s.UpdateTask(id, TaskUpdate{Completed: &completed})
}

// DeleteTask removes the task with the given id. There is no cascade:
// children keep their (now dangling) parent reference and dependents
// keep their dependency ids. Deleting an absent id is a no-op.
func (s *Store) DeleteTask(id string) error {
	if _, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// GetTask retrieves a task by id. Returns nil when the id is unknown.
func (s *Store) GetTask(id string) (*models.Task, error) {
	row := s.db.QueryRow(selectColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// GetAllTasks retrieves every task.
func (s *Store) GetAllTasks() ([]models.Task, error) {
	return s.readTasks(selectColumns + " FROM tasks")
}

// GetCompletedTasks retrieves tasks marked completed.
func (s *Store) GetCompletedTasks() ([]models.Task, error) {
	return s.readTasks(selectColumns + " FROM tasks WHERE completed = TRUE")
}

// GetIncompleteTasks retrieves tasks not yet completed.
func (s *Store) GetIncompleteTasks() ([]models.Task, error) {
	return s.readTasks(selectColumns + " FROM tasks WHERE completed = FALSE")
}

// GetTasksByParent retrieves the children of the given parent id.
// The parent itself may have been deleted; children are returned
// regardless.
func (s *Store) GetTasksByParent(parentTaskID string) ([]models.Task, error) {
	return s.readTasks(selectColumns+" FROM tasks WHERE parent_task_id = ?", parentTaskID)
}

// GetTaskNames retrieves every task name.
func (s *Store) GetTaskNames() ([]string, error) {
	rows, err := s.db.Query("SELECT task FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("get task names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan task name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const selectColumns = "SELECT id, task, description, completed, parent_task_id, dependent_task_ids, expected_result_note, constraints, priority"

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var description, parentID, dependents, note, constraints sql.NullString
	var priority sql.NullInt64

	err := row.Scan(&t.ID, &t.Name, &description, &t.Completed,
		&parentID, &dependents, &note, &constraints, &priority)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.ParentTaskID = parentID.String
	t.DependentTaskIDs = models.SplitDependentIDs(dependents.String)
	t.ExpectedResultNote = note.String
	t.Constraints = constraints.String
	t.Priority = int(priority.Int64)
	return &t, nil
}

func (s *Store) readTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// nullable maps the empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
