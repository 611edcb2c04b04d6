package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, title, domain_area_id, project_id, status, priority_bucket,
	dod_items, next_action, duration_minutes, notes, due_at,
	urgency, impact, effort, energy_fit, tags, contexts,
	origin_capture_id, follow_on_of_task_id,
	completed_at, force_completed, created_at, updated_at
`

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			id, title, domain_area_id, project_id, status, priority_bucket,
			dod_items, next_action, duration_minutes, notes, due_at,
			urgency, impact, effort, energy_fit, tags, contexts,
			origin_capture_id, follow_on_of_task_id,
			completed_at, force_completed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING created_at, updated_at
	`

	dodJSON, tagsJSON, contextsJSON, err := marshalTaskJSON(task)
	if err != nil {
		return err
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		nullUUID(task.DomainAreaID),
		nullUUID(task.ProjectID),
		task.Status,
		nullBucket(task.Bucket),
		dodJSON,
		task.NextAction,
		task.DurationMinutes,
		task.Notes,
		nullTime(task.DueAt),
		task.Urgency,
		task.Impact,
		task.Effort,
		nullString(string(task.EnergyFit)),
		tagsJSON,
		contextsJSON,
		nullUUID(task.OriginCaptureID),
		nullUUID(task.FollowOnOfTaskID),
		nullTime(task.CompletedAt),
		task.ForceCompleted,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// List retrieves tasks, optionally filtered by status, newest first
func (r *TaskRepository) List(ctx context.Context, status *models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}

	if status != nil {
		query += " WHERE status = $1"
		args = append(args, string(*status))
	}

	query += " ORDER BY created_at DESC"

	return r.queryTasks(ctx, query, args...)
}

// ListByStatuses retrieves tasks in any of the given statuses
func (r *TaskRepository) ListByStatuses(ctx context.Context, statuses ...models.TaskStatus) ([]*models.Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = ANY($1) ORDER BY created_at DESC`

	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	return r.queryTasks(ctx, query, pq.Array(strs))
}

// CountByStatus returns the number of tasks currently in a status
func (r *TaskRepository) CountByStatus(ctx context.Context, status models.TaskStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE status = $1`

	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// CountByDomainArea returns the number of tasks referencing a domain area
func (r *TaskRepository) CountByDomainArea(ctx context.Context, domainAreaID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE domain_area_id = $1`

	if err := r.db.QueryRowContext(ctx, query, domainAreaID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// CountByProject returns the number of tasks referencing a project
func (r *TaskRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE project_id = $1`

	if err := r.db.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, domain_area_id = $3, project_id = $4, status = $5,
			priority_bucket = $6, dod_items = $7, next_action = $8,
			duration_minutes = $9, notes = $10, due_at = $11,
			urgency = $12, impact = $13, effort = $14, energy_fit = $15,
			tags = $16, contexts = $17, origin_capture_id = $18,
			follow_on_of_task_id = $19, completed_at = $20,
			force_completed = $21, updated_at = $22
		WHERE id = $1
		RETURNING updated_at
	`

	dodJSON, tagsJSON, contextsJSON, err := marshalTaskJSON(task)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		nullUUID(task.DomainAreaID),
		nullUUID(task.ProjectID),
		task.Status,
		nullBucket(task.Bucket),
		dodJSON,
		task.NextAction,
		task.DurationMinutes,
		task.Notes,
		nullTime(task.DueAt),
		task.Urgency,
		task.Impact,
		task.Effort,
		nullString(string(task.EnergyFit)),
		tagsJSON,
		contextsJSON,
		nullUUID(task.OriginCaptureID),
		nullUUID(task.FollowOnOfTaskID),
		nullTime(task.CompletedAt),
		task.ForceCompleted,
		time.Now(),
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// DeleteCascade removes a task and everything hanging off it in one
// transaction: its timeblocks, shipped outputs, audit events, and any
// follow-on back-references from other tasks.
func (r *TaskRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM time_blocks WHERE task_id = $1`,
		`DELETE FROM shipped_outputs WHERE task_id = $1`,
		`DELETE FROM audit_events WHERE task_id = $1`,
		`UPDATE tasks SET follow_on_of_task_id = NULL WHERE follow_on_of_task_id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("failed to delete task dependents: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// GetCompletedBefore retrieves DONE tasks completed at or before the cutoff
func (r *TaskRepository) GetCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 AND completed_at <= $2 ORDER BY completed_at`

	return r.queryTasks(ctx, query, models.TaskStatusDone, cutoff)
}

// AddShippedOutput records a deliverable produced by a task
func (r *TaskRepository) AddShippedOutput(ctx context.Context, output *models.ShippedOutput) error {
	query := `
		INSERT INTO shipped_outputs (id, task_id, description, shipped_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, output.ID, output.TaskID, output.Description, output.ShippedAt); err != nil {
		return fmt.Errorf("failed to add shipped output: %w", err)
	}

	return nil
}

// ListShippedOutputs retrieves the deliverables recorded for a task
func (r *TaskRepository) ListShippedOutputs(ctx context.Context, taskID uuid.UUID) ([]*models.ShippedOutput, error) {
	query := `
		SELECT id, task_id, description, shipped_at
		FROM shipped_outputs
		WHERE task_id = $1
		ORDER BY shipped_at
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipped outputs: %w", err)
	}
	defer rows.Close()

	var outputs []*models.ShippedOutput
	for rows.Next() {
		output := &models.ShippedOutput{}
		if err := rows.Scan(&output.ID, &output.TaskID, &output.Description, &output.ShippedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shipped output: %w", err)
		}
		outputs = append(outputs, output)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shipped outputs: %w", err)
	}

	return outputs, nil
}

// AppendAuditEvent records a state change made to a task
func (r *TaskRepository) AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, task_id, event, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, event.ID, event.TaskID, event.Event, event.Detail, event.CreatedAt); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// ListAuditEvents retrieves a task's audit trail, oldest first
func (r *TaskRepository) ListAuditEvents(ctx context.Context, taskID uuid.UUID) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, task_id, event, detail, created_at
		FROM audit_events
		WHERE task_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event := &models.AuditEvent{}
		if err := rows.Scan(&event.ID, &event.TaskID, &event.Event, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		domainAreaID, projectID, originCaptureID, followOnID uuid.NullUUID
		bucket, energyFit                                    sql.NullString
		dodJSON, tagsJSON, contextsJSON                      []byte
		dueAt, completedAt                                   sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&domainAreaID,
		&projectID,
		&task.Status,
		&bucket,
		&dodJSON,
		&task.NextAction,
		&task.DurationMinutes,
		&task.Notes,
		&dueAt,
		&task.Urgency,
		&task.Impact,
		&task.Effort,
		&energyFit,
		&tagsJSON,
		&contextsJSON,
		&originCaptureID,
		&followOnID,
		&completedAt,
		&task.ForceCompleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dodJSON, &task.DoDItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dod items: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &task.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(contextsJSON, &task.Contexts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contexts: %w", err)
	}

	if domainAreaID.Valid {
		task.DomainAreaID = &domainAreaID.UUID
	}
	if projectID.Valid {
		task.ProjectID = &projectID.UUID
	}
	if originCaptureID.Valid {
		task.OriginCaptureID = &originCaptureID.UUID
	}
	if followOnID.Valid {
		task.FollowOnOfTaskID = &followOnID.UUID
	}
	if bucket.Valid {
		b := models.PriorityBucket(bucket.String)
		task.Bucket = &b
	}
	if energyFit.Valid {
		task.EnergyFit = models.EnergyLevel(energyFit.String)
	}
	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return task, nil
}

func marshalTaskJSON(task *models.Task) (dod, tags, contexts []byte, err error) {
	dod, err = json.Marshal(emptyIfNilDoD(task.DoDItems))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal dod items: %w", err)
	}
	tags, err = json.Marshal(emptyIfNil(task.Tags))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	contexts, err = json.Marshal(emptyIfNil(task.Contexts))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal contexts: %w", err)
	}
	return dod, tags, contexts, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilDoD(items []models.DoDItem) []models.DoDItem {
	if items == nil {
		return []models.DoDItem{}
	}
	return items
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBucket(b *models.PriorityBucket) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*b), Valid: true}
}
