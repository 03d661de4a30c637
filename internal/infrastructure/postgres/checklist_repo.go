package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checklistColumns = `id, branch_id, name, category, assigned_to,
	       frequency, interval_count, custom_unit, custom_value, start_date, due_time,
	       next_due_at, last_completed_at, paused, created_at, updated_at`

type ChecklistRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewChecklistRepository(pool *pgxpool.Pool, logger *slog.Logger) *ChecklistRepository {
	return &ChecklistRepository{pool: pool, logger: logger.With("component", "checklist_repo")}
}

func (r *ChecklistRepository) Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error) {
	query := `
		INSERT INTO checklists (
			branch_id, name, category, assigned_to,
			frequency, interval_count, custom_unit, custom_value, start_date, due_time,
			next_due_at, paused
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + checklistColumns

	row := r.pool.QueryRow(ctx, query,
		c.BranchID, c.Name, c.Category, c.AssignedTo,
		c.Recurrence.Frequency, c.Recurrence.IntervalCount,
		c.Recurrence.CustomUnit, c.Recurrence.CustomValue,
		c.Recurrence.StartDate, c.Recurrence.DueTime,
		c.NextDueAt, c.Paused,
	)

	created, err := scanChecklist(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrChecklistNameConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *ChecklistRepository) GetByID(ctx context.Context, id string) (*domain.Checklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM checklists WHERE id = $1`
	return scanChecklist(r.pool.QueryRow(ctx, query, id))
}

func (r *ChecklistRepository) List(ctx context.Context, input repository.ListChecklistsInput) ([]*domain.Checklist, error) {
	args := []any{}
	where := []string{}

	if input.BranchID != "" {
		args = append(args, input.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	clause := "TRUE"
	if len(where) > 0 {
		clause = strings.Join(where, " AND ")
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM checklists
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		checklistColumns, clause, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	var checklists []*domain.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		checklists = append(checklists, c)
	}
	return checklists, nil
}

func (r *ChecklistRepository) SetPaused(ctx context.Context, id string, paused bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE checklists SET paused = $2, updated_at = NOW()
		 WHERE id = $1 AND paused = $3`,
		id, paused, !paused)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish not-found vs already-in-desired-state
		if _, err := r.GetByID(ctx, id); err != nil {
			return err // ErrChecklistNotFound
		}
		if paused {
			return domain.ErrChecklistAlreadyPaused
		}
		return domain.ErrChecklistNotPaused
	}
	return nil
}

func (r *ChecklistRepository) Complete(ctx context.Context, id string, completedAt time.Time, nextDueAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE checklists
		 SET last_completed_at = $2, next_due_at = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, completedAt, nextDueAt)
	if err != nil {
		return fmt.Errorf("complete checklist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChecklistNotFound
	}
	return nil
}

func (r *ChecklistRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM checklists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChecklistNotFound
	}
	return nil
}

// ClaimAndRemind atomically claims due checklists, inserts a reminder for
// each, and advances next_due_at. All operations happen in a single
// transaction, so a crash leaves no partial state.
func (r *ChecklistRepository) ClaimAndRemind(ctx context.Context, limit int, fire func(*domain.Checklist) (*domain.Reminder, *time.Time)) ([]*domain.Reminder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	// no-op after a successful commit
	defer func() { _ = tx.Rollback(ctx) }()

	// Claim due checklists. FOR UPDATE SKIP LOCKED prevents double-firing
	// across sweeper replicas.
	rows, err := tx.Query(ctx, `
		SELECT `+checklistColumns+`
		FROM checklists
		WHERE next_due_at <= NOW() AND NOT paused
		ORDER BY next_due_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim checklists: %w", err)
	}

	var checklists []*domain.Checklist
	for rows.Next() {
		c, scanErr := scanChecklist(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		checklists = append(checklists, c)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklists: %w", err)
	}

	var created []*domain.Reminder

	for _, c := range checklists {
		rem, next := fire(c)

		if rem != nil {
			// ON CONFLICT DO NOTHING keeps the transaction usable on a
			// duplicate idempotency key (a manually created reminder can
			// share one), so next_due_at still advances below.
			inserted, insertErr := insertReminderSkipDup(ctx, tx, rem)
			if insertErr != nil {
				return nil, fmt.Errorf("insert reminder for checklist %s: %w", c.ID, insertErr)
			}
			if inserted == nil {
				r.logger.Warn("duplicate reminder for checklist, skipping",
					"checklist_id", c.ID,
					"idempotency_key", rem.IdempotencyKey,
				)
			} else {
				created = append(created, inserted)
			}
		}

		if _, updateErr := tx.Exec(ctx,
			`UPDATE checklists SET next_due_at = $2, updated_at = NOW() WHERE id = $1`,
			c.ID, next,
		); updateErr != nil {
			return nil, fmt.Errorf("advance checklist %s: %w", c.ID, updateErr)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func scanChecklist(row rowScanner) (*domain.Checklist, error) {
	var c domain.Checklist
	err := row.Scan(
		&c.ID, &c.BranchID, &c.Name, &c.Category, &c.AssignedTo,
		&c.Recurrence.Frequency, &c.Recurrence.IntervalCount,
		&c.Recurrence.CustomUnit, &c.Recurrence.CustomValue,
		&c.Recurrence.StartDate, &c.Recurrence.DueTime,
		&c.NextDueAt, &c.LastCompletedAt, &c.Paused, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChecklistNotFound
		}
		return nil, fmt.Errorf("scan checklist: %w", err)
	}
	return &c, nil
}
