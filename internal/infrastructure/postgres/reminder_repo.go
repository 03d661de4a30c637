package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reminderColumns = `id, checklist_id, idempotency_key, recipient, subject, body,
	       remind_at, due_at, escalate_at, status, channels,
	       auto_escalate, escalate_to_user, escalate_to_role,
	       sent_count, last_triggered_at, last_sent_at, last_escalated_at, last_error,
	       created_at, updated_at`

type ReminderRepository struct {
	pool *pgxpool.Pool
}

func NewReminderRepository(pool *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so reminder inserts
// can run standalone or inside the sweeper's claim transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const insertReminderSQL = `
		INSERT INTO reminders (
			checklist_id, idempotency_key, recipient, subject, body,
			remind_at, due_at, escalate_at, status, channels,
			auto_escalate, escalate_to_user, escalate_to_role
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func insertReminderArgs(rem *domain.Reminder) []any {
	return []any{
		rem.ChecklistID, rem.IdempotencyKey, rem.Recipient, rem.Subject, rem.Body,
		rem.RemindAt, rem.DueAt, rem.EscalateAt, rem.Status, channelStrings(rem.Channels),
		rem.AutoEscalate, rem.EscalateToUser, rem.EscalateToRole,
	}
}

func insertReminder(ctx context.Context, q querier, rem *domain.Reminder) (*domain.Reminder, error) {
	query := insertReminderSQL + `
		RETURNING ` + reminderColumns
	return scanReminder(q.QueryRow(ctx, query, insertReminderArgs(rem)...))
}

// insertReminderSkipDup inserts with ON CONFLICT DO NOTHING so an
// idempotency-key collision never aborts the surrounding transaction.
// A collision yields (nil, nil).
func insertReminderSkipDup(ctx context.Context, q querier, rem *domain.Reminder) (*domain.Reminder, error) {
	query := insertReminderSQL + `
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + reminderColumns

	created, err := scanReminder(q.QueryRow(ctx, query, insertReminderArgs(rem)...))
	if err != nil {
		// DO NOTHING returns no row on a conflict
		if errors.Is(err, domain.ErrReminderNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return created, nil
}

func (r *ReminderRepository) Create(ctx context.Context, rem *domain.Reminder) (*domain.Reminder, error) {
	created, err := insertReminder(ctx, r.pool, rem)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateReminder
		}
		return nil, err
	}
	return created, nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	return scanReminder(r.pool.QueryRow(ctx, query, id))
}

func (r *ReminderRepository) List(ctx context.Context, input repository.ListRemindersInput) ([]*domain.Reminder, error) {
	args := []any{}
	where := []string{}

	if input.Status != "" {
		args = append(args, input.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if input.ChecklistID != "" {
		args = append(args, input.ChecklistID)
		where = append(where, fmt.Sprintf("checklist_id = $%d", len(args)))
	}
	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(remind_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	clause := "TRUE"
	if len(where) > 0 {
		clause = strings.Join(where, " AND ")
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM reminders
		WHERE %s
		ORDER BY remind_at DESC, id DESC
		LIMIT $%d`,
		reminderColumns, clause, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, nil
}

func (r *ReminderRepository) Cancel(ctx context.Context, id string) error {
	// The status predicate mirrors the cancel guard: terminal states stay put.
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminders SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status NOT IN ('sent', 'cancelled')`, id)
	if err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		rem, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr // ErrReminderNotFound
		}
		return domain.NewInvalidTransition(rem.Status, domain.StatusCancelled)
	}
	return nil
}

// ClaimDue performs the scheduled/pending → triggered transition in SQL.
// FOR UPDATE SKIP LOCKED prevents double-delivery across dispatcher replicas.
func (r *ReminderRepository) ClaimDue(ctx context.Context, limit int) ([]*domain.Reminder, error) {
	query := `
		UPDATE reminders
		SET    status            = 'triggered',
		       last_triggered_at = NOW(),
		       updated_at        = NOW()
		WHERE id IN (
			SELECT id FROM reminders
			WHERE  status    IN ('scheduled', 'pending')
			  AND  remind_at <= NOW()
			ORDER BY remind_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + reminderColumns

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminders
		 SET status = 'sent', sent_count = sent_count + 1,
		     last_sent_at = NOW(), last_error = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'triggered'`, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost a race: the reminder left triggered between claim and persist
		// (cancelled, or released as stuck and re-claimed elsewhere).
		rem, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return domain.NewInvalidTransition(rem.Status, domain.StatusSent)
	}
	return nil
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminders
		 SET status = 'failed', last_error = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'triggered'`, id, lastError)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		rem, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return domain.NewInvalidTransition(rem.Status, domain.StatusFailed)
	}
	return nil
}

// ClaimEscalatable performs the triggered/failed → escalated transition for
// reminders whose escalation deadline has passed.
func (r *ReminderRepository) ClaimEscalatable(ctx context.Context, limit int) ([]*domain.Reminder, error) {
	query := `
		UPDATE reminders
		SET    status            = 'escalated',
		       last_escalated_at = NOW(),
		       updated_at        = NOW()
		WHERE id IN (
			SELECT id FROM reminders
			WHERE  status        IN ('triggered', 'failed')
			  AND  auto_escalate
			  AND  escalate_at IS NOT NULL
			  AND  escalate_at <= NOW()
			ORDER BY escalate_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + reminderColumns

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim escalatable reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, nil
}

func (r *ReminderRepository) ReleaseStuck(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminders
		SET    status     = 'pending',
		       last_error = 'dispatcher timeout',
		       updated_at = NOW()
		WHERE id IN (
			SELECT id FROM reminders
			WHERE  status            = 'triggered'
			  AND  last_triggered_at < $1
			ORDER BY last_triggered_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, staleCutoff, limit)
	return int(tag.RowsAffected()), err
}

func channelStrings(channels []domain.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var rem domain.Reminder
	var channels []string
	err := row.Scan(
		&rem.ID, &rem.ChecklistID, &rem.IdempotencyKey, &rem.Recipient, &rem.Subject, &rem.Body,
		&rem.RemindAt, &rem.DueAt, &rem.EscalateAt, &rem.Status, &channels,
		&rem.AutoEscalate, &rem.EscalateToUser, &rem.EscalateToRole,
		&rem.SentCount, &rem.LastTriggeredAt, &rem.LastSentAt, &rem.LastEscalatedAt, &rem.LastError,
		&rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	rem.Channels = make([]domain.Channel, len(channels))
	for i, c := range channels {
		rem.Channels[i] = domain.Channel(c)
	}
	return &rem, nil
}
