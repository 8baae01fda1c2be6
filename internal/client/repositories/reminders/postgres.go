package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db  dbx.DBTX
	log logging.Logger
}

func NewPostgresRepository(db dbx.DBTX, log logging.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

const reminderColumns = `r.id, r.item_id, r.owner_id, r.notify_at, r.note, r.sent, r.created_at, i.title`

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(row scanner) (*models.Reminder, error) {
	var rem models.Reminder
	var note sql.NullString
	if err := row.Scan(&rem.ID, &rem.ItemID, &rem.OwnerID, &rem.NotifyAt, &note, &rem.Sent, &rem.CreatedAt, &rem.ItemTitle); err != nil {
		return nil, err
	}
	if note.Valid {
		rem.Note = &note.String
	}
	return &rem, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, opts ListOptions) ([]models.Reminder, error) {
	args := []any{ownerID}
	conds := []string{"r.owner_id = $1"}
	if opts.ItemID != "" {
		args = append(args, opts.ItemID)
		conds = append(conds, "r.item_id = $"+strconv.Itoa(len(args)))
	}
	if opts.Upcoming {
		args = append(args, opts.Now)
		conds = append(conds, "r.sent = FALSE AND r.notify_at >= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + reminderColumns + `
		 FROM reminders r
		 JOIN items i ON i.id = r.item_id
		 WHERE ` + strings.Join(conds, " AND ") + `
		 ORDER BY r.notify_at, r.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "reminders.list", fmt.Errorf("db error: %w", err))
	}
	defer rows.Close()

	out := []models.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, repositories.Fail(ctx, r.log, "reminders.list", fmt.Errorf("db error: %w", err))
		}
		out = append(out, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Fail(ctx, r.log, "reminders.list", fmt.Errorf("db error: %w", err))
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
		 FROM reminders r
		 JOIN items i ON i.id = r.item_id
		 WHERE r.id = $1 AND r.owner_id = $2`

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "reminders.get", fmt.Errorf("db error: %w", err))
	}
	return rem, nil
}

// Create inserts a reminder for one of the owner's items. An item the owner
// does not have yields common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in models.ReminderInput) (*models.Reminder, error) {
	query :=
		`WITH ins AS (
		   INSERT INTO reminders (id, item_id, owner_id, notify_at, note)
		   SELECT $1, i.id, i.owner_id, $4, $5 FROM items i
		   WHERE i.id = $2 AND i.owner_id = $3
		   RETURNING id, item_id, owner_id, notify_at, note, sent, created_at
		 )
		 SELECT ins.id, ins.item_id, ins.owner_id, ins.notify_at, ins.note, ins.sent, ins.created_at, i.title
		 FROM ins JOIN items i ON i.id = ins.item_id`

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, uuid.NewString(), in.ItemID, ownerID, in.NotifyAt, in.Note))
	if err != nil {
		if dbx.IsNoRows(err) {
			err = common.ErrorNotFound
		}
		return nil, repositories.Fail(ctx, r.log, "reminders.create", fmt.Errorf("db error: %w", err))
	}
	return rem, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, patch models.ReminderPatch) (*models.Reminder, error) {
	var sets []string
	args := []any{id, ownerID}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.NotifyAt != nil {
		set("notify_at", *patch.NotifyAt)
		if patch.Sent == nil {
			sets = append(sets, "sent = FALSE")
		}
	}
	if patch.Note != nil {
		set("note", *patch.Note)
	}
	if patch.Sent != nil {
		set("sent", *patch.Sent)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, ownerID, id)
	}

	query := `UPDATE reminders SET ` + strings.Join(sets, ", ") + `
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id`

	var got string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&got); err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "reminders.update", fmt.Errorf("db error: %w", err))
	}
	return r.GetByID(ctx, ownerID, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	return r.exec(ctx, "reminders.delete", `DELETE FROM reminders WHERE id = $1 AND owner_id = $2`, id, ownerID)
}

func (r *PostgresRepository) MarkSent(ctx context.Context, ownerID, id string) (bool, error) {
	return r.exec(ctx, "reminders.mark_sent", `UPDATE reminders SET sent = TRUE WHERE id = $1 AND owner_id = $2`, id, ownerID)
}

func (r *PostgresRepository) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, repositories.Fail(ctx, r.log, op, fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, repositories.Fail(ctx, r.log, op, fmt.Errorf("db error: %w", err))
	}
	return n > 0, nil
}
