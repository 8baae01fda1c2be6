package items

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

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category_id, i.is_folder, i.created_at, i.updated_at,
		c.id, c.owner_id, c.name, c.color, c.icon, c.created_at`

var sortColumns = map[string]string{
	models.SortByCreatedAt: "i.created_at",
	models.SortByUpdatedAt: "i.updated_at",
	models.SortByTitle:     "lower(i.title)",
}

// orderBy maps the filter's sort onto a whitelisted column; unknown fields
// fall back to newest first.
func orderBy(f models.ItemFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[models.SortByCreatedAt]
	}
	dir := "DESC"
	if f.SortDir == models.SortAsc {
		dir = "ASC"
	}
	return col + " " + dir + ", i.id " + dir
}

// where builds the filter predicate; args[0] is always the owner.
func where(ownerID string, f models.ItemFilter) (string, []any) {
	args := []any{ownerID}
	conds := []string{"i.owner_id = $1"}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, repositories.Contains(s))
		n := strconv.Itoa(len(args))
		conds = append(conds, "(i.title ILIKE $"+n+" OR coalesce(i.description, '') ILIKE $"+n+")")
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		conds = append(conds, "i.category_id = $"+strconv.Itoa(len(args)))
	}
	if len(f.TagIDs) > 0 {
		from := len(args) + 1
		args = append(args, repositories.Args(f.TagIDs)...)
		conds = append(conds, "EXISTS (SELECT 1 FROM item_tags it WHERE it.item_id = i.id AND it.tag_id IN ("+
			repositories.Placeholders(from, len(f.TagIDs))+"))")
	}
	return strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, filter models.ItemFilter, page models.Pagination) (*models.ListResult[models.Item], error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = common.DefaultPageSize
	}
	if page.Limit > common.MaxPageSize {
		page.Limit = common.MaxPageSize
	}

	cond, args := where(ownerID, filter)

	var total int
	countQuery := `SELECT count(*) FROM items i WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.list", fmt.Errorf("db error: %w", err))
	}

	n := len(args)
	query := `SELECT ` + itemColumns + `
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE ` + cond + `
		ORDER BY ` + orderBy(filter) + `
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.list", fmt.Errorf("db error: %w", err))
	}
	data, err := scanItems(rows)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.list", err)
	}

	if err := r.embedRelations(ctx, data); err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.list", err)
	}

	return &models.ListResult[models.Item]{
		Data:    data,
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
		HasMore: page.Page*page.Limit < total,
	}, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1 AND i.owner_id = $2`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "items.get", fmt.Errorf("db error: %w", err))
	}

	list := []models.Item{*item}
	if err := r.embedRelations(ctx, list); err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.get", err)
	}
	reminders, err := r.reminders(ctx, id)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.get", err)
	}
	list[0].Reminders = reminders

	return &list[0], nil
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in models.ItemInput) (*models.Item, error) {
	query :=
		`INSERT INTO items (id, owner_id, title, description, category_id, is_folder)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`

	item := &models.Item{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		IsFolder:    in.IsFolder,
	}

	err := r.db.QueryRowContext(ctx, query,
		item.ID, ownerID, in.Title, in.Description, in.CategoryID, in.IsFolder).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.create", fmt.Errorf("db error: %w", err))
	}

	return item, nil
}

// Update applies the non-nil patch fields, touches updated_at and returns
// the item as re-read with its relations. A missing item yields (nil, nil).
func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, patch models.ItemPatch) (*models.Item, error) {
	var sets []string
	args := []any{id, ownerID}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.ClearCategory {
		sets = append(sets, "category_id = NULL")
	} else if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.IsFolder != nil {
		set("is_folder", *patch.IsFolder)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE items SET ` + strings.Join(sets, ", ") + `
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id`

	var got string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&got); err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "items.update", fmt.Errorf("db error: %w", err))
	}

	return r.GetByID(ctx, ownerID, id)
}

// Delete removes the item; join rows, attachment rows and reminders go
// with it through ON DELETE CASCADE. Blobs are the caller's business.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "items.delete", fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "items.delete", fmt.Errorf("db error: %w", err))
	}
	return n > 0, nil
}

// AddTags links the item to every listed tag the owner has; existing links
// are kept.
func (r *PostgresRepository) AddTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	if err := addTags(ctx, r.db, ownerID, itemID, tagIDs); err != nil {
		return repositories.Fail(ctx, r.log, "items.add_tags", err)
	}
	return nil
}

func addTags(ctx context.Context, db dbx.DBTX, ownerID, itemID string, tagIDs []string) error {
	query := `INSERT INTO item_tags (item_id, tag_id)
		 SELECT $1, t.id FROM tags t
		 WHERE t.owner_id = $2 AND t.id IN (` + repositories.Placeholders(3, len(tagIDs)) + `)
		   AND EXISTS (SELECT 1 FROM items WHERE id = $1 AND owner_id = $2)
		 ON CONFLICT DO NOTHING`

	args := append([]any{itemID, ownerID}, repositories.Args(tagIDs)...)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `DELETE FROM item_tags
		 WHERE item_id = $1
		   AND item_id IN (SELECT id FROM items WHERE owner_id = $2)
		   AND tag_id IN (` + repositories.Placeholders(3, len(tagIDs)) + `)`

	args := append([]any{itemID, ownerID}, repositories.Args(tagIDs)...)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return repositories.Fail(ctx, r.log, "items.remove_tags", fmt.Errorf("db error: %w", err))
	}
	return nil
}

// SetTags replaces the item's tag set in one transaction.
func (r *PostgresRepository) SetTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error {
	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM item_tags
			 WHERE item_id = $1
			   AND item_id IN (SELECT id FROM items WHERE owner_id = $2)`, itemID, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if len(tagIDs) == 0 {
			return nil
		}
		return addTags(ctx, tx, ownerID, itemID, tagIDs)
	})
	if err != nil {
		return repositories.Fail(ctx, r.log, "items.set_tags", err)
	}
	return nil
}

// ItemIDsWithTags returns the owner's items carrying any of the tags.
func (r *PostgresRepository) ItemIDsWithTags(ctx context.Context, ownerID string, tagIDs []string) ([]string, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	query := `SELECT DISTINCT it.item_id
		 FROM item_tags it
		 JOIN items i ON i.id = it.item_id
		 WHERE i.owner_id = $1 AND it.tag_id IN (` + repositories.Placeholders(2, len(tagIDs)) + `)`

	args := append([]any{ownerID}, repositories.Args(tagIDs)...)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.ids_with_tags", fmt.Errorf("db error: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, repositories.Fail(ctx, r.log, "items.ids_with_tags", fmt.Errorf("db error: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Fail(ctx, r.log, "items.ids_with_tags", fmt.Errorf("db error: %w", err))
	}
	return ids, nil
}

func (r *PostgresRepository) CountByCategory(ctx context.Context, ownerID, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM items WHERE owner_id = $1 AND category_id = $2`, ownerID, categoryID).Scan(&n)
	if err != nil {
		return 0, repositories.Fail(ctx, r.log, "items.count_by_category", fmt.Errorf("db error: %w", err))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.Item, error) {
	var (
		it          models.Item
		description sql.NullString
		categoryID  sql.NullString
		cID, cOwner sql.NullString
		cName       sql.NullString
		cColor      sql.NullString
		cIcon       sql.NullString
		cCreated    sql.NullTime
	)
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &description, &categoryID, &it.IsFolder, &it.CreatedAt, &it.UpdatedAt,
		&cID, &cOwner, &cName, &cColor, &cIcon, &cCreated)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		it.Description = &description.String
	}
	if categoryID.Valid {
		it.CategoryID = &categoryID.String
	}
	if cID.Valid {
		it.Category = &models.Category{
			ID:        cID.String,
			OwnerID:   cOwner.String,
			Name:      cName.String,
			Color:     cColor.String,
			Icon:      cIcon.String,
			CreatedAt: cCreated.Time,
		}
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	defer rows.Close()

	out := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// embedRelations fills Tags and Attachments of every item in place with
// one query per relation.
func (r *PostgresRepository) embedRelations(ctx context.Context, list []models.Item) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Tags = []models.Tag{}
		list[i].Attachments = []models.Attachment{}
	}
	in := repositories.Placeholders(1, len(ids))

	rows, err := r.db.QueryContext(ctx,
		`SELECT it.item_id, t.id, t.owner_id, t.name, t.created_at
		 FROM item_tags it
		 JOIN tags t ON t.id = it.tag_id
		 WHERE it.item_id IN (`+in+`)
		 ORDER BY lower(t.name)`, repositories.Args(ids)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for rows.Next() {
		var itemID string
		var t models.Tag
		if err := rows.Scan(&itemID, &t.ID, &t.OwnerID, &t.Name, &t.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("db error: %w", err)
		}
		if i, ok := index[itemID]; ok {
			list[i].Tags = append(list[i].Tags, t)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, item_id, owner_id, bucket, path, url, mime_type, file_name, size, created_at
		 FROM attachments
		 WHERE item_id IN (`+in+`)
		 ORDER BY created_at`, repositories.Args(ids)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.OwnerID, &a.Bucket, &a.Path, &a.URL, &a.MimeType, &a.FileName, &a.Size, &a.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if i, ok := index[a.ItemID]; ok {
			list[i].Attachments = append(list[i].Attachments, a)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) reminders(ctx context.Context, itemID string) ([]models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, owner_id, notify_at, note, sent, created_at
		 FROM reminders
		 WHERE item_id = $1
		 ORDER BY notify_at`, itemID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Reminder{}
	for rows.Next() {
		var rem models.Reminder
		var note sql.NullString
		if err := rows.Scan(&rem.ID, &rem.ItemID, &rem.OwnerID, &rem.NotifyAt, &note, &rem.Sent, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if note.Valid {
			rem.Note = &note.String
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
