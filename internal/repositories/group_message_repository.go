package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

const groupMessageColumns = `id, group_id, sender_id, text, message_type, file_url, file_name, file_size, file_mime, created_at`

// GroupMessageRepository defines interactions for group messages and their
// read receipts.
type GroupMessageRepository interface {
	Create(ctx context.Context, groupID, senderID int, text string, att *models.Attachment) (models.GroupMessage, error)
	CreateSystem(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error)
	List(ctx context.Context, groupID, limit, offset int) ([]models.GroupMessage, error)
	Get(ctx context.Context, messageID int) (models.GroupMessage, error)
	MarkRead(ctx context.Context, messageID, userID int) (bool, error)
	Receipts(ctx context.Context, messageID int) ([]models.ReadReceipt, error)
}

// GroupMessageRepo is a sqlx-backed repository.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// Create stores a group message with the kind derived from its attachment.
func (r *GroupMessageRepo) Create(ctx context.Context, groupID, senderID int, text string, att *models.Attachment) (models.GroupMessage, error) {
	return r.create(ctx, groupID, senderID, text, models.KindForAttachment(att), att)
}

// CreateSystem stores a system message recording a group lifecycle change.
func (r *GroupMessageRepo) CreateSystem(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error) {
	return r.create(ctx, groupID, senderID, text, models.MessageKindSystem, nil)
}

func (r *GroupMessageRepo) create(ctx context.Context, groupID, senderID int, text, kind string, att *models.Attachment) (models.GroupMessage, error) {
	url, name, size, mime := attachmentColumns(att)
	row := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages (group_id, sender_id, text, message_type, file_url, file_name, file_size, file_mime)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+groupMessageColumns,
		groupID, senderID, text, kind, url, name, size, mime)
	return scanGroupMessage(row)
}

// List returns group messages ordered oldest first, paginated.
func (r *GroupMessageRepo) List(ctx context.Context, groupID, limit, offset int) ([]models.GroupMessage, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+groupMessageColumns+` FROM group_messages
        WHERE group_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`, groupID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.GroupMessage
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Get retrieves a single group message.
func (r *GroupMessageRepo) Get(ctx context.Context, messageID int) (models.GroupMessage, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+groupMessageColumns+` FROM group_messages WHERE id=$1`, messageID)
	msg, err := scanGroupMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead records a read receipt. Receipts are append-only and a repeat
// call for the same user is a no-op; the return value reports whether a
// new receipt was created.
func (r *GroupMessageRepo) MarkRead(ctx context.Context, messageID, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO group_message_reads (message_id, user_id)
        VALUES ($1, $2) ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Receipts returns all read receipts for a message, oldest first.
func (r *GroupMessageRepo) Receipts(ctx context.Context, messageID int) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	err := r.db.SelectContext(ctx, &receipts, `SELECT message_id, user_id, read_at
        FROM group_message_reads WHERE message_id=$1 ORDER BY read_at ASC`, messageID)
	return receipts, err
}

func scanGroupMessage(row rowScanner) (models.GroupMessage, error) {
	var (
		msg  models.GroupMessage
		url  sql.NullString
		name sql.NullString
		size sql.NullInt64
		mime sql.NullString
	)
	err := row.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Text, &msg.MessageType, &url, &name, &size, &mime, &msg.CreatedAt)
	if err != nil {
		return models.GroupMessage{}, err
	}
	msg.Attachment = attachmentFromColumns(url, name, size, mime)
	return msg, nil
}
