package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, text, message_type, file_url, file_name, file_size, file_mime, created_at`

// MessageRepository defines interactions for private messages.
type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID int, text string, att *models.Attachment) (models.Message, error)
	ListConversation(ctx context.Context, userID, otherID, limit, offset int) ([]models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a private message. The message kind is derived from the
// attachment.
func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID int, text string, att *models.Attachment) (models.Message, error) {
	kind := models.KindForAttachment(att)
	url, name, size, mime := attachmentColumns(att)

	row := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, text, message_type, file_url, file_name, file_size, file_mime)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+messageColumns,
		senderID, receiverID, text, kind, url, name, size, mime)
	return scanMessage(row)
}

// ListConversation returns messages between two users ordered oldest
// first, paginated.
func (r *MessageRepo) ListConversation(ctx context.Context, userID, otherID, limit, offset int) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+messageColumns+` FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC, id ASC
        LIMIT $3 OFFSET $4`, userID, otherID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Get retrieves a single private message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		msg  models.Message
		url  sql.NullString
		name sql.NullString
		size sql.NullInt64
		mime sql.NullString
	)
	err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.MessageType, &url, &name, &size, &mime, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	msg.Attachment = attachmentFromColumns(url, name, size, mime)
	return msg, nil
}

func attachmentColumns(att *models.Attachment) (url, name sql.NullString, size sql.NullInt64, mime sql.NullString) {
	if att == nil {
		return
	}
	url = sql.NullString{String: att.URL, Valid: true}
	if att.Name != "" {
		name = sql.NullString{String: att.Name, Valid: true}
	}
	if att.Size != 0 {
		size = sql.NullInt64{Int64: att.Size, Valid: true}
	}
	if att.MimeType != "" {
		mime = sql.NullString{String: att.MimeType, Valid: true}
	}
	return
}

func attachmentFromColumns(url, name sql.NullString, size sql.NullInt64, mime sql.NullString) *models.Attachment {
	if !url.Valid {
		return nil
	}
	return &models.Attachment{
		URL:      url.String,
		Name:     name.String,
		Size:     size.Int64,
		MimeType: mime.String,
	}
}
