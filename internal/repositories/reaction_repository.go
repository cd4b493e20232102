package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrReactionNotFound  = errors.New("reaction not found")
	ErrDuplicateReaction = errors.New("duplicate reaction")
)

const uniqueViolation = "23505"

const reactionColumns = `id, message_id, group_message_id, user_id, emoji, message_type, created_at`

// ReactionRepository persists (message, user, emoji) reactions.
type ReactionRepository interface {
	Add(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error)
	Remove(ctx context.Context, reactionID, userID int) (models.Reaction, error)
	RemoveByKey(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error)
	ListForMessage(ctx context.Context, messageID int, messageType string) ([]models.Reaction, error)
	BulkMaps(ctx context.Context, messageIDs []int, messageType string) (map[int]models.ReactionMap, error)
}

// ReactionRepo is a sqlx-backed repository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Add stores a reaction. Inserting the same (message, user, emoji) twice
// hits the partial unique index and surfaces ErrDuplicateReaction.
func (r *ReactionRepo) Add(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error) {
	messageCol, groupCol := splitTargetID(messageID, messageType)

	var reaction models.Reaction
	err := r.db.QueryRowxContext(ctx, `INSERT INTO message_reactions (message_id, group_message_id, user_id, emoji, message_type)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+reactionColumns,
		messageCol, groupCol, userID, emoji, messageType).StructScan(&reaction)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return models.Reaction{}, ErrDuplicateReaction
		}
		return models.Reaction{}, err
	}
	return reaction, nil
}

// Remove deletes a reaction by id, restricted to its owner, and returns
// the removed row for event emission.
func (r *ReactionRepo) Remove(ctx context.Context, reactionID, userID int) (models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.QueryRowxContext(ctx, `DELETE FROM message_reactions WHERE id=$1 AND user_id=$2
        RETURNING `+reactionColumns, reactionID, userID).StructScan(&reaction)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reaction{}, ErrReactionNotFound
	}
	return reaction, err
}

// RemoveByKey deletes a reaction by its (message, user, emoji) composite
// key.
func (r *ReactionRepo) RemoveByKey(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error) {
	column := targetColumn(messageType)

	var reaction models.Reaction
	err := r.db.QueryRowxContext(ctx, `DELETE FROM message_reactions
        WHERE `+column+`=$1 AND user_id=$2 AND emoji=$3 AND message_type=$4
        RETURNING `+reactionColumns, messageID, userID, emoji, messageType).StructScan(&reaction)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reaction{}, ErrReactionNotFound
	}
	return reaction, err
}

// ListForMessage returns all reactions attached to one message.
func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID int, messageType string) ([]models.Reaction, error) {
	column := targetColumn(messageType)

	var reactions []models.Reaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT `+reactionColumns+` FROM message_reactions
        WHERE `+column+`=$1 AND message_type=$2 ORDER BY created_at ASC, id ASC`, messageID, messageType)
	return reactions, err
}

// BulkMaps returns emoji-keyed reaction maps for a list of message ids in
// a single query, keyed by message id.
func (r *ReactionRepo) BulkMaps(ctx context.Context, messageIDs []int, messageType string) (map[int]models.ReactionMap, error) {
	result := make(map[int]models.ReactionMap, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}
	column := targetColumn(messageType)

	query, args, err := sqlx.In(`SELECT `+reactionColumns+` FROM message_reactions
        WHERE `+column+` IN (?) AND message_type = ? ORDER BY created_at ASC, id ASC`, messageIDs, messageType)
	if err != nil {
		return nil, err
	}

	var reactions []models.Reaction
	if err := r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, reaction := range reactions {
		target := reaction.TargetID()
		if result[target] == nil {
			result[target] = make(models.ReactionMap)
		}
		result[target][reaction.Emoji] = append(result[target][reaction.Emoji], reaction.UserID)
	}
	return result, nil
}

func splitTargetID(messageID int, messageType string) (messageCol, groupCol *int) {
	if messageType == models.MessageTypeGroup {
		return nil, &messageID
	}
	return &messageID, nil
}

func targetColumn(messageType string) string {
	if messageType == models.MessageTypeGroup {
		return "group_message_id"
	}
	return "message_id"
}
