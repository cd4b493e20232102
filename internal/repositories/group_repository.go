package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrNotAdmin       = errors.New("user is not the group admin")
)

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	Create(ctx context.Context, adminID int, name, description string, memberIDs []int) (models.Group, error)
	Get(ctx context.Context, groupID int) (models.Group, error)
	ListForUser(ctx context.Context, userID int) ([]models.Group, error)
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	AddMembers(ctx context.Context, groupID int, memberIDs []int) ([]int, error)
	RemoveMember(ctx context.Context, groupID, userID int) error
	UpdateProfile(ctx context.Context, groupID int, name, description, profilePic string) error
	TransferAdmin(ctx context.Context, groupID, oldAdminID, newAdminID int) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create creates a group and its members atomically. The creator becomes
// the single admin; duplicate member ids are collapsed.
func (r *GroupRepo) Create(ctx context.Context, adminID int, name, description string, memberIDs []int) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (name, description, admin_id)
        VALUES ($1, $2, $3)
        RETURNING id, name, description, profile_pic, admin_id, created_at`,
		name, description, adminID).StructScan(&group); err != nil {
		return models.Group{}, err
	}

	memberSet := map[int]struct{}{adminID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	for userID := range memberSet {
		role := models.RoleMember
		if userID == adminID {
			role = models.RoleAdmin
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
			group.ID, userID, role); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}

	return r.Get(ctx, group.ID)
}

// Get retrieves a group with its member list.
func (r *GroupRepo) Get(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, description, profile_pic, admin_id, created_at
        FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}

	if err := r.db.SelectContext(ctx, &group.Members, `SELECT group_id, user_id, role
        FROM group_members WHERE group_id=$1 ORDER BY user_id ASC`, groupID); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListForUser returns every group the user belongs to, members included.
func (r *GroupRepo) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.description, g.profile_pic, g.admin_id, g.created_at
        FROM groups g
        JOIN group_members m ON m.group_id = g.id
        WHERE m.user_id=$1
        ORDER BY g.created_at DESC`, userID)
	if err != nil || len(groups) == 0 {
		return groups, err
	}

	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	query, args, err := sqlx.In(`SELECT group_id, user_id, role FROM group_members WHERE group_id IN (?) ORDER BY user_id ASC`, ids)
	if err != nil {
		return nil, err
	}
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	byGroup := make(map[int][]models.GroupMember, len(groups))
	for _, m := range members {
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
	}
	for i := range groups {
		groups[i].Members = byGroup[groups[i].ID]
	}
	return groups, nil
}

// IsMember reports membership against the persisted group record. This is
// the authorization check for every room-scoped operation; socket room
// subscriptions are never trusted for it.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (
        SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// AddMembers inserts new members, skipping ids already present, and
// returns the ids actually added.
func (r *GroupRepo) AddMembers(ctx context.Context, groupID int, memberIDs []int) ([]int, error) {
	added := make([]int, 0, len(memberIDs))
	for _, userID := range memberIDs {
		res, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role)
            VALUES ($1, $2, $3) ON CONFLICT (group_id, user_id) DO NOTHING`,
			groupID, userID, models.RoleMember)
		if err != nil {
			return nil, err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			added = append(added, userID)
		}
	}
	return added, nil
}

// RemoveMember deletes one membership record.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// UpdateProfile updates the group's profile fields.
func (r *GroupRepo) UpdateProfile(ctx context.Context, groupID int, name, description, profilePic string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE groups SET name=$2, description=$3, profile_pic=$4 WHERE id=$1`,
		groupID, name, description, profilePic)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// TransferAdmin atomically demotes the old admin, promotes the new one and
// reassigns the group's admin reference, keeping exactly one admin.
func (r *GroupRepo) TransferAdmin(ctx context.Context, groupID, oldAdminID, newAdminID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE groups SET admin_id=$3 WHERE id=$1 AND admin_id=$2`,
		groupID, oldAdminID, newAdminID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrNotAdmin
		return err
	}

	res, err = tx.ExecContext(ctx, `UPDATE group_members SET role=$3 WHERE group_id=$1 AND user_id=$2`,
		groupID, newAdminID, models.RoleAdmin)
	if err != nil {
		return err
	}
	count, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrMemberNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE group_members SET role=$3 WHERE group_id=$1 AND user_id=$2`,
		groupID, oldAdminID, models.RoleMember); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}
