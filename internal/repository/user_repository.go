package repository

import (
	"context"
	"errors"
	"fmt"

	"welfare-chat/internal/models"
	"welfare-chat/internal/protocol"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberNotApproved = errors.New("member is not approved")
)

type MemberRepository interface {
	GetMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

// PostgresMemberRepo reads the welfare-group member registry. Bound to a
// member id it also serves as the chat client's identity provider.
type PostgresMemberRepo struct {
	pool     *pgxpool.Pool
	memberID uuid.UUID
}

func NewMemberRepo(pool *pgxpool.Pool, memberID uuid.UUID) *PostgresMemberRepo {
	return &PostgresMemberRepo{
		pool:     pool,
		memberID: memberID,
	}
}

func (r *PostgresMemberRepo) GetMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	query := `
		SELECT id, full_name, profile_image_url, status, created_at, updated_at
		FROM welfare_members
		WHERE id = $1`

	member := &models.Member{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.FullName,
		&member.ProfileImageURL,
		&member.Status,
		&member.CreatedAt,
		&member.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member by ID: %w", err)
	}

	return member, nil
}

// Identity returns the bound member's chat identity. Only approved members
// may post.
func (r *PostgresMemberRepo) Identity(ctx context.Context) (protocol.Identity, error) {
	member, err := r.GetMemberByID(ctx, r.memberID)
	if err != nil {
		return protocol.Identity{}, err
	}
	return identityOf(member)
}

func identityOf(member *models.Member) (protocol.Identity, error) {
	if member.Status != models.MemberApproved {
		return protocol.Identity{}, fmt.Errorf("%w: %s is %s", ErrMemberNotApproved, member.FullName, member.Status)
	}
	return protocol.Identity{
		Name:            member.FullName,
		ProfileImageURL: member.ProfileImageURL,
	}, nil
}
