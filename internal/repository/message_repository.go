package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"welfare-chat/internal/models"
	"welfare-chat/internal/protocol"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ArchiveRepo interface {
	Archive(ctx context.Context, m protocol.Message, receivedAt time.Time) error
	Recent(ctx context.Context, limit int) ([]*models.ArchivedMessage, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresArchiveRepo keeps accepted hub messages for one room. It is a
// record of what passed through the hub and is never replayed to sessions.
type PostgresArchiveRepo struct {
	pool *pgxpool.Pool
	room string
}

func NewArchiveRepo(pool *pgxpool.Pool, room string) *PostgresArchiveRepo {
	return &PostgresArchiveRepo{
		pool: pool,
		room: room,
	}
}

func (r *PostgresArchiveRepo) Archive(ctx context.Context, m protocol.Message, receivedAt time.Time) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", m.ID, err)
	}

	query := `
        INSERT INTO message_archive (id, room_id, sender_name, msg_type, payload, sent_at, received_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
    `

	_, err = r.pool.Exec(ctx, query,
		m.ID,
		r.room,
		m.UserName,
		string(m.Type),
		payload,
		m.Timestamp,
		receivedAt,
	)

	if err != nil {
		log.Printf("[REPO ERROR] Failed to archive message %s from %s: %v", m.ID, m.UserName, err)
		return err
	}

	return nil
}

func (r *PostgresArchiveRepo) Recent(ctx context.Context, limit int) ([]*models.ArchivedMessage, error) {
	query := `
        SELECT id, room_id, sender_name, msg_type, payload, sent_at, received_at
        FROM message_archive
        WHERE room_id = $1
        ORDER BY received_at DESC
        LIMIT $2
    `

	rows, err := r.pool.Query(ctx, query, r.room, limit)
	if err != nil {
		log.Printf("[REPO ERROR] Recent failed for room %s: %v", r.room, err)
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ArchivedMessage
	for rows.Next() {
		m := &models.ArchivedMessage{}
		err := rows.Scan(
			&m.ID,
			&m.RoomID,
			&m.Sender,
			&m.Type,
			&m.Payload,
			&m.SentAt,
			&m.ReceivedAt,
		)
		if err != nil {
			log.Printf("[REPO ERROR] Scan failed: %v", err)
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *PostgresArchiveRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM message_archive WHERE room_id = $1 AND received_at < $2`

	tag, err := r.pool.Exec(ctx, query, r.room, cutoff)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to prune archive before %s: %v", cutoff.Format(time.RFC3339), err)
		return 0, fmt.Errorf("database delete failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		log.Printf("[REPO INFO] Nothing to prune before %s", cutoff.Format(time.RFC3339))
	}

	return tag.RowsAffected(), nil
}
