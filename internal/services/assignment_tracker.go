package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorStore keeps one round-robin cursor per role pool. Advance moves the
// cursor of role one step within a pool of poolLen members and returns the
// index it now points at. Concurrent advances never return the same step twice.
type CursorStore interface {
	Advance(ctx context.Context, role models.Role, poolLen int) (int, error)
	Cursors(ctx context.Context) (map[models.Role]int, error)
}

// TxCursorStore is a CursorStore whose advances can join a database
// transaction, so they roll back with it.
type TxCursorStore interface {
	CursorStore
	WithTx(tx *gorm.DB) CursorStore
}

// GormCursorStore persists cursors in the assignment_trackers table
type GormCursorStore struct {
	db *gorm.DB
}

func NewGormCursorStore(db *gorm.DB) *GormCursorStore {
	return &GormCursorStore{db: db}
}

func (s *GormCursorStore) WithTx(tx *gorm.DB) CursorStore {
	return &GormCursorStore{db: tx}
}

func (s *GormCursorStore) Advance(ctx context.Context, role models.Role, poolLen int) (int, error) {
	if poolLen <= 0 {
		return 0, apperrors.NewInsufficientUsersError(string(role))
	}

	var next int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.AssignmentTracker{Role: role, LastIndex: -1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed tracker: %w", err)
		}

		// the row lock taken by this update serialises concurrent advances
		res := tx.Model(&models.AssignmentTracker{}).
			Where("role = ?", role).
			Update("last_index", gorm.Expr("(last_index + 1) % ?", poolLen))
		if res.Error != nil {
			return fmt.Errorf("advance tracker: %w", res.Error)
		}

		var row models.AssignmentTracker
		if err := tx.Where("role = ?", role).Take(&row).Error; err != nil {
			return fmt.Errorf("read tracker: %w", err)
		}
		next = row.LastIndex
		return nil
	})
	if err != nil {
		return 0, err
	}
	return clampCursor(next, poolLen), nil
}

func (s *GormCursorStore) Cursors(ctx context.Context) (map[models.Role]int, error) {
	var rows []models.AssignmentTracker
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	out := make(map[models.Role]int, len(models.AssignmentRoles))
	for _, role := range models.AssignmentRoles {
		out[role] = -1
	}
	for _, row := range rows {
		out[row.Role] = row.LastIndex
	}
	return out, nil
}

// advanceScript performs the read-modify-write of one cursor atomically on
// the redis server. A missing key counts as -1.
var advanceScript = redis.NewScript(`
local last = tonumber(redis.call("GET", KEYS[1]) or "-1")
local size = tonumber(ARGV[1])
local next = (last + 1) % size
redis.call("SET", KEYS[1], next)
return next
`)

// RedisCursorStore keeps cursors in redis for deployments that run several
// server instances against one database without relying on row locks.
type RedisCursorStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCursorStore(client redis.Cmdable, prefix string) *RedisCursorStore {
	if prefix == "" {
		prefix = "triage:tracker:"
	}
	return &RedisCursorStore{client: client, prefix: prefix}
}

func (s *RedisCursorStore) key(role models.Role) string {
	return s.prefix + string(role)
}

func (s *RedisCursorStore) Advance(ctx context.Context, role models.Role, poolLen int) (int, error) {
	if poolLen <= 0 {
		return 0, apperrors.NewInsufficientUsersError(string(role))
	}
	next, err := advanceScript.Run(ctx, s.client, []string{s.key(role)}, poolLen).Int()
	if err != nil {
		return 0, fmt.Errorf("advance tracker %s: %w", role, err)
	}
	return clampCursor(next, poolLen), nil
}

func (s *RedisCursorStore) Cursors(ctx context.Context) (map[models.Role]int, error) {
	out := make(map[models.Role]int, len(models.AssignmentRoles))
	for _, role := range models.AssignmentRoles {
		v, err := s.client.Get(ctx, s.key(role)).Int()
		switch {
		case errors.Is(err, redis.Nil):
			out[role] = -1
		case err != nil:
			return nil, fmt.Errorf("read tracker %s: %w", role, err)
		default:
			out[role] = v
		}
	}
	return out, nil
}

// clampCursor keeps a stored cursor inside the current pool. Stored values
// can exceed it after the pool shrinks.
func clampCursor(idx, poolLen int) int {
	if idx < 0 || idx >= poolLen {
		return ((idx % poolLen) + poolLen) % poolLen
	}
	return idx
}
