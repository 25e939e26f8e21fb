package services

import (
	"context"
	"errors"
	"strings"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"gorm.io/gorm"
)

// ProfileDirectory is the read/write view over team members and their roles
type ProfileDirectory struct {
	db *gorm.DB
}

func NewProfileDirectory(db *gorm.DB) *ProfileDirectory {
	return &ProfileDirectory{db: db}
}

// Pools partitions every profile by canonical role. Members keep id order so
// a pool's indexes are stable between calls while membership is unchanged.
func (d *ProfileDirectory) Pools(ctx context.Context) (map[models.Role][]models.Profile, error) {
	var profiles []models.Profile
	if err := d.db.WithContext(ctx).Order("id asc").Find(&profiles).Error; err != nil {
		return nil, apperrors.NewBackendError("load profiles", err)
	}

	pools := make(map[models.Role][]models.Profile, len(models.AssignmentRoles))
	for _, p := range profiles {
		role, ok := models.ParseRole(string(p.Role))
		if !ok {
			logger.Warn("Profile has unknown role, leaving it out of assignment", map[string]interface{}{
				"profile_id": p.ID,
				"role":       p.Role,
			})
			continue
		}
		pools[role] = append(pools[role], p)
	}
	return pools, nil
}

func (d *ProfileDirectory) Get(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := d.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, apperrors.NewBackendError("load profile", err)
	}
	return &profile, nil
}

func (d *ProfileDirectory) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := d.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, apperrors.NewBackendError("load profile by email", err)
	}
	return &profile, nil
}

// List returns one page of profiles, optionally filtered by name or email
func (d *ProfileDirectory) List(ctx context.Context, search string, page, limit int) ([]models.Profile, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := d.db.WithContext(ctx).Model(&models.Profile{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewBackendError("count profiles", err)
	}

	var profiles []models.Profile
	if err := query.Order("id asc").Offset((page - 1) * limit).Limit(limit).Find(&profiles).Error; err != nil {
		return nil, 0, apperrors.NewBackendError("list profiles", err)
	}
	return profiles, total, nil
}

// Create stores a new profile. Password must already be hashed.
func (d *ProfileDirectory) Create(ctx context.Context, profile *models.Profile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	role, ok := models.ParseRole(string(profile.Role))
	if !ok {
		return apperrors.NewValidationError("Invalid role. Must be one of: admin, engineer, support")
	}
	profile.Role = role

	var count int64
	if err := d.db.WithContext(ctx).Model(&models.Profile{}).Where("email = ?", profile.Email).Count(&count).Error; err != nil {
		return apperrors.NewBackendError("check email", err)
	}
	if count > 0 {
		return apperrors.NewValidationError("User already exists")
	}
	if err := d.db.WithContext(ctx).Create(profile).Error; err != nil {
		return apperrors.NewBackendError("create profile", err)
	}
	return nil
}

// UpdateRole changes a member's role. Admins cannot change their own role
// and the last admin cannot be demoted.
func (d *ProfileDirectory) UpdateRole(ctx context.Context, actorID, id uint, roleName string) (*models.Profile, error) {
	role, ok := models.ParseRole(roleName)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid role. Must be one of: admin, engineer, support")
	}
	if actorID == id {
		return nil, apperrors.NewValidationError("Cannot change your own role")
	}

	profile, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if profile.Role == models.RoleAdmin && role != models.RoleAdmin {
		var adminCount int64
		if err := d.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", models.RoleAdmin).Count(&adminCount).Error; err != nil {
			return nil, apperrors.NewBackendError("count admins", err)
		}
		if adminCount <= 1 {
			return nil, apperrors.NewValidationError("Cannot change role. At least one admin must remain in the system")
		}
	}

	if err := d.db.WithContext(ctx).Model(profile).Update("role", role).Error; err != nil {
		return nil, apperrors.NewBackendError("update role", err)
	}
	profile.Role = role

	logger.Info("Profile role updated", map[string]interface{}{
		"profile_id": id,
		"role":       role,
		"actor_id":   actorID,
	})
	return profile, nil
}

type ProfilePatch struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

func (d *ProfileDirectory) Update(ctx context.Context, id uint, patch ProfilePatch) (*models.Profile, error) {
	patch.FullName = trimPtr(patch.FullName)
	patch.Email = trimPtr(patch.Email)
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	profile, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.FullName != nil {
		updates["full_name"] = *patch.FullName
	}
	if patch.Email != nil {
		email := strings.ToLower(*patch.Email)
		if email != profile.Email {
			var count int64
			if err := d.db.WithContext(ctx).Model(&models.Profile{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return nil, apperrors.NewBackendError("check email", err)
			}
			if count > 0 {
				return nil, apperrors.NewValidationError("Email already in use")
			}
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		return profile, nil
	}

	if err := d.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, apperrors.NewBackendError("update profile", err)
	}
	return d.Get(ctx, id)
}

func (d *ProfileDirectory) SetAvatar(ctx context.Context, id uint, url string) (*models.Profile, error) {
	profile, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.db.WithContext(ctx).Model(profile).Update("avatar_url", url).Error; err != nil {
		return nil, apperrors.NewBackendError("update avatar", err)
	}
	profile.AvatarURL = &url
	return profile, nil
}

// SetPassword stores a new bcrypt hash for the profile
func (d *ProfileDirectory) SetPassword(ctx context.Context, id uint, hash string) error {
	res := d.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return apperrors.NewBackendError("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("User not found")
	}
	return nil
}
