package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campus-exams/exam-service/internal/cache"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

type groupRepository struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewGroupRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.GroupRepository {
	return &groupRepository{db: db, cache: cacheManager}
}

func (r *groupRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *groupRepository) CreateGroup(ctx context.Context, tx *gorm.DB, group *models.StudentGroup) error {
	if err := r.getDB(tx).WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (r *groupRepository) GetGroupByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudentGroup, error) {
	var group models.StudentGroup
	if err := r.getDB(tx).WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetGroupsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.StudentGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []models.StudentGroup
	err := r.getDB(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	return groups, nil
}

func (r *groupRepository) ListGroups(ctx context.Context, tx *gorm.DB) ([]*models.StudentGroup, error) {
	var groups []*models.StudentGroup
	err := r.getDB(tx).WithContext(ctx).
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (r *groupRepository) UpsertProfile(ctx context.Context, tx *gorm.DB, profile *models.StudentProfile) error {
	err := r.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"student_id",
				"group_id",
				"is_active",
				"updated_at",
			}),
		}).
		Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert student profile: %w", err)
	}
	if r.cache != nil {
		cache.SafeDelete(ctx, r.cache.Group, fmt.Sprintf("profile:%s", profile.UserID))
	}
	return nil
}

func (r *groupRepository) GetProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.StudentProfile, error) {
	db := r.getDB(tx)

	fetch := func() (interface{}, error) {
		var profile models.StudentProfile
		err := db.WithContext(ctx).
			Preload("Group").
			Where("user_id = ?", userID).
			First(&profile).Error
		if err != nil {
			return nil, err
		}
		return &profile, nil
	}

	if tx != nil || r.cache == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.(*models.StudentProfile), nil
	}

	var profile models.StudentProfile
	err := r.cache.Group.CacheOrExecute(ctx, fmt.Sprintf("profile:%s", userID), &profile, cache.GroupCacheConfig.TTL, fetch)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
