package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/campus-exams/exam-service/internal/config"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// userRepository reads identity data from Casdoor with a Redis
// read-through cache. The exam service never writes users.
type userRepository struct {
	client *casdoorsdk.Client
	redis  *redis.Client

	cachePrefix string
	cacheTTL    time.Duration
}

func NewUserRepository(cfg config.CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return &userRepository{
		client:      client,
		redis:       redisClient,
		cachePrefix: "user:",
		cacheTTL:    15 * time.Minute,
	}
}

func (u *userRepository) cacheKey(key string) string {
	return u.cachePrefix + key
}

func (u *userRepository) fromCache(ctx context.Context, key string) (*models.User, error) {
	if u.redis == nil {
		return nil, nil
	}

	data, err := u.redis.Get(ctx, u.cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}
	return &user, nil
}

func (u *userRepository) toCache(ctx context.Context, key string, user *models.User) {
	if u.redis == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	u.redis.Set(ctx, u.cacheKey(key), data, u.cacheTTL)
}

func (u *userRepository) convertUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          u.resolveRole(casdoorUser),
		AvatarURL:     &casdoorUser.Avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// resolveRole picks a single primary role from the Casdoor role list.
// Admin wins over everything; otherwise the first recognized role is used.
func (u *userRepository) resolveRole(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	primary := models.RoleStudent
	found := false
	for _, role := range casdoorUser.Roles {
		mapped := mapCasdoorRole(role.Name)
		if mapped == models.RoleAdmin {
			return models.RoleAdmin
		}
		if !found {
			primary = mapped
			found = true
		}
	}
	return primary
}

func mapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "faculty", "teacher", "instructor":
		return models.RoleFaculty
	case "hod", "head_of_department":
		return models.RoleHOD
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

func (u *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	key := fmt.Sprintf("id:%s", id)
	if cached, err := u.fromCache(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with ID %s", id)
	}

	user := u.convertUser(casdoorUser)
	u.toCache(ctx, key, user)
	u.toCache(ctx, fmt.Sprintf("email:%s", user.Email), user)
	return user, nil
}

func (u *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	key := fmt.Sprintf("email:%s", email)
	if cached, err := u.fromCache(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with email %s", email)
	}

	user := u.convertUser(casdoorUser)
	u.toCache(ctx, key, user)
	u.toCache(ctx, fmt.Sprintf("id:%s", user.ID), user)
	return user, nil
}

func (u *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page := (offset / limit) + 1

	casdoorUsers, _, err := u.client.GetPaginationUsers(page, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		if user := u.convertUser(casdoorUser); user != nil {
			users = append(users, user)
			u.toCache(ctx, fmt.Sprintf("id:%s", user.ID), user)
		}
	}
	return users, nil
}
