package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/microcommerce/auth-service/internal/apperrors"
	"github.com/microcommerce/auth-service/internal/dto"
	"github.com/microcommerce/auth-service/internal/models"
	"gorm.io/gorm"
)

// sortColumns whitelists the directory listing sort keys.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"username":   "username",
	"email":      "email",
}

// UserService is the user directory: plain lookups and listing around the
// users table. The auth orchestrator consumes it through the UserDirectory
// interface.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getOne(ctx, "id = ?", id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, "email = ?", email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, "username = ?", username)
}

func (s *UserService) getOne(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(cond, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *UserService) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

func (s *UserService) Create(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username: username,
		Email:    email,
		Password: passwordHash,
		Role:     "USER",
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return user, nil
}

// ListUsers returns one page of the directory plus the unpaged total.
// Search matches username or email as a substring.
func (s *UserService) ListUsers(ctx context.Context, q dto.ListUsersQuery) ([]models.User, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	order := "desc"
	if q.SortOrder == "asc" {
		order = "asc"
	}

	var users []models.User
	err := query.
		Order(column + " " + order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return users, total, nil
}
