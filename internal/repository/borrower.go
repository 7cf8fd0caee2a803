package repository

import (
	"context"
	"errors"

	"biblio/internal/cache"
	"biblio/internal/models"

	"gorm.io/gorm"
)

// BorrowerRepository defines persistence operations for borrowers.
type BorrowerRepository interface {
	Create(ctx context.Context, borrower *models.Borrower) error
	GetByID(ctx context.Context, id uint) (*models.Borrower, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Borrower, error)
	GetByMemberNo(ctx context.Context, memberNo string) (*models.Borrower, error)
	List(ctx context.Context, limit, offset int) ([]*models.Borrower, error)
	Update(ctx context.Context, borrower *models.Borrower) error
	Delete(ctx context.Context, id uint) error
}

type borrowerRepository struct {
	db *gorm.DB
}

// NewBorrowerRepository creates a new borrower repository.
func NewBorrowerRepository(db *gorm.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *models.Borrower) error {
	if err := r.db.WithContext(ctx).Create(borrower).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *borrowerRepository) GetByID(ctx context.Context, id uint) (*models.Borrower, error) {
	var borrower models.Borrower
	key := cache.BorrowerKey(id)

	err := cache.CacheAside(ctx, key, &borrower, cache.BorrowerTTL, func() error {
		if err := r.db.WithContext(ctx).First(&borrower, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Borrower", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) GetByUserID(ctx context.Context, userID uint) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&borrower).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Borrower", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return &borrower, nil
}

func (r *borrowerRepository) GetByMemberNo(ctx context.Context, memberNo string) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := r.db.WithContext(ctx).Where("member_no = ?", memberNo).First(&borrower).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Borrower", 0)
		}
		return nil, models.NewInternalError(err)
	}
	return &borrower, nil
}

func (r *borrowerRepository) List(ctx context.Context, limit, offset int) ([]*models.Borrower, error) {
	var borrowers []*models.Borrower
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&borrowers).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return borrowers, nil
}

func (r *borrowerRepository) Update(ctx context.Context, borrower *models.Borrower) error {
	if err := r.db.WithContext(ctx).Save(borrower).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateBorrower(ctx, borrower.ID)
	return nil
}

func (r *borrowerRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Borrower{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Borrower", id)
	}
	cache.InvalidateBorrower(ctx, id)
	return nil
}
