package repository

import (
	"context"
	"errors"

	"biblio/internal/cache"
	"biblio/internal/models"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when a stock adjustment would go negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// BookRepository defines persistence operations for books.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	List(ctx context.Context, limit, offset int) ([]*models.Book, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uint) error
	AdjustStock(ctx context.Context, id uint, delta int) error
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	key := cache.BookKey(id)

	err := cache.CacheAside(ctx, key, &book, cache.BookTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Category").
			Preload("Supplier").
			First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Book", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context, limit, offset int) ([]*models.Book, error) {
	var books []*models.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("title ASC").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return books, nil
}

func (r *bookRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Book, error) {
	var books []*models.Book
	like := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("title ILIKE ? OR author ILIKE ? OR isbn ILIKE ?", like, like, like).
		Order("title ASC").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return books, nil
}

func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateBook(ctx, book.ID)
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Book", id)
	}
	cache.InvalidateBook(ctx, id)
	return nil
}

// AdjustStock changes stock by delta atomically and refuses to go below
// zero. A zero-row update on a negative delta means there was not enough
// stock left.
func (r *bookRepository) AdjustStock(ctx context.Context, id uint, delta int) error {
	q := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return models.NewNotFoundError("Book", id)
		}
		return ErrInsufficientStock
	}
	cache.InvalidateBook(ctx, id)
	return nil
}
