package usecase

import (
	"context"
	"net/http"
	"strings"

	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// 公開カタログ（カテゴリ/商品/お知らせ）
type CatalogUsecase struct {
	categoryRepo repo.CategoryRepository
	productRepo  repo.ProductRepository
	newsRepo     repo.NewsRepository

	// 同時に来たカテゴリ一覧の読み込みを1回にまとめる
	group singleflight.Group
}

// DI
func NewCatalogUsecase(
	categoryRepo repo.CategoryRepository,
	productRepo repo.ProductRepository,
	newsRepo repo.NewsRepository,
) *CatalogUsecase {
	return &CatalogUsecase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		newsRepo:     newsRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type NewsListOutput struct {
	Items []model.News `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	v, err, _ := u.group.Do("categories", func() (any, error) {
		return u.categoryRepo.List(ctx)
	})
	if err != nil {
		return []model.Category{}, dbError(err)
	}
	return v.([]model.Category), nil
}

func (u *CatalogUsecase) GetCategory(ctx context.Context, id uuid.UUID) (model.Category, error) {
	if id == uuid.Nil {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid category id")
	}
	c, err := u.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, dbError(err)
	}
	return c, nil
}

func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	if id == uuid.Nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	p, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return p, nil
}

func (u *CatalogUsecase) ListNews(ctx context.Context, page int, limit int) (NewsListOutput, error) {
	if page < 1 {
		return NewsListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return NewsListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.newsRepo.List(ctx, page, limit)
	if err != nil {
		return NewsListOutput{}, dbError(err)
	}
	return NewsListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *CatalogUsecase) GetNews(ctx context.Context, id uuid.UUID) (model.News, error) {
	if id == uuid.Nil {
		return model.News{}, NewHTTPError(http.StatusBadRequest, "invalid news id")
	}
	n, err := u.newsRepo.FindByID(ctx, id)
	if err != nil {
		return model.News{}, dbError(err)
	}
	return n, nil
}
