package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"
	"confectionery/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminCatalogFixture struct {
	uc         *usecase.AdminCatalogUsecase
	categories *CategoryRepoMock
	products   *ProductRepoMock
	news       *NewsRepoMock
	audit      *AuditRepoMock
	images     *ImageStoreMock
}

func newAdminCatalogFixture(maxUpload int64) *adminCatalogFixture {
	f := &adminCatalogFixture{
		categories: new(CategoryRepoMock),
		products:   new(ProductRepoMock),
		news:       new(NewsRepoMock),
		audit:      new(AuditRepoMock),
		images:     new(ImageStoreMock),
	}
	f.uc = usecase.NewAdminCatalogUsecase(
		f.categories, f.products, f.news, f.audit, f.images,
		&seqIDs{}, fixedClock{t: testNow}, discardLogger(), maxUpload,
	)
	return f
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// =====================
// UploadImage
// =====================

func TestAdminCatalogUsecase_UploadImage_SniffsContent(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)

	f.images.On("Put", mock.Anything, repo.BucketProducts, seqID(1).String()+".png", int64(len(pngHeader)), "image/png").Return(nil).Once()

	out, err := f.uc.UploadImage(context.Background(), admin, repo.BucketProducts, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, seqID(1).String()+".png", out.Key)
	assert.Equal(t, "http://media.test/products/"+out.Key, out.URL)

	f.images.AssertExpectations(t)
}

func TestAdminCatalogUsecase_UploadImage_Rejects(t *testing.T) {
	f := newAdminCatalogFixture(16)
	ctx := context.Background()

	_, err := f.uc.UploadImage(ctx, admin, "avatars", bytes.NewReader(pngHeader))
	assertErrContains(t, err, "invalid bucket")

	_, err = f.uc.UploadImage(ctx, admin, repo.BucketNews, strings.NewReader(""))
	assertErrContains(t, err, "empty file")

	_, err = f.uc.UploadImage(ctx, admin, repo.BucketNews, bytes.NewReader(pngHeader))
	assertStatus(t, err, http.StatusRequestEntityTooLarge)

	_, err = f.uc.UploadImage(ctx, admin, repo.BucketNews, strings.NewReader("<svg></svg>"))
	assertStatus(t, err, http.StatusUnsupportedMediaType)

	_, err = f.uc.UploadImage(ctx, uuid.Nil, repo.BucketNews, strings.NewReader("x"))
	assertErrContains(t, err, "unauthorized")

	f.images.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// Category
// =====================

func TestAdminCatalogUsecase_CreateCategory(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)

	f.categories.On("Create", mock.Anything, mock.MatchedBy(func(c model.Category) bool {
		return c.ID == seqID(1) && c.Name == "Cakes" && c.Image == "http://media.test/products/k.png"
	})).Return(nil).Once()
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionCreate && l.ResourceType == model.AuditResourceCategory &&
			l.ResourceID == seqID(1).String() && l.BeforeJSON == "" && strings.Contains(l.AfterJSON, `"name":"Cakes"`)
	})).Return(nil).Once()

	c, err := f.uc.CreateCategory(context.Background(), admin, usecase.CategoryInput{Name: " Cakes ", ImageKey: "k.png"})
	require.NoError(t, err)
	assert.Equal(t, "Cakes", c.Name)

	f.categories.AssertExpectations(t)
	f.audit.AssertExpectations(t)

	_, err = f.uc.CreateCategory(context.Background(), admin, usecase.CategoryInput{Name: "  "})
	assertErrContains(t, err, "name required")
}

func TestAdminCatalogUsecase_DeleteCategory_WithProducts(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	id := uuid.New()

	f.categories.On("FindByID", mock.Anything, id).Return(model.Category{ID: id}, nil)
	f.products.On("CountByCategory", mock.Anything, id).Return(int64(3), nil)

	err := f.uc.DeleteCategory(context.Background(), admin, id)
	assertStatus(t, err, http.StatusConflict)
	f.categories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAdminCatalogUsecase_DeleteCategory_DropsImage(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	id := uuid.New()

	f.categories.On("FindByID", mock.Anything, id).Return(model.Category{ID: id, ImageKey: "old.png"}, nil)
	f.products.On("CountByCategory", mock.Anything, id).Return(int64(0), nil)
	f.categories.On("Delete", mock.Anything, id).Return(nil).Once()
	f.images.On("Delete", mock.Anything, repo.BucketProducts, "old.png").Return(nil).Once()
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.uc.DeleteCategory(context.Background(), admin, id))
	f.images.AssertExpectations(t)
}

// =====================
// Product
// =====================

func TestAdminCatalogUsecase_CreateProduct_Validation(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	ctx := context.Background()
	missingCategory := uuid.New()

	f.categories.On("FindByID", mock.Anything, missingCategory).Return(model.Category{}, repo.ErrNotFound)

	_, err := f.uc.CreateProduct(ctx, admin, usecase.ProductInput{Name: "", CategoryID: missingCategory})
	assertErrContains(t, err, "name required")

	_, err = f.uc.CreateProduct(ctx, admin, usecase.ProductInput{Name: "A", Price: decimal.NewFromInt(-1), CategoryID: missingCategory})
	assertErrContains(t, err, "price must be >= 0")

	_, err = f.uc.CreateProduct(ctx, admin, usecase.ProductInput{Name: "A", Price: decimal.NewFromInt(100000000), CategoryID: missingCategory})
	assertErrContains(t, err, "price too large")

	_, err = f.uc.CreateProduct(ctx, admin, usecase.ProductInput{Name: "A", Price: decimal.NewFromInt(1), CategoryID: missingCategory})
	assertErrContains(t, err, "category not found")

	f.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminCatalogUsecase_UpdateProduct_ReplacesImage(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	id := uuid.New()
	categoryID := uuid.New()

	before := model.Product{ID: id, CategoryID: categoryID, Name: "Old", Price: decimal.NewFromInt(10), ImageKey: "old.png", Image: "http://media.test/products/old.png"}
	f.categories.On("FindByID", mock.Anything, categoryID).Return(model.Category{ID: categoryID}, nil)
	f.products.On("FindByID", mock.Anything, id).Return(before, nil)
	f.products.On("Update", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Name == "New" && p.ImageKey == "new.png" && p.Price.Equal(decimal.RequireFromString("12.35"))
	})).Return(nil).Once()
	f.images.On("Delete", mock.Anything, repo.BucketProducts, "old.png").Return(errors.New("gone")).Once()
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	p, err := f.uc.UpdateProduct(context.Background(), admin, id, usecase.ProductInput{
		CategoryID: categoryID, Name: "New", Price: decimal.RequireFromString("12.345"), ImageKey: "new.png", InStock: true,
	})
	// 画像削除の失敗は更新を失敗にしない
	require.NoError(t, err)
	assert.Equal(t, "http://media.test/products/new.png", p.Image)

	f.products.AssertExpectations(t)
	f.images.AssertExpectations(t)
}

func TestAdminCatalogUsecase_DeleteProduct_SoftDelete(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	id := uuid.New()

	f.products.On("FindByID", mock.Anything, id).Return(model.Product{ID: id}, nil)
	f.products.On("SoftDelete", mock.Anything, id).Return(nil).Once()
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDelete && l.AfterJSON == ""
	})).Return(nil).Once()

	require.NoError(t, f.uc.DeleteProduct(context.Background(), admin, id))
	f.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertExpectations(t)
}

// =====================
// News
// =====================

func TestAdminCatalogUsecase_NewsLifecycle(t *testing.T) {
	f := newAdminCatalogFixture(1 << 20)
	ctx := context.Background()

	f.news.On("Create", mock.Anything, mock.MatchedBy(func(n model.News) bool {
		return n.Title == "Spring menu" && n.PublishedAt.Equal(testNow) && n.Image == "http://media.test/news/n.webp"
	})).Return(nil).Once()
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	n, err := f.uc.CreateNews(ctx, admin, usecase.NewsInput{Title: "Spring menu", Content: "New cakes", ImageKey: "n.webp"})
	require.NoError(t, err)

	_, err = f.uc.CreateNews(ctx, admin, usecase.NewsInput{Title: "x"})
	assertErrContains(t, err, "content required")

	f.news.On("FindByID", mock.Anything, n.ID).Return(n, nil)
	f.news.On("Delete", mock.Anything, n.ID).Return(nil).Once()
	f.images.On("Delete", mock.Anything, repo.BucketNews, "n.webp").Return(nil).Once()

	require.NoError(t, f.uc.DeleteNews(ctx, admin, n.ID))

	f.news.AssertExpectations(t)
	f.images.AssertExpectations(t)
}
