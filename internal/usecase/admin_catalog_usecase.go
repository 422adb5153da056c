package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 受け付ける画像形式（中身から判定）
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type AdminCatalogUsecase struct {
	categoryRepo repo.CategoryRepository
	productRepo  repo.ProductRepository
	newsRepo     repo.NewsRepository
	auditRepo    repo.AuditLogRepository
	images       repo.ImageStore
	ids          IDGenerator
	clock        Clock
	logger       *slog.Logger
	maxUpload    int64
}

// DI
func NewAdminCatalogUsecase(
	categoryRepo repo.CategoryRepository,
	productRepo repo.ProductRepository,
	newsRepo repo.NewsRepository,
	auditRepo repo.AuditLogRepository,
	images repo.ImageStore,
	ids IDGenerator,
	clock Clock,
	logger *slog.Logger,
	maxUpload int64,
) *AdminCatalogUsecase {
	return &AdminCatalogUsecase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		newsRepo:     newsRepo,
		auditRepo:    auditRepo,
		images:       images,
		ids:          ids,
		clock:        clock,
		logger:       logger,
		maxUpload:    maxUpload,
	}
}

// =====================
// 画像
// =====================

type ImageUploadOutput struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
}

// 画像を保存してキーと公開URLを返す。拡張子やContent-Typeはクライアントを信用しない。
func (u *AdminCatalogUsecase) UploadImage(ctx context.Context, adminUserID uuid.UUID, bucket string, r io.Reader) (ImageUploadOutput, error) {
	if adminUserID == uuid.Nil {
		return ImageUploadOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if bucket != repo.BucketProducts && bucket != repo.BucketNews {
		return ImageUploadOutput{}, NewHTTPError(http.StatusBadRequest, "invalid bucket")
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxUpload+1))
	if err != nil {
		return ImageUploadOutput{}, NewHTTPError(http.StatusBadRequest, "failed to read upload")
	}
	if len(data) == 0 {
		return ImageUploadOutput{}, NewHTTPError(http.StatusBadRequest, "empty file")
	}
	if int64(len(data)) > u.maxUpload {
		return ImageUploadOutput{}, NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return ImageUploadOutput{}, NewHTTPError(http.StatusUnsupportedMediaType, "unsupported image type")
	}

	id, err := u.ids.NewID()
	if err != nil {
		return ImageUploadOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to generate id")
	}
	key := id.String() + ext

	if err := u.images.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		u.logger.ErrorContext(ctx, "image upload failed", slog.String("bucket", bucket), slog.Any("error", err))
		return ImageUploadOutput{}, NewHTTPError(http.StatusBadGateway, "storage error")
	}

	return ImageUploadOutput{
		Bucket: bucket,
		Key:    key,
		URL:    u.images.PublicURL(bucket, key),
	}, nil
}

// 持ち主が消えた/差し替わった画像を消す。失敗はログのみ。
func (u *AdminCatalogUsecase) dropImage(ctx context.Context, bucket string, key string) {
	if key == "" {
		return
	}
	if err := u.images.Delete(ctx, bucket, key); err != nil {
		u.logger.WarnContext(ctx, "image delete failed",
			slog.String("bucket", bucket),
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

func (u *AdminCatalogUsecase) imageURL(bucket string, key string) string {
	if key == "" {
		return ""
	}
	return u.images.PublicURL(bucket, key)
}

// =====================
// カテゴリ
// =====================

type CategoryInput struct {
	Name        string
	Description string
	ImageKey    string
}

func (u *AdminCatalogUsecase) CreateCategory(ctx context.Context, adminUserID uuid.UUID, in CategoryInput) (model.Category, error) {
	if adminUserID == uuid.Nil {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	id, err := u.ids.NewID()
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "failed to generate id")
	}
	now := u.clock.Now()
	c := model.Category{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ImageKey:    in.ImageKey,
		Image:       u.imageURL(repo.BucketProducts, in.ImageKey),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.categoryRepo.Create(ctx, c); err != nil {
		return model.Category{}, dbError(err)
	}

	u.audit(ctx, adminUserID, model.AuditActionCreate, model.AuditResourceCategory, c.ID, nil, c)
	return c, nil
}

func (u *AdminCatalogUsecase) UpdateCategory(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID, in CategoryInput) (model.Category, error) {
	if adminUserID == uuid.Nil {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	before, err := u.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, dbError(err)
	}

	after := before
	after.Name = name
	after.Description = strings.TrimSpace(in.Description)
	if in.ImageKey != "" {
		after.ImageKey = in.ImageKey
		after.Image = u.imageURL(repo.BucketProducts, in.ImageKey)
	}
	after.UpdatedAt = u.clock.Now()

	if err := u.categoryRepo.Update(ctx, after); err != nil {
		return model.Category{}, dbError(err)
	}
	if before.ImageKey != after.ImageKey {
		u.dropImage(ctx, repo.BucketProducts, before.ImageKey)
	}

	u.audit(ctx, adminUserID, model.AuditActionUpdate, model.AuditResourceCategory, id, before, after)
	return after, nil
}

// 商品が残っているカテゴリは消せない
func (u *AdminCatalogUsecase) DeleteCategory(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID) error {
	if adminUserID == uuid.Nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	before, err := u.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return dbError(err)
	}

	n, err := u.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return dbError(err)
	}
	if n > 0 {
		return NewHTTPError(http.StatusConflict, "category has products")
	}

	if err := u.categoryRepo.Delete(ctx, id); err != nil {
		return dbError(err)
	}
	u.dropImage(ctx, repo.BucketProducts, before.ImageKey)

	u.audit(ctx, adminUserID, model.AuditActionDelete, model.AuditResourceCategory, id, before, nil)
	return nil
}

// =====================
// 商品
// =====================

type ProductInput struct {
	CategoryID    uuid.UUID
	Name          string
	Description   string
	Details       string
	ArticleNumber string
	Price         decimal.Decimal
	ImageKey      string
	InStock       bool
}

func (u *AdminCatalogUsecase) validateProduct(ctx context.Context, in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	// numeric(10,2)に収まるか
	if in.Price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return NewHTTPError(http.StatusBadRequest, "price too large")
	}
	if in.CategoryID == uuid.Nil {
		return NewHTTPError(http.StatusBadRequest, "category_id required")
	}
	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "category not found")
		}
		return dbError(err)
	}
	return nil
}

func (u *AdminCatalogUsecase) CreateProduct(ctx context.Context, adminUserID uuid.UUID, in ProductInput) (model.Product, error) {
	if adminUserID == uuid.Nil {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validateProduct(ctx, in); err != nil {
		return model.Product{}, err
	}

	id, err := u.ids.NewID()
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "failed to generate id")
	}
	now := u.clock.Now()
	p := model.Product{
		ID:            id,
		CategoryID:    in.CategoryID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Details:       in.Details,
		ArticleNumber: strings.TrimSpace(in.ArticleNumber),
		Price:         in.Price.Round(2),
		ImageKey:      in.ImageKey,
		Image:         u.imageURL(repo.BucketProducts, in.ImageKey),
		InStock:       in.InStock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.productRepo.Create(ctx, p); err != nil {
		return model.Product{}, dbError(err)
	}

	u.audit(ctx, adminUserID, model.AuditActionCreate, model.AuditResourceProduct, p.ID, nil, p)
	return p, nil
}

func (u *AdminCatalogUsecase) UpdateProduct(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID, in ProductInput) (model.Product, error) {
	if adminUserID == uuid.Nil {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validateProduct(ctx, in); err != nil {
		return model.Product{}, err
	}

	before, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return model.Product{}, dbError(err)
	}

	after := before
	after.CategoryID = in.CategoryID
	after.Name = strings.TrimSpace(in.Name)
	after.Description = in.Description
	after.Details = in.Details
	after.ArticleNumber = strings.TrimSpace(in.ArticleNumber)
	after.Price = in.Price.Round(2)
	after.InStock = in.InStock
	if in.ImageKey != "" {
		after.ImageKey = in.ImageKey
		after.Image = u.imageURL(repo.BucketProducts, in.ImageKey)
	}
	after.UpdatedAt = u.clock.Now()

	if err := u.productRepo.Update(ctx, after); err != nil {
		return model.Product{}, dbError(err)
	}
	if before.ImageKey != after.ImageKey {
		u.dropImage(ctx, repo.BucketProducts, before.ImageKey)
	}

	u.audit(ctx, adminUserID, model.AuditActionUpdate, model.AuditResourceProduct, id, before, after)
	return after, nil
}

// 論理削除。注文明細は商品名と価格を持っているので影響しない。
func (u *AdminCatalogUsecase) DeleteProduct(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID) error {
	if adminUserID == uuid.Nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	before, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return dbError(err)
	}
	if err := u.productRepo.SoftDelete(ctx, id); err != nil {
		return dbError(err)
	}
	u.dropImage(ctx, repo.BucketProducts, before.ImageKey)

	u.audit(ctx, adminUserID, model.AuditActionDelete, model.AuditResourceProduct, id, before, nil)
	return nil
}

// =====================
// お知らせ
// =====================

type NewsInput struct {
	Title       string
	Summary     string
	Content     string
	ImageKey    string
	PublishedAt *time.Time
}

func validateNews(in NewsInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return NewHTTPError(http.StatusBadRequest, "title required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return NewHTTPError(http.StatusBadRequest, "content required")
	}
	return nil
}

func (u *AdminCatalogUsecase) CreateNews(ctx context.Context, adminUserID uuid.UUID, in NewsInput) (model.News, error) {
	if adminUserID == uuid.Nil {
		return model.News{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateNews(in); err != nil {
		return model.News{}, err
	}

	id, err := u.ids.NewID()
	if err != nil {
		return model.News{}, NewHTTPError(http.StatusInternalServerError, "failed to generate id")
	}
	now := u.clock.Now()
	published := now
	if in.PublishedAt != nil {
		published = *in.PublishedAt
	}

	n := model.News{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Summary:     strings.TrimSpace(in.Summary),
		Content:     in.Content,
		ImageKey:    in.ImageKey,
		Image:       u.imageURL(repo.BucketNews, in.ImageKey),
		PublishedAt: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.newsRepo.Create(ctx, n); err != nil {
		return model.News{}, dbError(err)
	}

	u.audit(ctx, adminUserID, model.AuditActionCreate, model.AuditResourceNews, n.ID, nil, n)
	return n, nil
}

func (u *AdminCatalogUsecase) UpdateNews(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID, in NewsInput) (model.News, error) {
	if adminUserID == uuid.Nil {
		return model.News{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateNews(in); err != nil {
		return model.News{}, err
	}

	before, err := u.newsRepo.FindByID(ctx, id)
	if err != nil {
		return model.News{}, dbError(err)
	}

	after := before
	after.Title = strings.TrimSpace(in.Title)
	after.Summary = strings.TrimSpace(in.Summary)
	after.Content = in.Content
	if in.PublishedAt != nil {
		after.PublishedAt = *in.PublishedAt
	}
	if in.ImageKey != "" {
		after.ImageKey = in.ImageKey
		after.Image = u.imageURL(repo.BucketNews, in.ImageKey)
	}
	after.UpdatedAt = u.clock.Now()

	if err := u.newsRepo.Update(ctx, after); err != nil {
		return model.News{}, dbError(err)
	}
	if before.ImageKey != after.ImageKey {
		u.dropImage(ctx, repo.BucketNews, before.ImageKey)
	}

	u.audit(ctx, adminUserID, model.AuditActionUpdate, model.AuditResourceNews, id, before, after)
	return after, nil
}

func (u *AdminCatalogUsecase) DeleteNews(ctx context.Context, adminUserID uuid.UUID, id uuid.UUID) error {
	if adminUserID == uuid.Nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	before, err := u.newsRepo.FindByID(ctx, id)
	if err != nil {
		return dbError(err)
	}
	if err := u.newsRepo.Delete(ctx, id); err != nil {
		return dbError(err)
	}
	u.dropImage(ctx, repo.BucketNews, before.ImageKey)

	u.audit(ctx, adminUserID, model.AuditActionDelete, model.AuditResourceNews, id, before, nil)
	return nil
}

// 監査ログ。本体の更新は済んでいるので失敗はログのみ。
func (u *AdminCatalogUsecase) audit(ctx context.Context, actor uuid.UUID, action model.AuditAction, resource model.AuditResourceType, resourceID uuid.UUID, before any, after any) {
	logID, err := u.ids.NewID()
	if err != nil {
		u.logger.WarnContext(ctx, "audit id generation failed", slog.Any("error", err))
		return
	}

	entry := model.AuditLog{
		ID:           logID,
		ActorUserID:  actor,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID.String(),
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    u.clock.Now(),
	}
	if err := u.auditRepo.Create(ctx, entry); err != nil {
		u.logger.WarnContext(ctx, "audit log write failed",
			slog.String("action", string(action)),
			slog.String("resource_id", entry.ResourceID),
			slog.Any("error", err),
		)
	}
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
