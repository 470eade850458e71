package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/internal/repository"
	"github.com/utafrali/EcommerceGo/catalog/internal/service"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/httputil"
	"github.com/utafrali/EcommerceGo/catalog/pkg/pagination"
	"github.com/utafrali/EcommerceGo/catalog/pkg/validator"
)

// ProductService is the part of service.ProductService the handlers use.
type ProductService interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.ProductSummary, int, error)
	CreateProduct(ctx context.Context, in service.CreateProductInput) (*service.MutationResult, error)
	UpdateProduct(ctx context.Context, id string, in service.UpdateProductInput) (*service.MutationResult, error)
	DeleteProduct(ctx context.Context, id string, version int) error
}

// Limits bounds the size of mutation requests.
type Limits struct {
	MaxRequestBytes int64
	MaxFileBytes    int64
	MaxFiles        int
}

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service ProductService
	limits  Limits
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc ProductService, limits Limits, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, limits: limits, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON payload of a create request.
type CreateProductRequest struct {
	Name        string                `json:"name" validate:"required,min=1,max=255"`
	Description string                `json:"description" validate:"max=5000"`
	CategoryID  string                `json:"categoryId" validate:"required,uuid"`
	Status      *domain.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Variants    *domain.VariantOps    `json:"variants,omitempty"`
	Images      *domain.ImageOps      `json:"imagesOps,omitempty"`
}

// UpdateProductRequest is the JSON payload of a patch request. Version is the
// product version the client last read.
type UpdateProductRequest struct {
	Version *int `json:"_version" validate:"required,gte=1"`
	domain.ProductPatch
	Variants *domain.VariantOps `json:"variants,omitempty"`
	Images   *domain.ImageOps   `json:"imagesOps,omitempty"`
}

// --- Handlers ---

// CreateProduct handles POST /api/v1/products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	uploads, err := h.readMutation(r, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.CreateProduct(r.Context(), service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Status:      req.Status,
		Variants:    req.Variants,
		Images:      req.Images,
		Uploads:     uploads,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: res})
}

// UpdateProduct handles PATCH /api/v1/products/{id}.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	uploads, err := h.readMutation(r, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.UpdateProduct(r.Context(), id, service.UpdateProductInput{
		Version:  *req.Version,
		Patch:    req.ProductPatch,
		Variants: req.Variants,
		Images:   req.Images,
		Uploads:  uploads,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/products?page=&per_page=&category_id=&status=.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}
	filter := repository.ProductFilter{Params: params}

	if v := r.URL.Query().Get("category_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "category_id must be a valid UUID"},
			})
			return
		}
		filter.CategoryID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.ProductStatus(v)
		if !domain.IsValidStatus(status) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "status must be one of: DRAFT, PUBLISHED, ARCHIVED"},
			})
			return
		}
		filter.Status = &status
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(products, total, filter.Params))
}

// DeleteProduct handles DELETE /api/v1/products/{id}?version=N.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	version, err := strconv.Atoi(r.URL.Query().Get("version"))
	if err != nil || version < 1 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "version must be a positive integer"},
		})
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id, version); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Request parsing ---

// readMutation decodes a mutation request into dst. Multipart requests carry
// the JSON document in the "payload" part and the upload batch in the
// "images" parts, in order; plain JSON requests carry no uploads.
func (h *ProductHandler) readMutation(r *http.Request, dst any) ([]domain.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := validator.DecodeAndValidate(r.Body, dst); err != nil {
			return nil, bodyError(err)
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(h.limits.MaxFileBytes); err != nil {
		return nil, apperrors.Unprocessable("failed to parse multipart form: " + err.Error())
	}

	payload := r.MultipartForm.Value["payload"]
	if len(payload) != 1 {
		return nil, apperrors.Unprocessable("multipart request needs exactly one payload part")
	}
	if err := validator.UnmarshalAndValidate([]byte(payload[0]), dst); err != nil {
		return nil, bodyError(err)
	}

	files := r.MultipartForm.File["images"]
	if h.limits.MaxFiles > 0 && len(files) > h.limits.MaxFiles {
		return nil, apperrors.Unprocessable("too many files in the upload batch")
	}
	uploads := make([]domain.Upload, 0, len(files))
	for i, fh := range files {
		u, err := h.upload(fh)
		if err != nil {
			return nil, apperrors.Unprocessable("images[" + strconv.Itoa(i) + "]: " + err.Error())
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func (h *ProductHandler) upload(fh *multipart.FileHeader) (domain.Upload, error) {
	contentType, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if !slices.Contains(allowedImageTypes, contentType) {
		return domain.Upload{}, errors.New("content type " + strconv.Quote(contentType) + " is not an accepted image type")
	}
	if fh.Size <= 0 {
		return domain.Upload{}, errors.New("file is empty")
	}
	if h.limits.MaxFileBytes > 0 && fh.Size > h.limits.MaxFileBytes {
		return domain.Upload{}, errors.New("file exceeds " + strconv.FormatInt(h.limits.MaxFileBytes, 10) + " bytes")
	}
	return domain.Upload{
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}, nil
}

// bodyError keeps validation failures and reports anything else as a
// malformed body.
func bodyError(err error) error {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return apperrors.InvalidInput("invalid request body: " + err.Error())
}
