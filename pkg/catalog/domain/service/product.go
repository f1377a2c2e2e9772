package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"shop/pkg/catalog/domain/model"
)

// ValidationError carries a caller-facing message for a malformed request
// field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validation(message string) error { return &ValidationError{Message: message} }

type ProductParams struct {
	Name               string
	Description        string
	Price              *float64
	StockQuantity      *int
	Category           string
	ImageURL           *string
	DiscountPercentage *float64
}

type UpdateProductParams struct {
	Name               *string
	Description        *string
	Price              *float64
	StockQuantity      *int
	Category           *string
	ImageURL           *string
	DiscountPercentage *float64
}

type BulkResult struct {
	Created []model.Product
	Errors  []string
}

type ProductService interface {
	CreateProduct(ctx context.Context, params ProductParams) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (*model.Product, error)
	SetStock(ctx context.Context, id int64, quantity *int) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ListFilter) ([]model.Product, error)
	BulkCreate(ctx context.Context, products []ProductParams) (*BulkResult, error)
}

func NewProductService(repo model.ProductRepository) ProductService {
	return &productService{repo: repo, now: time.Now}
}

type productService struct {
	repo model.ProductRepository
	now  func() time.Time
}

func (s *productService) CreateProduct(ctx context.Context, params ProductParams) (*model.Product, error) {
	product, err := s.buildProduct(params)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) buildProduct(params ProductParams) (*model.Product, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, validation("Product name is required and cannot be empty")
	}
	if params.Price == nil || *params.Price < 0 {
		return nil, validation("Price must be a positive number")
	}
	stock := 0
	if params.StockQuantity != nil {
		if *params.StockQuantity < 0 {
			return nil, validation("Stock quantity must be a non-negative number")
		}
		stock = *params.StockQuantity
	}
	discount := 0.0
	if params.DiscountPercentage != nil {
		if *params.DiscountPercentage < 0 || *params.DiscountPercentage > 100 {
			return nil, validation("Discount percentage must be between 0 and 100")
		}
		discount = *params.DiscountPercentage
	}
	category := params.Category
	if category == "" {
		category = "general"
	}

	now := s.now().UTC()
	return &model.Product{
		Name:               name,
		Description:        params.Description,
		Price:              *params.Price,
		StockQuantity:      stock,
		Category:           category,
		ImageURL:           params.ImageURL,
		DiscountPercentage: discount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (*model.Product, error) {
	product, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Price != nil {
		if *params.Price < 0 {
			return nil, validation("Price must be a positive number")
		}
		product.Price = *params.Price
	}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, validation("Product name cannot be empty")
		}
		product.Name = name
	}
	if params.Description != nil {
		product.Description = *params.Description
	}
	if params.StockQuantity != nil {
		if *params.StockQuantity < 0 {
			return nil, validation("Stock quantity must be a non-negative number")
		}
		product.StockQuantity = *params.StockQuantity
	}
	if params.Category != nil {
		product.Category = *params.Category
	}
	if params.DiscountPercentage != nil {
		if *params.DiscountPercentage < 0 || *params.DiscountPercentage > 100 {
			return nil, validation("Discount percentage must be between 0 and 100")
		}
		product.DiscountPercentage = *params.DiscountPercentage
	}
	if params.ImageURL != nil {
		product.ImageURL = params.ImageURL
	}

	product.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// SetStock writes an absolute stock level. The orchestrator computes the new
// value itself, so this is a plain set, not a delta.
func (s *productService) SetStock(ctx context.Context, id int64, quantity *int) (*model.Product, error) {
	if quantity == nil {
		return nil, validation("Quantity is required")
	}
	if *quantity < 0 {
		return nil, validation("Stock quantity must be a non-negative number")
	}

	product, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	product.StockQuantity = *quantity
	product.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.Find(ctx, id)
}

func (s *productService) ListProducts(ctx context.Context, filter model.ListFilter) ([]model.Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *productService) BulkCreate(ctx context.Context, products []ProductParams) (*BulkResult, error) {
	if len(products) == 0 {
		return nil, validation("No products provided")
	}

	result := &BulkResult{Created: []model.Product{}}
	for i, params := range products {
		product, err := s.buildProduct(params)
		if err != nil {
			result.Errors = append(result.Errors, bulkError(i, err))
			continue
		}
		if err := s.repo.Create(ctx, product); err != nil {
			result.Errors = append(result.Errors, bulkError(i, err))
			continue
		}
		result.Created = append(result.Created, *product)
	}
	return result, nil
}

func bulkError(index int, err error) string {
	return "Product " + strconv.Itoa(index+1) + ": " + err.Error()
}
