package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type CategoryService interface {
	List(ctx context.Context) ([]CategoryResponse, error)
	Create(ctx context.Context, userID string, req CategoryRequest) (CategoryResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCategoryService(repo repository.CategoryRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CategoryService {
	return &categoryService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func mapCategory(c *model.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(timeLayout),
	}
}

func (s *categoryService) List(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		res = append(res, mapCategory(&categories[i]))
	}
	return res, nil
}

func (s *categoryService) Create(ctx context.Context, userID string, req CategoryRequest) (CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return CategoryResponse{}, apperror.Validation("category name is required")
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return CategoryResponse{}, apperror.Conflict("category %q already exists", name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return CategoryResponse{}, lookupErr(err, "category")
	}

	category := model.Category{Name: name, Description: strings.TrimSpace(req.Description)}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionCreateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}
	return mapCategory(&category), nil
}

func (s *categoryService) Delete(ctx context.Context, userID, id string) error {
	categoryID, err := parseID(id, "category")
	if err != nil {
		return err
	}
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return lookupErr(err, "category")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.repo.CountProducts(txCtx, categoryID)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return apperror.Conflict("category is used by %d products", count)
		}
		if err := s.repo.Delete(txCtx, categoryID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionDeleteCategory, category.ID.String(), category.Name, nil)
	})
}
