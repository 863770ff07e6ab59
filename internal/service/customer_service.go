package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"gorm.io/gorm"
)

type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

type CustomerService interface {
	List(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
	Get(ctx context.Context, id string) (CustomerResponse, error)
	FindByPhone(ctx context.Context, phone string) (CustomerResponse, error)
	Create(ctx context.Context, userID string, req CustomerRequest) (CustomerResponse, error)
}

type customerService struct {
	repo      repository.CustomerRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCustomerService(repo repository.CustomerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func mapCustomer(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(timeLayout),
	}
}

// normalizeCustomer trims the request and validates the optional email.
func normalizeCustomer(req CustomerRequest) (CustomerRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" {
		return req, apperror.Validation("customer name is required")
	}
	if req.Phone == "" {
		return req, apperror.Validation("customer phone is required")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return req, apperror.Validation("invalid customer email")
		}
	}
	return req, nil
}

func (s *customerService) List(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, mapCustomer(&customers[i]))
	}
	return res, total, nil
}

func (s *customerService) Get(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := parseID(id, "customer")
	if err != nil {
		return CustomerResponse{}, err
	}
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return CustomerResponse{}, lookupErr(err, "customer")
	}
	return mapCustomer(customer), nil
}

func (s *customerService) FindByPhone(ctx context.Context, phone string) (CustomerResponse, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return CustomerResponse{}, apperror.Validation("phone is required")
	}
	customer, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return CustomerResponse{}, lookupErr(err, "customer")
	}
	return mapCustomer(customer), nil
}

func (s *customerService) Create(ctx context.Context, userID string, req CustomerRequest) (CustomerResponse, error) {
	req, err := normalizeCustomer(req)
	if err != nil {
		return CustomerResponse{}, err
	}

	var customer model.Customer
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByPhone(txCtx, req.Phone); err == nil {
			return apperror.Conflict("a customer with phone %s already exists", req.Phone)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return lookupErr(err, "customer")
		}

		customer = model.Customer{Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address}
		if err := s.repo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil)
	})
	if err != nil {
		return CustomerResponse{}, err
	}
	return mapCustomer(&customer), nil
}
