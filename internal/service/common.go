package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventPublisher pushes realtime events to connected terminals.
// *websocket.Hub satisfies it.
type EventPublisher interface {
	Publish(event string, data interface{})
}

func publish(p EventPublisher, event string, data interface{}) {
	if p != nil {
		p.Publish(event, data)
	}
}

func parseUserID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}

func parseID(id, what string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s id", what)
	}
	return parsed, nil
}

// lookupErr maps gorm's not-found to a typed not-found error and wraps
// anything else as a database failure.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", what)
	}
	return fmt.Errorf("database error: %w", err)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID, action, entityID, entityName string, details interface{}) error {
	var payload string
	if details != nil {
		b, _ := json.Marshal(details)
		payload = string(b)
	}
	entry := &model.AuditLog{
		UserID:     parseUserID(userID),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
