package rfid

import (
	"context"
	"fmt"

	"github.com/latchwork/latchwork-core/internal/infrastructure/logging"
)

// Engine applies the tag access policy on top of the repository.
//
// Policy: every presentation is recorded (counter + timestamp) no matter the
// outcome; unknown tags are auto-registered untrusted and denied; access is
// granted exactly when the stored valid flag is set.
type Engine struct {
	tags   TagRepository
	logger *logging.Logger
}

// NewEngine creates a tag policy engine.
func NewEngine(tags TagRepository, logger *logging.Logger) *Engine {
	return &Engine{
		tags:   tags,
		logger: logger.With("component", "rfid"),
	}
}

// Scan processes a tag presentation and decides access.
func (e *Engine) Scan(ctx context.Context, rfid string) (*ScanResult, error) {
	if rfid == "" {
		return nil, fmt.Errorf("%w: empty rfid", ErrValidation)
	}

	tag, created, err := e.tags.Scan(ctx, rfid)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Tag:        tag,
		Granted:    tag.Valid,
		Registered: created,
	}

	switch {
	case created:
		e.logger.Info("unknown tag registered", "rfid", rfid)
	case result.Granted:
		e.logger.Info("tag granted", "rfid", rfid, "user_id", tag.UserID)
	default:
		e.logger.Warn("tag denied", "rfid", rfid)
	}

	return result, nil
}

// Assign links a tag to a user and trusts it.
func (e *Engine) Assign(ctx context.Context, rfid, userID string) (*Tag, error) {
	if rfid == "" || userID == "" {
		return nil, fmt.Errorf("%w: rfid and user id are required", ErrValidation)
	}

	if err := e.tags.Assign(ctx, rfid, userID); err != nil {
		return nil, err
	}

	e.logger.Info("tag assigned", "rfid", rfid, "user_id", userID)
	return e.tags.GetByRFID(ctx, rfid)
}

// SetPermission flips a tag's access without changing its owner.
func (e *Engine) SetPermission(ctx context.Context, rfid string, granted bool) (*Tag, error) {
	if rfid == "" {
		return nil, fmt.Errorf("%w: empty rfid", ErrValidation)
	}

	if err := e.tags.SetValid(ctx, rfid, granted); err != nil {
		return nil, err
	}

	e.logger.Info("tag permission changed", "rfid", rfid, "granted", granted)
	return e.tags.GetByRFID(ctx, rfid)
}

// Remove deletes a tag.
func (e *Engine) Remove(ctx context.Context, rfid string) error {
	if rfid == "" {
		return fmt.Errorf("%w: empty rfid", ErrValidation)
	}

	if err := e.tags.Delete(ctx, rfid); err != nil {
		return err
	}

	e.logger.Info("tag removed", "rfid", rfid)
	return nil
}

// List returns all stored tags.
func (e *Engine) List(ctx context.Context) ([]Tag, error) {
	return e.tags.List(ctx)
}

// ListByUser returns the tags assigned to a user.
func (e *Engine) ListByUser(ctx context.Context, userID string) ([]Tag, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrValidation)
	}
	return e.tags.ListByUser(ctx, userID)
}
