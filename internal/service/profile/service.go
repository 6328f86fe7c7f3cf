// Package profile owns the user record: lazy provisioning on first
// authenticated access, profile updates, preferences and notification
// settings, aggregate stats, and soft deletion into the deleted_users
// archive.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/service/index"
)

type Service struct {
	store  store.DocumentStore
	index  *index.Cache
	logger *slog.Logger
}

func NewService(docStore store.DocumentStore, cache *index.Cache, logger *slog.Logger) *Service {
	return &Service{store: docStore, index: cache, logger: logger}
}

// UpdateProfileRequest patches mutable profile fields.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Location  *string `json:"location"`
	Timezone  *string `json:"timezone"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
}

// EnsureUser returns the user record, provisioning it with defaults, empty
// indexes and zeroed stats on first authenticated access. The record id is
// the provider-issued uid.
func (s *Service) EnsureUser(ctx context.Context, userID, email string) (*models.User, error) {
	record, err := s.store.Get(ctx, store.CollectionUsers, userID)
	if err == nil {
		return decodeUser(record)
	}
	if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	now := time.Now().UTC()
	_, err = s.store.Create(ctx, store.CollectionUsers, store.Record{
		"id":         userID,
		"uid":        userID,
		"email":      email,
		"location":   models.DefaultLocation,
		"timezone":   models.DefaultTimezone,
		"last_login": now,
		"indexes":    models.EmptyIndexes(),
		"stats":      models.EmptyStats(),
	})
	if err != nil {
		return nil, fmt.Errorf("provision user %s: %w", userID, err)
	}

	s.logger.Info("user provisioned", "user_id", userID)
	record, err = s.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("load provisioned user %s: %w", userID, err)
	}
	return decodeUser(record)
}

func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	record, err := s.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return decodeUser(record)
}

func (s *Service) Update(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.FirstName, validation.Length(0, 100)),
		validation.Field(&req.LastName, validation.Length(0, 100)),
		validation.Field(&req.Phone, is.E164.Error("must be a valid phone number")),
		validation.Field(&req.Bio, validation.Length(0, 1000)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	patch := store.Record{}
	setIfPresent(patch, "first_name", req.FirstName)
	setIfPresent(patch, "last_name", req.LastName)
	setIfPresent(patch, "location", req.Location)
	setIfPresent(patch, "timezone", req.Timezone)
	setIfPresent(patch, "phone", req.Phone)
	setIfPresent(patch, "bio", req.Bio)

	if len(patch) > 0 {
		if err := s.store.Update(ctx, store.CollectionUsers, userID, patch); err != nil {
			return nil, fmt.Errorf("update user %s: %w", userID, err)
		}
	}
	return s.Get(ctx, userID)
}

// Stats serves the dashboard aggregates from the index cache.
func (s *Service) Stats(ctx context.Context, userID string) (*models.ProfileStats, error) {
	return s.index.GetStats(ctx, userID)
}

// Preferences returns the user's app preferences, writing the defaults back
// on first read so later reads are stable.
func (s *Service) Preferences(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Preferences) > 0 {
		return user.Preferences, nil
	}

	defaults := defaultPreferences()
	if err := s.store.Update(ctx, store.CollectionUsers, userID, store.Record{"preferences": defaults}); err != nil {
		s.logger.Warn("default preferences not persisted", "user_id", userID, "error", err)
	}
	return defaults, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs map[string]any) (map[string]any, error) {
	if len(prefs) == 0 {
		return nil, fmt.Errorf("%w: preferences cannot be empty", domain.ErrValidation)
	}
	if err := s.store.Update(ctx, store.CollectionUsers, userID, store.Record{"preferences": prefs}); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return prefs, nil
}

// NotificationSettings returns the user's notification toggles, writing the
// defaults back on first read.
func (s *Service) NotificationSettings(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.NotificationSettings) > 0 {
		return user.NotificationSettings, nil
	}

	defaults := defaultNotificationSettings()
	if err := s.store.Update(ctx, store.CollectionUsers, userID, store.Record{"notification_settings": defaults}); err != nil {
		s.logger.Warn("default notification settings not persisted", "user_id", userID, "error", err)
	}
	return defaults, nil
}

func (s *Service) UpdateNotificationSettings(ctx context.Context, userID string, settings map[string]any) (map[string]any, error) {
	if len(settings) == 0 {
		return nil, fmt.Errorf("%w: settings cannot be empty", domain.ErrValidation)
	}
	if err := s.store.Update(ctx, store.CollectionUsers, userID, store.Record{"notification_settings": settings}); err != nil {
		return nil, fmt.Errorf("update notification settings: %w", err)
	}
	return settings, nil
}

// TouchLogin stamps last_login. Best-effort.
func (s *Service) TouchLogin(ctx context.Context, userID string) {
	err := s.store.Update(ctx, store.CollectionUsers, userID, store.Record{
		"last_login": time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("last_login not updated", "user_id", userID, "error", err)
	}
}

// Delete archives the user record into deleted_users and removes the live
// record. User accounts are never hard-deleted; the archive keeps the full
// record plus a deletion timestamp.
func (s *Service) Delete(ctx context.Context, userID string) error {
	record, err := s.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	archived := store.Record{}
	for k, v := range record {
		archived[k] = v
	}
	archived["deleted_at"] = time.Now().UTC()

	if _, err := s.store.Create(ctx, store.CollectionDeletedUsers, archived); err != nil {
		return fmt.Errorf("archive user %s: %w", userID, err)
	}
	if err := s.store.Delete(ctx, store.CollectionUsers, userID); err != nil {
		return fmt.Errorf("remove user %s: %w", userID, err)
	}

	s.logger.Info("user archived", "user_id", userID)
	return nil
}

func defaultPreferences() map[string]any {
	return map[string]any{
		"theme":         "light",
		"language":      "en-ZA",
		"currency":      "ZAR",
		"date_format":   "YYYY-MM-DD",
		"week_starts":   "monday",
		"compact_lists": false,
	}
}

func defaultNotificationSettings() map[string]any {
	return map[string]any{
		"email_enabled":   true,
		"push_enabled":    true,
		"task_reminders":  true,
		"event_reminders": true,
		"weekly_digest":   false,
	}
}

func setIfPresent(patch store.Record, field string, value *string) {
	if value != nil {
		patch[field] = *value
	}
}

func decodeUser(record store.Record) (*models.User, error) {
	var user models.User
	if err := store.Decode(record, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}
