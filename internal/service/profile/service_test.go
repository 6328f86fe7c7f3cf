package profile

import (
	"context"
	"log/slog"
	"testing"

	"betty/internal/domain"
	"betty/internal/domain/store"
	"betty/internal/repository/memory"
	"betty/internal/service/index"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	docStore := memory.NewStore()
	logger := slog.New(slog.DiscardHandler)
	cache := index.NewCache(docStore, logger)
	return NewService(docStore, cache, logger), docStore
}

func TestEnsureUserProvisionsDefaults(t *testing.T) {
	svc, docStore := newTestService(t)
	ctx := context.Background()

	user, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if user.Email != "thandi@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.Location != "Johannesburg, South Africa" {
		t.Errorf("location = %q", user.Location)
	}
	if user.Timezone != "Africa/Johannesburg" {
		t.Errorf("timezone = %q", user.Timezone)
	}

	record, err := docStore.Get(ctx, store.CollectionUsers, "user-1")
	if err != nil {
		t.Fatalf("load provisioned record: %v", err)
	}
	if _, ok := record["indexes"]; !ok {
		t.Error("provisioned user is missing indexes")
	}
	if _, ok := record["stats"]; !ok {
		t.Error("provisioned user is missing stats")
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	if _, err := svc.Update(ctx, "user-1", &UpdateProfileRequest{Location: strPtr("Cape Town, South Africa")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	second, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com")
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if second.Location != "Cape Town, South Africa" {
		t.Errorf("location = %q, second EnsureUser reset the profile", second.Location)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("created_at changed across EnsureUser calls")
	}
}

func TestUpdateProfilePatchesOnlyProvidedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	user, err := svc.Update(ctx, "user-1", &UpdateProfileRequest{
		FirstName: strPtr("Thandi"),
		Bio:       strPtr("Freelance consultant"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.FirstName != "Thandi" {
		t.Errorf("first_name = %q", user.FirstName)
	}
	if user.Bio != "Freelance consultant" {
		t.Errorf("bio = %q", user.Bio)
	}
	if user.Location != "Johannesburg, South Africa" {
		t.Errorf("location = %q, untouched field was overwritten", user.Location)
	}
}

func TestUpdateProfileRejectsBadPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	_, err := svc.Update(ctx, "user-1", &UpdateProfileRequest{Phone: strPtr("not-a-number")})
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestPreferencesDefaultsPersistOnFirstRead(t *testing.T) {
	svc, docStore := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	prefs, err := svc.Preferences(ctx, "user-1")
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if prefs["currency"] != "ZAR" {
		t.Errorf("currency = %v", prefs["currency"])
	}

	record, err := docStore.Get(ctx, store.CollectionUsers, "user-1")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if _, ok := record["preferences"]; !ok {
		t.Error("defaults were not written back to the user record")
	}

	updated, err := svc.UpdatePreferences(ctx, "user-1", map[string]any{"theme": "dark"})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if updated["theme"] != "dark" {
		t.Errorf("theme = %v", updated["theme"])
	}

	again, err := svc.Preferences(ctx, "user-1")
	if err != nil {
		t.Fatalf("Preferences after update: %v", err)
	}
	if again["theme"] != "dark" {
		t.Errorf("theme = %v, update did not stick", again["theme"])
	}
}

func TestNotificationSettingsDefaultsAndUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	settings, err := svc.NotificationSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("NotificationSettings: %v", err)
	}
	if settings["email_enabled"] != true {
		t.Errorf("email_enabled = %v", settings["email_enabled"])
	}

	if _, err := svc.UpdateNotificationSettings(ctx, "user-1", map[string]any{"email_enabled": false}); err != nil {
		t.Fatalf("UpdateNotificationSettings: %v", err)
	}
	settings, err = svc.NotificationSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("NotificationSettings after update: %v", err)
	}
	if settings["email_enabled"] != false {
		t.Errorf("email_enabled = %v after update", settings["email_enabled"])
	}

	if _, err := svc.UpdateNotificationSettings(ctx, "user-1", nil); !domain.IsValidation(err) {
		t.Errorf("empty settings err = %v, want validation error", err)
	}
}

func TestDeleteArchivesUser(t *testing.T) {
	svc, docStore := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "user-1", "thandi@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := svc.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := docStore.Get(ctx, store.CollectionUsers, "user-1"); !domain.IsNotFound(err) {
		t.Errorf("live record err = %v, want not found", err)
	}

	archived, err := docStore.Get(ctx, store.CollectionDeletedUsers, "user-1")
	if err != nil {
		t.Fatalf("archived record: %v", err)
	}
	if archived["email"] != "thandi@example.com" {
		t.Errorf("archived email = %v", archived["email"])
	}
	if _, ok := archived["deleted_at"]; !ok {
		t.Error("archive is missing deleted_at")
	}
}

func TestDeleteMissingUser(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Delete(context.Background(), "ghost"); !domain.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func strPtr(s string) *string { return &s }
