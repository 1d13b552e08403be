package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := &User{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "$argon2id$fake",
		IsVerified:   true,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if !got.IsVerified {
		t.Error("IsVerified should survive a round trip")
	}
	if got.IsSuper {
		t.Error("IsSuper should default to false")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestUserRepository_GetByEmail_CaseInsensitive(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	seedTestUser(t, db, "Bob@Example.com", false, false)

	got, err := repo.GetByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.Email != "Bob@Example.com" {
		t.Errorf("Email = %q, want stored casing preserved", got.Email)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	seedTestUser(t, db, "carol@example.com", false, false)

	dup := &User{Email: "CAROL@example.com", PasswordHash: "x"}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Create(duplicate email) error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_GetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	if _, err := repo.GetByID(context.Background(), "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByEmail(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "dave@example.com", false, false)

	user.Name = "Dave"
	user.IsVerified = true
	user.IsSuper = true
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Dave" || !got.IsVerified || !got.IsSuper {
		t.Errorf("Update() not persisted: %+v", got)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.Update(context.Background(), &User{ID: "usr-missing"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "erin@example.com", true, false)

	if err := repo.UpdatePassword(context.Background(), user.ID, "$argon2id$new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PasswordHash != "$argon2id$new" {
		t.Error("password hash should be updated")
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "frank@example.com", false, false)

	if err := repo.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(context.Background(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(deleted) error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(context.Background(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("empty List() = %d users, want 0 (non-nil slice)", len(users))
	}

	seedTestUser(t, db, "u1@example.com", false, false)
	seedTestUser(t, db, "u2@example.com", true, false)

	users, err = repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("List() = %d users, want 2", len(users))
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}
