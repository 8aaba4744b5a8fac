package sqlite_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/repository/sqlite"
)

func TestRecordRepository_CreateThenLoad(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewRecordRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "amy@x.com", "Amy", "secret"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec, err := repo.Load(ctx, "amy@x.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &domain.UserRecord{
		Identity:    "amy@x.com",
		DisplayName: "Amy",
		Credential:  "secret",
		Messages:    []domain.Message{},
		Follows:     []string{},
	}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("expected %+v, got %+v", want, rec)
	}
}

func TestRecordRepository_Create_AlreadyExists(t *testing.T) {
	db := newTestDB(t)
	repo := db.Records()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "dup@x.com", "User 1", "pw1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(ctx, "dup@x.com", "User 2", "pw2")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	rec, err := repo.Load(ctx, "dup@x.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.DisplayName != "User 1" || rec.Credential != "pw1" {
		t.Fatalf("existing record was modified: %+v", rec)
	}
}

func TestRecordRepository_Load_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Records().Load(context.Background(), "nobody@x.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRepository_SaveRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := db.Records()
	ctx := context.Background()

	rec, err := repo.Create(ctx, "amy@x.com", "Amy", "secret")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec.DisplayName = "Amy B"
	rec.Credential = "new-secret"
	rec.Messages = []domain.Message{
		{Timestamp: 1700000000.123456789, Text: "first"},
		{Timestamp: 1699999999.25, Text: "older but appended later"},
	}
	rec.Follows = []string{"zed@x.com", "bob@x.com"}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx, "amy@x.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, rec)
	}

	// A second save with an appended message keeps prior entries in order.
	rec.Messages = append(rec.Messages, domain.Message{Timestamp: 1700000002, Text: "third"})
	rec.Follows = rec.Follows[:1]
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = repo.Load(ctx, "amy@x.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("second round trip mismatch:\n got  %+v\n want %+v", got, rec)
	}
}

func TestRecordRepository_SaveCreatesMissingRecord(t *testing.T) {
	db := newTestDB(t)
	repo := db.Records()
	ctx := context.Background()

	rec := &domain.UserRecord{
		Identity:    "late@x.com",
		DisplayName: "Late",
		Credential:  "pw",
		Messages:    []domain.Message{{Timestamp: 1, Text: "x"}},
		Follows:     []string{},
	}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx, "late@x.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("expected %+v, got %+v", rec, got)
	}
}

func TestRecordRepository_ExistsAndIdentities(t *testing.T) {
	db := newTestDB(t)
	repo := db.Records()
	ctx := context.Background()

	for _, id := range []string{"bob@x.com", "amy@x.com"} {
		if _, err := repo.Create(ctx, id, id, "pw"); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	ok, err := repo.Exists(ctx, "bob@x.com")
	if err != nil || !ok {
		t.Fatalf("expected bob to exist, got %v, %v", ok, err)
	}
	ok, err = repo.Exists(ctx, "ghost@x.com")
	if err != nil || ok {
		t.Fatalf("expected ghost to be absent, got %v, %v", ok, err)
	}

	ids, err := repo.Identities(ctx)
	if err != nil {
		t.Fatalf("Identities: %v", err)
	}
	want := []string{"amy@x.com", "bob@x.com"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}

func TestRecordRepository_Create_InvalidIdentity(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Records().Create(context.Background(), "", "Nobody", "pw")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
