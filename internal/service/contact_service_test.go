package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"taskping/internal/repository"
)

func TestContactUpsertNormalizesPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(repository.NewContactRepository(db), "IN")

	contact, err := svc.Upsert(context.Background(), "Priya", "98765 43210", "vendor", "")
	require.NoError(t, err)
	require.Equal(t, "+919876543210", contact.PhoneE164)
	require.Equal(t, "919876543210@c.us", contact.ChatID)
	require.Equal(t, "98765 43210", contact.PhoneRaw)
}

func TestContactUpsertRejectsInvalidPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(repository.NewContactRepository(db), "IN")

	_, err := svc.Upsert(context.Background(), "Priya", "12345", "", "")
	require.ErrorIs(t, err, ErrInvalidPhone)

	_, err = svc.Upsert(context.Background(), "Priya", "not a number", "", "")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestContactUpsertSamePersonNoDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(repository.NewContactRepository(db), "IN")
	ctx := context.Background()

	first, err := svc.Upsert(ctx, "Priya", "9876543210", "", "")
	require.NoError(t, err)

	// Same number in a different spelling maps to the same chat id.
	second, err := svc.Upsert(ctx, "Priya S", "+91 98765 43210", "vendor", "")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Priya S", second.Name)
	require.Equal(t, "vendor", second.Tags)

	all, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestContactListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(repository.NewContactRepository(db), "IN")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "Priya", "9876543210", "vendor,finance", "")
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "Arjun", "9812345678", "ops", "")
	require.NoError(t, err)

	byName, err := svc.List(ctx, "Arj", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "Arjun", byName[0].Name)

	byTag, err := svc.List(ctx, "", "finance")
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	require.Equal(t, "Priya", byTag[0].Name)
}
