package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parohia/parohia/internal/models"
)

func TestSetOverrideUpserts(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")

	_, err = svc.SetOverride(context.Background(), user.ID, "invoices.approve", true)
	require.NoError(t, err)

	// Flipping to deny replaces the row instead of adding a second one.
	_, err = svc.SetOverride(context.Background(), user.ID, "invoices.approve", false)
	require.NoError(t, err)

	overrides, err := svc.ListOverrides(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.False(t, overrides[0].Granted)
}

func TestSetOverrideRejectsUnknownPermission(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")

	_, err = svc.SetOverride(context.Background(), user.ID, "nonsense.verb", true)
	require.Error(t, err)
}

func TestSetOverrideRequiresUser(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	_, err = svc.SetOverride(context.Background(), "missing-user", "invoices.read", true)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestClearOverride(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")

	_, err = svc.SetOverride(context.Background(), user.ID, "invoices.read", false)
	require.NoError(t, err)

	require.NoError(t, svc.ClearOverride(context.Background(), user.ID, "invoices.read"))
	// Clearing an absent override is not an error.
	require.NoError(t, svc.ClearOverride(context.Background(), user.ID, "invoices.read"))

	overrides, err := svc.ListOverrides(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, overrides)
}

func TestUpsertMembershipDemotesOtherPrimaries(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	first := createServiceTestParish(t, db, "Sf. Nicolae")
	second := createServiceTestParish(t, db, "Sf. Gheorghe")

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: first.ID, AccessLevel: models.AccessFull, IsPrimary: true,
	})
	require.NoError(t, err)

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: second.ID, AccessLevel: models.AccessReadOnly, IsPrimary: true,
	})
	require.NoError(t, err)

	memberships, err := svc.ListMemberships(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 2)

	var primaries int
	for _, m := range memberships {
		if m.IsPrimary {
			primaries++
			require.Equal(t, second.ID, m.ParishID)
		}
	}
	require.Equal(t, 1, primaries)
}

func TestUpsertMembershipUpdatesAccessLevel(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	parish := createServiceTestParish(t, db, "Sf. Nicolae")

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: parish.ID, AccessLevel: models.AccessFull,
	})
	require.NoError(t, err)

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: parish.ID, AccessLevel: models.AccessLimited,
	})
	require.NoError(t, err)

	memberships, err := svc.ListMemberships(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	require.Equal(t, models.AccessLimited, memberships[0].AccessLevel)
}

func TestUpsertMembershipValidation(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	parish := createServiceTestParish(t, db, "Sf. Nicolae")

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: parish.ID, AccessLevel: "partial",
	})
	require.Error(t, err)

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: "missing-parish", AccessLevel: models.AccessFull,
	})
	require.ErrorIs(t, err, ErrParishNotFound)
}

func TestRemoveMembership(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	parish := createServiceTestParish(t, db, "Sf. Nicolae")

	_, err = svc.UpsertMembership(context.Background(), MembershipInput{
		UserID: user.ID, ParishID: parish.ID, AccessLevel: models.AccessFull,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMembership(context.Background(), user.ID, parish.ID))
	require.ErrorIs(t, svc.RemoveMembership(context.Background(), user.ID, parish.ID), ErrMembershipNotFound)
}

func TestSetRecordAccessUpserts(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	admin := createServiceTestUser(t, db, "admin")

	_, err = svc.SetRecordAccess(context.Background(), RecordAccessInput{
		UserID:       user.ID,
		ResourceType: "invoices",
		ResourceID:   "inv-42",
		Granted:      true,
		GrantedByID:  admin.ID,
	})
	require.NoError(t, err)

	_, err = svc.SetRecordAccess(context.Background(), RecordAccessInput{
		UserID:       user.ID,
		ResourceType: "invoices",
		ResourceID:   "inv-42",
		Granted:      false,
	})
	require.NoError(t, err)

	entries, err := svc.ListRecordAccess(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Granted)
}

func TestSetRecordAccessValidation(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")

	_, err = svc.SetRecordAccess(context.Background(), RecordAccessInput{
		UserID: user.ID, ResourceType: "", ResourceID: "inv-42",
	})
	require.Error(t, err)

	_, err = svc.SetRecordAccess(context.Background(), RecordAccessInput{
		UserID: "missing-user", ResourceType: "invoices", ResourceID: "inv-42",
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestClearRecordAccess(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewAccessService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")

	_, err = svc.SetRecordAccess(context.Background(), RecordAccessInput{
		UserID: user.ID, ResourceType: "invoices", ResourceID: "inv-42", Granted: false,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearRecordAccess(context.Background(), user.ID, "invoices", "inv-42"))

	entries, err := svc.ListRecordAccess(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}
