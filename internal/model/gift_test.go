package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDerivation(t *testing.T) {
	g := &Gift{Name: "stand mixer"}
	assert.Equal(t, StateAvailable, g.State())
	assert.Equal(t, "available", g.State().String())

	now := time.Now().UTC()
	g.ApplyReservation("Dana", now)
	assert.Equal(t, StateReserved, g.State())
	assert.Equal(t, "reserved", g.State().String())

	g.ApplyReceipt("file://receipts/1-1.jpg")
	assert.Equal(t, StateReceiptPending, g.State())

	g.ApproveReceipt()
	assert.Equal(t, StatePurchased, g.State())
	assert.Equal(t, "purchased", g.State().String())
}

func TestApplyReservationStampsHold(t *testing.T) {
	g := &Gift{Name: "espresso machine"}
	now := time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)
	g.ApplyReservation("Sam", now)

	require.NotNil(t, g.ReservedBy)
	assert.Equal(t, "Sam", *g.ReservedBy)
	require.NotNil(t, g.ReservedAt)
	assert.Equal(t, now, *g.ReservedAt)
	require.NotNil(t, g.ReservationExpiresAt)
	assert.Equal(t, now.Add(ReservationHold), *g.ReservationExpiresAt)
	assert.True(t, g.Consistent())
}

func TestReservationOverwrite(t *testing.T) {
	g := &Gift{Name: "picnic basket"}
	g.ApplyReservation("Alice", time.Now().UTC())
	later := time.Now().UTC().Add(time.Hour)
	g.ApplyReservation("Bob", later)

	require.NotNil(t, g.ReservedBy)
	assert.Equal(t, "Bob", *g.ReservedBy)
	assert.Equal(t, later.Add(ReservationHold), *g.ReservationExpiresAt)
}

func TestClearReservationResetsEverything(t *testing.T) {
	g := &Gift{Name: "wine glasses"}
	g.ApplyReservation("Eve", time.Now().UTC())
	g.ApplyReceipt("file://receipts/9-9.pdf")

	g.ClearReservation()
	assert.False(t, g.Reserved)
	assert.Nil(t, g.ReservedBy)
	assert.Nil(t, g.ReservedAt)
	assert.Nil(t, g.ReservationExpiresAt)
	assert.Nil(t, g.ReceiptURL)
	assert.Nil(t, g.ReceiptStatus)
	assert.Equal(t, StateAvailable, g.State())
	assert.True(t, g.Consistent())

	// Safe to call twice.
	g.ClearReservation()
	assert.True(t, g.Consistent())
}

func TestApproveReceiptIsTerminal(t *testing.T) {
	g := &Gift{Name: "luggage set"}
	g.ApplyReservation("Kim", time.Now().UTC())
	g.ApplyReceipt("file://receipts/2-2.png")
	g.ApproveReceipt()

	assert.True(t, g.Purchased)
	require.NotNil(t, g.ReceiptStatus)
	assert.Equal(t, ReceiptApproved, *g.ReceiptStatus)
	require.NotNil(t, g.ReservedBy)
	assert.Equal(t, "Kim", *g.ReservedBy)
	assert.True(t, g.Consistent())
}

func TestConsistentRejectsDriftedRows(t *testing.T) {
	ref := "file://receipts/3-3.jpg"
	name := "Pat"

	// Receipt without a reservation.
	g := &Gift{Name: "blender", ReceiptURL: &ref}
	assert.False(t, g.Consistent())

	// Purchased without an approved receipt.
	g = &Gift{Name: "blender", Reserved: true, ReservedBy: &name, Purchased: true}
	assert.False(t, g.Consistent())

	// Reserved without a name.
	g = &Gift{Name: "blender", Reserved: true}
	assert.False(t, g.Consistent())

	// Available with residue.
	g = &Gift{Name: "blender", ReservedBy: &name}
	assert.False(t, g.Consistent())
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{CategoryKitchen, CategoryHome, CategoryTravel, CategoryExperience, CategoryOther} {
		assert.True(t, ValidCategory(c), c)
	}
	assert.False(t, ValidCategory("GARDEN"))
	assert.False(t, ValidCategory("kitchen"))
	assert.False(t, ValidCategory(""))
}
