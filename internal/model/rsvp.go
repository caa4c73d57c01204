package model

import "time"

// RSVP records one reply to the wedding invitation.  Replies are anonymous
// in the account sense: the guest's display name is the only identity, the
// same low-trust token used for gift reservations.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – guest (or household) display name.
//	Attending – whether the party is coming.
//	PartySize – number of people covered by this reply.
//	Note      – optional dietary or free-form note.
//	CreatedAt – creation timestamp.
type RSVP struct {
	ID        uint64    // rsvps.id
	Name      string    // rsvps.name
	Attending bool      // rsvps.attending
	PartySize uint8     // rsvps.party_size
	Note      *string   // rsvps.note (nullable)
	CreatedAt time.Time // rsvps.created_at
}
