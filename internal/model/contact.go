package model

import "time"

// TrustedContact is a person a user wants alerted in an emergency,
// stored in the `trusted_contacts` table. Phone numbers are kept as
// entered; a normalized digits-only copy lives in PhoneDigits and
// carries the per-user uniqueness constraint, so "98765-43210" and
// "9876543210" count as the same contact.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the contact entry.
//  Name        – display name shown to the user.
//  Phone       – phone number exactly as entered.
//  PhoneDigits – digits-only form, unique per user.
//  Email       – optional email address.
//  CreatedAt   – timestamp of creation.
type TrustedContact struct {
	ID          uint64    // trusted_contacts.id
	UserID      uint64    // trusted_contacts.user_id
	Name        string    // trusted_contacts.name
	Phone       string    // trusted_contacts.phone
	PhoneDigits string    // trusted_contacts.phone_digits
	Email       *string   // trusted_contacts.email (nullable)
	CreatedAt   time.Time // trusted_contacts.created_at
}
