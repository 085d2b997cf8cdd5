package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/utils"
)

// ContactRepo provides CRUD access to the trusted_contacts table. Every
// query is scoped by the owning user id; no contact can be read or
// mutated without it. Dedup within a user's list compares the
// digits-only form of the phone number, enforced both by a pre-insert
// check and by the UNIQUE(user_id, phone_digits) constraint so two
// near-simultaneous adds cannot both succeed.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo returns a new ContactRepo bound to the given database.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// ListByUser returns the user's contacts ordered by creation descending.
func (r *ContactRepo) ListByUser(ctx context.Context, userID uint64) ([]model.TrustedContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, phone, phone_digits, email, created_at
		   FROM trusted_contacts WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrustedContact
	for rows.Next() {
		var c model.TrustedContact
		var email sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.PhoneDigits, &email, &c.CreatedAt); err != nil {
			return nil, err
		}
		if email.Valid {
			e := email.String
			c.Email = &e
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Add inserts a new contact for the user. The phone is stored as entered
// alongside its digits-only form. A contact whose digits match an
// existing one for the same user fails with ErrDuplicateContact; the
// same number under a different user is fine.
func (r *ContactRepo) Add(ctx context.Context, userID uint64, name, phone string, email *string) (model.TrustedContact, error) {
	digits := utils.PhoneDigits(phone)

	// Check-then-insert keeps the error message cheap; the unique
	// constraint below is what actually guarantees the invariant.
	var existing uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM trusted_contacts WHERE user_id = ? AND phone_digits = ? LIMIT 1",
		userID, digits).Scan(&existing)
	if err == nil {
		return model.TrustedContact{}, ErrDuplicateContact
	}
	if err != sql.ErrNoRows {
		return model.TrustedContact{}, err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO trusted_contacts (user_id, name, phone, phone_digits, email) VALUES (?,?,?,?,?)",
		userID, name, phone, digits, email)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.TrustedContact{}, ErrDuplicateContact
		}
		return model.TrustedContact{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TrustedContact{}, err
	}

	c := model.TrustedContact{ID: uint64(id), UserID: userID, Name: name, Phone: phone, PhoneDigits: digits, Email: email}
	err = r.db.QueryRowContext(ctx,
		"SELECT created_at FROM trusted_contacts WHERE id = ?", c.ID).Scan(&c.CreatedAt)
	if err != nil {
		return model.TrustedContact{}, err
	}
	return c, nil
}

// Remove deletes a contact by id, scoped to the owning user. Deleting a
// contact that does not exist (or belongs to someone else) returns
// ErrNotFound.
func (r *ContactRepo) Remove(ctx context.Context, userID, contactID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM trusted_contacts WHERE id = ? AND user_id = ?",
		contactID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update rewrites name and phone (and the derived digits) of an existing
// contact by id. Changing the phone to one that collides with another
// contact of the same user fails with ErrDuplicateContact.
func (r *ContactRepo) Update(ctx context.Context, userID, contactID uint64, name, phone string) error {
	digits := utils.PhoneDigits(phone)
	res, err := r.db.ExecContext(ctx,
		"UPDATE trusted_contacts SET name = ?, phone = ?, phone_digits = ? WHERE id = ? AND user_id = ?",
		name, phone, digits, contactID, userID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateContact
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is missing or nothing changed; confirm existence.
		var id uint64
		if scanErr := r.db.QueryRowContext(ctx,
			"SELECT id FROM trusted_contacts WHERE id = ? AND user_id = ? LIMIT 1",
			contactID, userID).Scan(&id); scanErr == sql.ErrNoRows {
			return ErrNotFound
		} else if scanErr != nil {
			return scanErr
		}
	}
	return nil
}
