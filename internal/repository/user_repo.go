package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parkingapp/internal/db"
)

// ContactRepository resolves how to reach users and parking owners.
type ContactRepository interface {
	GetContact(ctx context.Context, userID string) (*db.UserContact, error)
	GetParkingOwnerContact(ctx context.Context, parkingID string) (*db.UserContact, error)
}

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetContact(ctx context.Context, userID string) (*db.UserContact, error) {
	q := &sqlQueries{ext: r.db, driver: r.db.DriverName()}
	var c db.UserContact
	if err := q.get(ctx, &c, `SELECT id, name, email, phone FROM users WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("get contact %s: %w", userID, err)
	}
	return &c, nil
}

func (r *contactRepository) GetParkingOwnerContact(ctx context.Context, parkingID string) (*db.UserContact, error) {
	q := &sqlQueries{ext: r.db, driver: r.db.DriverName()}
	var c db.UserContact
	err := q.get(ctx, &c, `
		SELECT u.id, u.name, u.email, u.phone
		FROM parkings p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = ?`, parkingID)
	if err != nil {
		return nil, fmt.Errorf("get owner contact of parking %s: %w", parkingID, err)
	}
	return &c, nil
}
