package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestcheckin/internal/domain"
)

const guestColumns = `id, event_id, name, email, phone, invite_code, is_present, checked_in_at, created_at`

type guestRepository struct {
	DB *sql.DB
}

func NewGuestRepository(db *sql.DB) domain.GuestRepository {
	return &guestRepository{
		DB: db,
	}
}

func scanGuest(row rowScanner) (*domain.Guest, error) {
	g := &domain.Guest{}
	var phoneNull sql.NullString
	var checkedInNull sql.NullTime
	err := row.Scan(&g.ID, &g.EventID, &g.Name, &g.Email, &phoneNull, &g.InviteCode, &g.IsPresent, &checkedInNull, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	if phoneNull.Valid {
		g.Phone = &phoneNull.String
	}
	if checkedInNull.Valid {
		g.CheckedInAt = &checkedInNull.Time
	}
	return g, nil
}

func scanGuests(rows *sql.Rows) ([]*domain.Guest, error) {
	defer rows.Close()
	guests := make([]*domain.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

func (r *guestRepository) Create(ctx context.Context, g *domain.Guest) error {
	query := `
		INSERT INTO guests (id, event_id, name, email, phone, invite_code, is_present, checked_in_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var checkedIn sql.NullTime
	if g.CheckedInAt != nil {
		checkedIn = sql.NullTime{Time: *g.CheckedInAt, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query, g.ID, g.EventID, g.Name, g.Email, nullString(g.Phone), g.InviteCode, g.IsPresent, checkedIn, g.CreatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case guestsInviteCodeKey:
			return domain.ErrDuplicateInviteCode
		case guestsPkey:
			return fmt.Errorf("guest %s: %w", g.ID, domain.ErrAlreadyExists)
		}
	}
	return err
}

func (r *guestRepository) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE id = $1`
	g, err := scanGuest(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *guestRepository) GetByInviteCode(ctx context.Context, eventID, inviteCode string) (*domain.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE event_id = $1 AND invite_code = $2`
	g, err := scanGuest(r.DB.QueryRowContext(ctx, query, eventID, inviteCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *guestRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return scanGuests(rows)
}

func (r *guestRepository) SearchByEventID(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.Guest, int, error) {
	search = strings.TrimSpace(search)
	where := `WHERE event_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')`

	var total int
	countQuery := `SELECT COUNT(*) FROM guests ` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, eventID, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*domain.Guest{}, 0, nil
	}

	query := `
		SELECT ` + guestColumns + `
		FROM guests
		` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, search, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	guests, err := scanGuests(rows)
	if err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

func (r *guestRepository) Update(ctx context.Context, id string, upd domain.GuestUpdate) (*domain.Guest, error) {
	var setClauses []string
	args := []interface{}{}
	n := 1
	if upd.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", n))
		args = append(args, *upd.Name)
		n++
	}
	if upd.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", n))
		args = append(args, *upd.Email)
		n++
	}
	if upd.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", n))
		args = append(args, nullString(upd.Phone))
		n++
	}
	if n == 1 {
		// Nothing to change; return the current row.
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE guests SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, guestColumns)
	g, err := scanGuest(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *guestRepository) MarkPresent(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE guests
		SET is_present = TRUE, checked_in_at = $1
		WHERE id = $2 AND is_present = FALSE
	`
	result, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return true, nil
	}
	// Either the guest is gone or it was already present.
	var present bool
	err = r.DB.QueryRowContext(ctx, `SELECT is_present FROM guests WHERE id = $1`, id).Scan(&present)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return false, nil
}

func (r *guestRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM guests WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
