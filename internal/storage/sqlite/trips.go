package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devinvista/Trip-sub001/internal/models"
)

const tripColumns = "id, creator_id, title, destination, description, start_date, end_date, budget, max_participants, created_at, updated_at"

// CreateTrip persists a new trip and adds its creator as an accepted participant.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	// Generate ID if not set
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}
	trip.UpdatedAt = trip.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trips ("+tripColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		trip.ID, trip.CreatorID, trip.Title, trip.Destination, trip.Description,
		trip.StartDate, trip.EndDate, trip.Budget, trip.MaxParticipants,
		trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_participants (trip_id, user_id, status, joined_at, seq) VALUES (?, ?, ?, ?, 1)",
		trip.ID, trip.CreatorID, models.StatusAccepted, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creator participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	err := s.db.QueryRowContext(ctx,
		"SELECT "+tripColumns+" FROM trips WHERE id = ?", tripID,
	).Scan(
		&trip.ID, &trip.CreatorID, &trip.Title, &trip.Destination, &trip.Description,
		&trip.StartDate, &trip.EndDate, &trip.Budget, &trip.MaxParticipants,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, notFound("trip", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// UpdateTrip applies a partial update to a trip.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, tripID string, patch models.TripPatch) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	patch.Apply(trip)
	trip.UpdatedAt = time.Now().Unix()

	_, err = s.db.ExecContext(ctx,
		`UPDATE trips SET title = ?, destination = ?, description = ?, start_date = ?, end_date = ?,
		 budget = ?, max_participants = ?, updated_at = ? WHERE id = ?`,
		trip.Title, trip.Destination, trip.Description, trip.StartDate, trip.EndDate,
		trip.Budget, trip.MaxParticipants, trip.UpdatedAt, trip.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	return trip, nil
}

// SetTripCreator transfers trip ownership.
func (s *SQLiteStore) SetTripCreator(ctx context.Context, tripID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE trips SET creator_id = ?, updated_at = ? WHERE id = ?",
		userID, time.Now().Unix(), tripID,
	)
	if err != nil {
		return fmt.Errorf("failed to set trip creator: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("trip", tripID)
	}
	return nil
}

// DeleteTrip removes a trip. Participants, expenses and splits go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteTrip(ctx context.Context, tripID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", tripID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("trip", tripID)
	}
	return nil
}

// AddParticipant inserts a membership row, or updates the status of an existing one.
// The join order of an existing row is kept.
func (s *SQLiteStore) AddParticipant(ctx context.Context, p *models.TripParticipant) error {
	if p.JoinedAt == 0 {
		p.JoinedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trip_participants (trip_id, user_id, status, joined_at, seq)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM trip_participants WHERE trip_id = ?))
		 ON CONFLICT (trip_id, user_id) DO UPDATE SET status = excluded.status`,
		p.TripID, p.UserID, p.Status, p.JoinedAt, p.TripID,
	)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// GetParticipant retrieves one membership row.
func (s *SQLiteStore) GetParticipant(ctx context.Context, tripID, userID string) (*models.TripParticipant, error) {
	p := &models.TripParticipant{}
	err := s.db.QueryRowContext(ctx,
		"SELECT trip_id, user_id, status, joined_at FROM trip_participants WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	).Scan(&p.TripID, &p.UserID, &p.Status, &p.JoinedAt)
	if isNoRows(err) {
		return nil, notFound("participant", tripID+"/"+userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// SetParticipantStatus updates a membership's status.
func (s *SQLiteStore) SetParticipantStatus(ctx context.Context, tripID, userID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE trip_participants SET status = ? WHERE trip_id = ? AND user_id = ?",
		status, tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set participant status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("participant", tripID+"/"+userID)
	}
	return nil
}

// RemoveParticipant deletes a membership row.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, tripID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM trip_participants WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("participant", tripID+"/"+userID)
	}
	return nil
}

// ListParticipants returns the memberships of a trip in join order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, tripID, status string) ([]*models.TripParticipant, error) {
	query := "SELECT trip_id, user_id, status, joined_at FROM trip_participants WHERE trip_id = ?"
	args := []any{tripID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY joined_at, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.TripParticipant
	for rows.Next() {
		p := &models.TripParticipant{}
		if err := rows.Scan(&p.TripID, &p.UserID, &p.Status, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}
