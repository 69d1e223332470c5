// Package postgres provides pgx-backed persistence for activities, rosters,
// accounts, and the outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jamen1147/socialApp/internal/domain"
	"github.com/Jamen1147/socialApp/internal/events"
	"github.com/Jamen1147/socialApp/internal/observability"
)

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `activity_id, title, description, category, activity_date, city, venue`

// Create persists the activity, its host roster entry, and the outbox event
// inside a single transaction.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (activity_id, title, description, category, activity_date, city, venue, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())`

	_, err = tx.Exec(ctx, insertActivity,
		activity.ID,
		activity.Title,
		activity.Description,
		activity.Category,
		activity.Date,
		activity.City,
		activity.Venue,
	)
	if err != nil {
		return err
	}

	for _, att := range activity.Attendees {
		if err = insertAttendee(ctx, tx, activity.ID, att); err != nil {
			return err
		}
	}

	host, _ := activity.Host()
	if err = insertOutbox(ctx, tx, activity.ID, "activity.created", events.ActivityCreated{
		ActivityID: activity.ID,
		Title:      activity.Title,
		Category:   activity.Category,
		City:       activity.City,
		Venue:      activity.Venue,
		Date:       activity.Date,
		Host:       host.Username,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordActivityPersisted(time.Now().UTC())
	return nil
}

// Update replaces the descriptive fields of an activity.
func (r *Repository) Update(ctx context.Context, activity domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `UPDATE activities
        SET title=$2, description=$3, category=$4, activity_date=$5, city=$6, venue=$7, updated_at=NOW()
        WHERE activity_id=$1`

	tag, err := tx.Exec(ctx, stmt,
		activity.ID,
		activity.Title,
		activity.Description,
		activity.Category,
		activity.Date,
		activity.City,
		activity.Venue,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}

	host, _ := activity.Host()
	if err = insertOutbox(ctx, tx, activity.ID, "activity.updated", events.ActivityUpdated{
		ActivityID: activity.ID,
		Title:      activity.Title,
		Date:       activity.Date,
		UpdatedBy:  host.Username,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes an activity; attendee rows cascade.
func (r *Repository) Delete(ctx context.Context, activityID, deletedBy string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE activity_id=$1`, activityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}

	if err = insertOutbox(ctx, tx, activityID, "activity.deleted", events.ActivityDeleted{
		ActivityID: activityID,
		DeletedBy:  deletedBy,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get retrieves an activity with its roster, or nil when absent.
func (r *Repository) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE activity_id=$1`

	row := r.pool.QueryRow(ctx, query, activityID)
	var activity domain.Activity
	if err := scanActivity(row, &activity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	attendees, err := r.loadAttendees(ctx, []string{activityID})
	if err != nil {
		return nil, err
	}
	activity.Attendees = attendees[activityID]
	return &activity, nil
}

// List returns activities ordered by date ascending with cursor pagination.
func (r *Repository) List(ctx context.Context, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []interface{}{limit}
	query := `SELECT ` + activityColumns + ` FROM activities`
	if cursor != nil {
		query += ` WHERE (activity_date, activity_id) > ($2, $3)`
		args = append(args, cursor.Date, cursor.ID)
	}
	query += ` ORDER BY activity_date ASC, activity_id ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var activity domain.Activity
		if err := scanActivity(rows, &activity); err != nil {
			return nil, nil, err
		}
		results = append(results, activity)
		ids = append(ids, activity.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	attendees, err := r.loadAttendees(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range results {
		results[i].Attendees = attendees[results[i].ID]
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, next, nil
}

// AddAttendee appends a roster entry and records the join event.
func (r *Repository) AddAttendee(ctx context.Context, activityID string, attendee domain.Attendee) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = insertAttendee(ctx, tx, activityID, attendee); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, activityID, "attendee.joined", events.AttendeeJoined{
		ActivityID: activityID,
		Username:   attendee.Username,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordAttendanceChanged(time.Now().UTC())
	return nil
}

// RemoveAttendee deletes a roster entry and records the leave event.
func (r *Repository) RemoveAttendee(ctx context.Context, activityID, username string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`DELETE FROM activity_attendees WHERE activity_id=$1 AND username=$2`,
		activityID, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotAttending
	}

	if err = insertOutbox(ctx, tx, activityID, "attendee.left", events.AttendeeLeft{
		ActivityID: activityID,
		Username:   username,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordAttendanceChanged(time.Now().UTC())
	return nil
}

func (r *Repository) loadAttendees(ctx context.Context, activityIDs []string) (map[string][]domain.Attendee, error) {
	out := make(map[string][]domain.Attendee, len(activityIDs))
	if len(activityIDs) == 0 {
		return out, nil
	}

	const query = `SELECT activity_id, username, display_name, image, is_host
        FROM activity_attendees WHERE activity_id = ANY($1) ORDER BY joined_at ASC`

	rows, err := r.pool.Query(ctx, query, activityIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var activityID string
		var att domain.Attendee
		if err := rows.Scan(&activityID, &att.Username, &att.DisplayName, &att.Image, &att.IsHost); err != nil {
			return nil, err
		}
		out[activityID] = append(out[activityID], att)
	}
	return out, rows.Err()
}

func insertAttendee(ctx context.Context, tx pgx.Tx, activityID string, att domain.Attendee) error {
	const stmt = `INSERT INTO activity_attendees (activity_id, username, display_name, image, is_host, joined_at)
        VALUES ($1,$2,$3,$4,$5,NOW())`
	_, err := tx.Exec(ctx, stmt, activityID, att.Username, att.DisplayName, att.Image, att.IsHost)
	return err
}

func scanActivity(row pgx.Row, activity *domain.Activity) error {
	return row.Scan(
		&activity.ID,
		&activity.Title,
		&activity.Description,
		&activity.Category,
		&activity.Date,
		&activity.City,
		&activity.Venue,
	)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(activityID string) string
}

var eventCatalog = map[string]EventMetadata{
	"activity.created": {Topic: events.TopicActivities, PartitionKeyFn: identityKey},
	"activity.updated": {Topic: events.TopicActivities, PartitionKeyFn: identityKey},
	"activity.deleted": {Topic: events.TopicActivities, PartitionKeyFn: identityKey},
	"attendee.joined":  {Topic: events.TopicAttendance, PartitionKeyFn: identityKey},
	"attendee.left":    {Topic: events.TopicAttendance, PartitionKeyFn: identityKey},
}

func identityKey(activityID string) string { return activityID }

func insertOutbox(ctx context.Context, tx pgx.Tx, activityID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		activityID,
		eventType,
		meta.Topic,
		meta.PartitionKeyFn(activityID),
		body,
	)
	return err
}
