package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/confluo/confluo/store"
)

func (d *DB) CreateMeeting(ctx context.Context, create *store.Meeting) (*store.Meeting, error) {
	stmt := `INSERT INTO meeting (uid, organizer_id, title, description, start_ts, end_ts, attendees, provider, event_id, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_ts`

	meeting := *create
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.OrganizerID,
		create.Title,
		create.Description,
		create.StartTs,
		create.EndTs,
		create.Attendees,
		create.Provider,
		create.EventID,
		time.Now().Unix(),
	).Scan(&meeting.ID, &meeting.CreatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create meeting")
	}

	return &meeting, nil
}

func (d *DB) ListMeetings(ctx context.Context, find *store.FindMeeting) ([]*store.Meeting, error) {
	where, args := []string{"TRUE"}, []any{}
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}
	if find.ID != nil {
		where = append(where, "id = "+next(*find.ID))
	}
	if find.UID != nil {
		where = append(where, "uid = "+next(*find.UID))
	}
	if find.OrganizerID != nil {
		where = append(where, "organizer_id = "+next(*find.OrganizerID))
	}
	if find.StartAfter != nil {
		where = append(where, "start_ts >= "+next(*find.StartAfter))
	}

	query := `SELECT id, uid, organizer_id, title, description, start_ts, end_ts, attendees, provider, event_id, created_ts
		FROM meeting
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_ts ASC`
	if find.Limit != nil {
		query += " LIMIT " + next(*find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}
	defer rows.Close()

	list := []*store.Meeting{}
	for rows.Next() {
		meeting := &store.Meeting{}
		if err := rows.Scan(
			&meeting.ID,
			&meeting.UID,
			&meeting.OrganizerID,
			&meeting.Title,
			&meeting.Description,
			&meeting.StartTs,
			&meeting.EndTs,
			&meeting.Attendees,
			&meeting.Provider,
			&meeting.EventID,
			&meeting.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan meeting")
		}
		list = append(list, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate meetings")
	}

	return list, nil
}

func (d *DB) DeleteMeeting(ctx context.Context, delete *store.DeleteMeeting) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM meeting WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete meeting")
	}
	return nil
}
