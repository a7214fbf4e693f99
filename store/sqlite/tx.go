// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/solstice-net/solstice/model"
)

type (
	sqliteTx struct {
		tx *sqlx.Tx
	}

	databaseEvent struct {
		model.Event
		Jtags string
	}
)

func (t *sqliteTx) Add(ctx context.Context, event *model.Event) error {
	const stmt = `insert into events
	(kind, created_at, id, pubkey, sig, content, tags)
values
	(:kind, :created_at, :id, :pubkey, :sig, :content, :jtags)
on conflict (id) do nothing`

	jtags, err := json.Marshal(event.Tags)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tags")
	}

	query, args, err := t.tx.BindNamed(stmt, databaseEvent{Event: *event, Jtags: string(jtags)})
	if err != nil {
		return errors.Wrap(err, "failed to bind insert event sql")
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to exec insert event sql")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to process rows affected for insert event sql")
	}
	if rowsAffected == 0 {
		// Already stored: adding the same id twice is a no-op.
		return nil
	}

	return t.addTags(ctx, event)
}

func (t *sqliteTx) addTags(ctx context.Context, event *model.Event) error {
	const stmt = `insert into event_tags (event_id, tag_name, tag_value) values (?, ?, ?)`

	for _, tag := range event.Tags {
		if len(tag) < 2 {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, stmt, event.ID, tag.Key(), tag.Value()); err != nil {
			return errors.Wrapf(err, "failed to index tag %q of event %v", tag.Key(), event.ID)
		}
	}

	return nil
}

func (t *sqliteTx) Query(ctx context.Context, filters ...model.Filter) ([]*model.Event, error) {
	where, params := newWhereBuilder().Build(filters...)

	order := "asc"
	var limitQuery string
	if limit := model.Filters(filters).Limit(); limit > 0 {
		order = "desc"
		limitQuery = " limit :mainlimit"
		params["mainlimit"] = limit
	}

	sql := `
select
	e.kind,
	e.created_at,
	e.id,
	e.pubkey,
	e.sig,
	e.content,
	e.tags as jtags
from
	events e
where e.deleted_at is null and (` + where + `)
order by
	e.created_at ` + order + limitQuery

	query, args, err := t.tx.BindNamed(sql, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bind query events sql: %q", sql)
	}

	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query events sql: %q", sql)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, errors.Wrap(rows.Err(), "failed to iterate events")
}

func scanEvent(rows *sqlx.Rows) (*model.Event, error) {
	var ev databaseEvent

	if err := rows.StructScan(&ev); err != nil {
		return nil, errors.Wrap(err, "failed to struct scan event")
	}
	if len(ev.Jtags) > 0 {
		if err := ev.Tags.Scan(ev.Jtags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal tags")
		}
	}
	if ev.Tags == nil {
		ev.Tags = make(model.Tags, 0)
	}

	return &ev.Event, nil
}

func (t *sqliteTx) Delete(ctx context.Context, eventIDs ...string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`update events set deleted_at = ? where deleted_at is null and id in (?)`,
		time.Now().Unix(), eventIDs)
	if err != nil {
		return errors.Wrap(err, "failed to expand delete events sql")
	}

	// Retiring an unknown id touches no rows, which is fine.
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "failed to exec delete events sql")
	}

	return nil
}

func (t *sqliteTx) Commit() error {
	return errors.Wrap(t.tx.Commit(), "failed to commit sqlite transaction")
}

func (t *sqliteTx) Rollback() error {
	return errors.Wrap(t.tx.Rollback(), "failed to rollback sqlite transaction")
}
