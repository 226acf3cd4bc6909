package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/timetable"
)

const timetableColumns = `id, kind, owner_key, owner_name, entries, created_at, updated_at`

type timetableRow struct {
	ID        string         `db:"id"`
	Kind      string         `db:"kind"`
	OwnerKey  string         `db:"owner_key"`
	OwnerName string         `db:"owner_name"`
	Entries   types.JSONText `db:"entries"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func toTimetableRow(tt timetable.Timetable) (timetableRow, error) {
	entries := tt.Entries
	if entries == nil {
		entries = []timetable.Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return timetableRow{}, errors.Wrap(err, "encoding entries")
	}
	return timetableRow{
		ID:        tt.ID,
		Kind:      tt.Kind,
		OwnerKey:  tt.OwnerKey,
		OwnerName: tt.OwnerName,
		Entries:   types.JSONText(raw),
		CreatedAt: tt.CreatedAt.UTC(),
		UpdatedAt: tt.UpdatedAt.UTC(),
	}, nil
}

func (row timetableRow) timetable() (timetable.Timetable, error) {
	entries := []timetable.Entry{}
	if err := row.Entries.Unmarshal(&entries); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "decoding entries")
	}
	return timetable.Timetable{
		ID:        row.ID,
		Kind:      row.Kind,
		OwnerKey:  row.OwnerKey,
		OwnerName: row.OwnerName,
		Entries:   entries,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

type timetableRepository struct {
	repository
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{repository{db: db}}
}

func (repo *timetableRepository) SaveTimetable(ctx context.Context, tt timetable.Timetable, exec ...core.DBExecutor) (timetable.Timetable, error) {
	row, err := toTimetableRow(tt)
	if err != nil {
		return timetable.Timetable{}, err
	}
	var saved timetableRow
	err = get(ctx, repo.ext(exec), &saved, `
		INSERT INTO timetable (`+timetableColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, owner_key) DO UPDATE SET
			owner_name = EXCLUDED.owner_name, entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at
		RETURNING `+timetableColumns,
		row.ID, row.Kind, row.OwnerKey, row.OwnerName, row.Entries, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "saving timetable")
	}
	return saved.timetable()
}

func (repo *timetableRepository) GetTimetable(ctx context.Context, filter timetable.GetFilter, exec ...core.DBExecutor) (timetable.Timetable, error) {
	var (
		cond string
		args []interface{}
	)
	switch {
	case filter.ID != "":
		cond, args = "id = ?", []interface{}{filter.ID}
	case filter.Kind != "" && filter.OwnerKey != "":
		cond, args = "kind = ? AND owner_key = ?", []interface{}{filter.Kind, filter.OwnerKey}
	default:
		return timetable.Timetable{}, timetable.ErrNotFound
	}

	var row timetableRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+timetableColumns+` FROM timetable WHERE `+cond, args...); err != nil {
		return timetable.Timetable{}, trapNoRows(err, timetable.ErrNotFound, "getting timetable")
	}
	return row.timetable()
}

func (repo *timetableRepository) QueryTimetables(ctx context.Context, filter *timetable.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]timetable.Timetable, error) {
	var w where
	if filter != nil {
		if filter.Kind != "" {
			w.add("kind = ?", filter.Kind)
		}
		if filter.OwnerKeys != nil {
			w.add("owner_key = ANY(?)", pq.StringArray(filter.OwnerKeys))
		}
	}

	var rows []timetableRow
	query := `SELECT ` + timetableColumns + ` FROM timetable` + w.String() + orderBy(ordering, "owner_key ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying timetables")
	}
	tts := make([]timetable.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.timetable()
		if err != nil {
			return nil, err
		}
		tts = append(tts, tt)
	}
	return tts, nil
}

func (repo *timetableRepository) DeleteTimetable(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM timetable WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting timetable")
	}
	if n == 0 {
		return timetable.ErrNotFound
	}
	return nil
}
