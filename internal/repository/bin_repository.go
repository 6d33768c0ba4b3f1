package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// BinRepo reads bins and the rooms that contain them.
type BinRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewBinRepo constructs a BinRepo given a DB handle.
func NewBinRepo(db *sql.DB, d database.Dialect) *BinRepo { return &BinRepo{db: db, d: d} }

// ListByScopeTx returns the bins of a program level ordered by id.
func (r *BinRepo) ListByScopeTx(ctx context.Context, tx *sql.Tx, program, level string) ([]model.Bin, error) {
	return r.listByScope(ctx, tx, program, level)
}

// ListByScope is ListByScopeTx outside a transaction.
func (r *BinRepo) ListByScope(ctx context.Context, program, level string) ([]model.Bin, error) {
	return r.listByScope(ctx, r.db, program, level)
}

func (r *BinRepo) listByScope(ctx context.Context, q queryer, program, level string) ([]model.Bin, error) {
	const sel = `SELECT b.id, b.name, b.room_id, COALESCE(rm.name, ''), b.program, b.level, b.capacity
	             FROM bins b
	             LEFT JOIN rooms rm ON rm.id = b.room_id
	             WHERE b.program = ? AND b.level = ?
	             ORDER BY b.id ASC`
	rows, err := q.QueryContext(ctx, r.d.Rebind(sel), strings.ToUpper(strings.TrimSpace(program)), level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bin
	for rows.Next() {
		var b model.Bin
		if err := rows.Scan(&b.ID, &b.Name, &b.RoomID, &b.RoomName, &b.Program, &b.Level, &b.Capacity); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRoom inserts a room and returns its id.  A non-zero ID is kept.
func (r *BinRepo) CreateRoom(ctx context.Context, room model.Room) (uint64, error) {
	return insertWithID(ctx, r.db, r.d, "rooms", room.ID,
		[]string{"name", "capacity", "floor"},
		[]any{room.Name, room.Capacity, room.Floor})
}

// Create inserts a bin and returns its id.  A non-zero ID is kept;
// bin ids define the fill order.
func (r *BinRepo) Create(ctx context.Context, b model.Bin) (uint64, error) {
	return insertWithID(ctx, r.db, r.d, "bins", b.ID,
		[]string{"name", "room_id", "program", "level", "capacity"},
		[]any{b.Name, b.RoomID, strings.ToUpper(strings.TrimSpace(b.Program)), b.Level, b.Capacity})
}
