package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

// InspectionRepository stores inspections with their room/capture trees.
// Analysis payloads live as JSONB on the capture row; the room tree is
// replaced wholesale on save, which keeps merge semantics in the use case
// layer instead of in SQL.
type InspectionRepository struct {
	db *sql.DB
}

func NewInspectionRepository(db *sql.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *InspectionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT,
	organization TEXT,
	role TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS inspections (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	company_name TEXT NOT NULL,
	site_name TEXT NOT NULL,
	inspector_name TEXT NOT NULL,
	inspection_date TEXT NOT NULL,
	geo_location TEXT,
	company_logo TEXT,
	scope JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	inspection_id TEXT NOT NULL REFERENCES inspections(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	department TEXT NOT NULL,
	evacuation_plan TEXT,
	plan_requested BOOLEAN NOT NULL DEFAULT FALSE,
	custom_checks JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	position INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS captures (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	original_image TEXT NOT NULL,
	overlay_image TEXT,
	analysis JSONB,
	error_message TEXT,
	position INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inspections_user ON inspections(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_rooms_inspection ON rooms(inspection_id);
CREATE INDEX IF NOT EXISTS idx_captures_room ON captures(room_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *InspectionRepository) Create(ctx context.Context, insp *domain.Inspection) error {
	scopeJSON, err := json.Marshal(insp.Scope)
	if err != nil {
		return fmt.Errorf("marshal scope: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO inspections (
	id, user_id, company_name, site_name, inspector_name, inspection_date, geo_location, company_logo, scope, status, overall_score, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		insp.ID, insp.UserID, insp.CompanyName, insp.SiteName, insp.InspectorName, insp.InspectionDate,
		insp.GeoLocation, insp.CompanyLogo, scopeJSON, string(insp.Status), insp.OverallScore,
		insp.CreatedAt, insp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}

	if err := saveRoomsTx(ctx, tx, insp.ID, insp.Rooms); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	return nil
}

func (r *InspectionRepository) Update(ctx context.Context, insp *domain.Inspection) error {
	scopeJSON, err := json.Marshal(insp.Scope)
	if err != nil {
		return fmt.Errorf("marshal scope: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE inspections
SET company_name = $2, site_name = $3, inspector_name = $4, inspection_date = $5,
    geo_location = $6, company_logo = $7, scope = $8, status = $9, updated_at = $10
WHERE id = $1
`,
		insp.ID, insp.CompanyName, insp.SiteName, insp.InspectorName, insp.InspectionDate,
		insp.GeoLocation, insp.CompanyLogo, scopeJSON, string(insp.Status), insp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update inspection: %w", err)
	}
	return requireRow(res, "update inspection", insp.ID)
}

func (r *InspectionRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM inspections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	return requireRow(res, "delete inspection", id)
}

// GetByID loads the full room/capture tree. An empty userID skips the
// ownership check; the worker runs without a user context.
func (r *InspectionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Inspection, error) {
	query := `
SELECT id, user_id, company_name, site_name, inspector_name, inspection_date, geo_location, company_logo, scope, status, overall_score, created_at, updated_at
FROM inspections
WHERE id = $1`
	args := []any{id}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	insp, err := scanInspection(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get inspection", fmt.Errorf("inspection %s", id))
		}
		return nil, err
	}

	rooms, err := r.loadRooms(ctx, id)
	if err != nil {
		return nil, err
	}
	insp.Rooms = rooms
	return insp, nil
}

// ListByUser returns the list view: top-level rows only, newest first. Room
// trees are loaded per inspection via GetByID.
func (r *InspectionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Inspection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, company_name, site_name, inspector_name, inspection_date, geo_location, company_logo, scope, status, overall_score, created_at, updated_at
FROM inspections
WHERE user_id = $1
ORDER BY updated_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	out := []domain.Inspection{}
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *insp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inspections: %w", err)
	}
	return out, nil
}

// SaveRooms replaces the whole room tree of one inspection.
func (r *InspectionRepository) SaveRooms(ctx context.Context, inspectionID string, rooms []domain.Room) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save rooms tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE inspection_id = $1`, inspectionID); err != nil {
		return fmt.Errorf("clear rooms: %w", err)
	}
	if err := saveRoomsTx(ctx, tx, inspectionID, rooms); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE inspections SET updated_at = $2 WHERE id = $1`, inspectionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch inspection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save rooms tx: %w", err)
	}
	return nil
}

func (r *InspectionRepository) UpdateOverallScore(ctx context.Context, inspectionID string, score float64, status domain.InspectionStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE inspections
SET overall_score = $2, status = $3, updated_at = $4
WHERE id = $1
`, inspectionID, score, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update overall score: %w", err)
	}
	return requireRow(res, "update overall score", inspectionID)
}

func saveRoomsTx(ctx context.Context, tx *sql.Tx, inspectionID string, rooms []domain.Room) error {
	for pos, room := range rooms {
		checksJSON, err := json.Marshal(room.CustomChecks)
		if err != nil {
			return fmt.Errorf("marshal custom checks: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO rooms (id, inspection_id, name, department, evacuation_plan, plan_requested, custom_checks, status, position, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			room.ID, inspectionID, room.Name, room.Department, room.EvacuationPlan,
			room.PlanRequested, checksJSON, string(room.Status), pos, room.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert room: %w", err)
		}

		for cpos, capture := range room.Captures {
			var analysisJSON []byte
			if capture.Analysis != nil {
				analysisJSON, err = json.Marshal(capture.Analysis)
				if err != nil {
					return fmt.Errorf("marshal analysis: %w", err)
				}
			}
			_, err = tx.ExecContext(ctx, `
INSERT INTO captures (id, room_id, original_image, overlay_image, analysis, error_message, position)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
				capture.ID, room.ID, capture.OriginalImage, capture.OverlayImage,
				analysisJSON, capture.Error, cpos,
			)
			if err != nil {
				return fmt.Errorf("insert capture: %w", err)
			}
		}
	}
	return nil
}

func (r *InspectionRepository) loadRooms(ctx context.Context, inspectionID string) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, department, evacuation_plan, plan_requested, custom_checks, status, created_at
FROM rooms
WHERE inspection_id = $1
ORDER BY position
`, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	index := map[string]int{}
	for rows.Next() {
		var room domain.Room
		var plan, checksRaw sql.NullString
		var status string
		if err := rows.Scan(&room.ID, &room.Name, &room.Department, &plan, &room.PlanRequested, &checksRaw, &status, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		room.EvacuationPlan = plan.String
		room.Status = domain.RoomStatus(status)
		room.Captures = []domain.Capture{}
		room.CustomChecks = []domain.CustomCheck{}
		if checksRaw.Valid && checksRaw.String != "" {
			if err := json.Unmarshal([]byte(checksRaw.String), &room.CustomChecks); err != nil {
				return nil, fmt.Errorf("unmarshal custom checks: %w", err)
			}
		}
		index[room.ID] = len(rooms)
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	capRows, err := r.db.QueryContext(ctx, `
SELECT c.room_id, c.id, c.original_image, c.overlay_image, c.analysis, c.error_message
FROM captures c
JOIN rooms r ON r.id = c.room_id
WHERE r.inspection_id = $1
ORDER BY c.position
`, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("load captures: %w", err)
	}
	defer capRows.Close()

	for capRows.Next() {
		var roomID string
		var capture domain.Capture
		var overlay, errMsg sql.NullString
		var analysisRaw []byte
		if err := capRows.Scan(&roomID, &capture.ID, &capture.OriginalImage, &overlay, &analysisRaw, &errMsg); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		capture.OverlayImage = overlay.String
		capture.Error = errMsg.String
		if len(analysisRaw) > 0 {
			capture.Analysis = &domain.AnalysisResult{}
			if err := json.Unmarshal(analysisRaw, capture.Analysis); err != nil {
				return nil, fmt.Errorf("unmarshal analysis: %w", err)
			}
		}
		if i, ok := index[roomID]; ok {
			rooms[i].Captures = append(rooms[i].Captures, capture)
		}
	}
	if err := capRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*domain.Inspection, error) {
	var insp domain.Inspection
	var geo, logo sql.NullString
	var scopeRaw []byte
	var status string

	err := row.Scan(
		&insp.ID, &insp.UserID, &insp.CompanyName, &insp.SiteName, &insp.InspectorName,
		&insp.InspectionDate, &geo, &logo, &scopeRaw, &status, &insp.OverallScore,
		&insp.CreatedAt, &insp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan inspection: %w", err)
	}

	insp.GeoLocation = geo.String
	insp.CompanyLogo = logo.String
	insp.Status = domain.InspectionStatus(status)
	insp.Rooms = []domain.Room{}
	if len(scopeRaw) > 0 {
		if err := json.Unmarshal(scopeRaw, &insp.Scope); err != nil {
			return nil, fmt.Errorf("unmarshal scope: %w", err)
		}
	}
	return &insp, nil
}

func requireRow(res sql.Result, operation, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("inspection %s", id))
	}
	return nil
}
