package storage

import (
	"context"
	"database/sql"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
)

const adrColumns = "id, title, description, status, tags, created_at, updated_at"

func scanADR(r rowScanner) (catalog.ADR, error) {
	var (
		a                 catalog.ADR
		status, tags      string
		created, modified sql.NullTime
	)
	if err := r.Scan(&a.ID, &a.Title, &a.Description, &status, &tags, &created, &modified); err != nil {
		return a, errors.Wrap(err, "failed to scan ADR")
	}
	parsed, err := unmarshalTags(tags)
	if err != nil {
		return a, err
	}
	a.Status = catalog.ADRStatus(status)
	a.Tags = parsed
	a.CreatedAt = created.Time
	a.UpdatedAt = modified.Time
	return a, nil
}

// ListADRs returns ADRs, newest first, optionally filtered by status.
// Participants and links are loaded for every row.
func (s *Store) ListADRs(ctx context.Context, status *catalog.ADRStatus) ([]catalog.ADR, error) {
	query := "SELECT " + adrColumns + " FROM adrs"
	var args []interface{}
	if status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*status))
	}
	return s.listADRs(ctx, query+" ORDER BY created_at DESC, id DESC", args...)
}

// ListADRsByComponent returns the ADRs linked to a component, newest first
func (s *Store) ListADRsByComponent(ctx context.Context, componentID int64) ([]catalog.ADR, error) {
	return s.listADRs(ctx,
		"SELECT "+adrColumns+" FROM adrs WHERE id IN (SELECT adr_id FROM adr_components WHERE component_id = ?) ORDER BY created_at DESC, id DESC",
		componentID,
	)
}

func (s *Store) listADRs(ctx context.Context, query string, args ...interface{}) ([]catalog.ADR, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ADRs")
	}

	out := []catalog.ADR{}
	for rows.Next() {
		a, err := scanADR(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "failed to iterate ADRs")
	}
	// Release the single SQLite connection before loading links
	rows.Close()

	for i := range out {
		if err := s.loadADRLinks(ctx, s.db, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetADR returns one ADR with participants and links, or a NotFoundError
func (s *Store) GetADR(ctx context.Context, id int64) (*catalog.ADR, error) {
	return s.getADR(ctx, s.db, id)
}

func (s *Store) getADR(ctx context.Context, q querier, id int64) (*catalog.ADR, error) {
	a, err := scanADR(s.queryRow(ctx, q, "SELECT "+adrColumns+" FROM adrs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("ADR %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadADRLinks(ctx, q, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) loadADRLinks(ctx context.Context, q querier, a *catalog.ADR) error {
	rows, err := s.query(ctx, q, "SELECT user_id, role FROM adr_participants WHERE adr_id = ? ORDER BY user_id", a.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load ADR participants")
	}
	a.Participants = []catalog.Participant{}
	for rows.Next() {
		var p catalog.Participant
		var role string
		if err := rows.Scan(&p.UserID, &role); err != nil {
			rows.Close()
			return errors.Wrap(err, "failed to scan ADR participant")
		}
		p.Role = catalog.ParticipantRole(role)
		a.Participants = append(a.Participants, p)
	}
	rows.Close()

	if a.ComponentIDs, err = s.loadIDs(ctx, q, "SELECT component_id FROM adr_components WHERE adr_id = ? ORDER BY component_id", a.ID); err != nil {
		return err
	}
	if a.InstanceIDs, err = s.loadIDs(ctx, q, "SELECT instance_id FROM adr_instances WHERE adr_id = ? ORDER BY instance_id", a.ID); err != nil {
		return err
	}
	return nil
}

func (s *Store) loadIDs(ctx context.Context, q querier, query string, arg interface{}) ([]int64, error) {
	rows, err := s.query(ctx, q, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ADR links")
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan ADR link")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateADR inserts an ADR with its participants and links in one transaction
func (s *Store) CreateADR(ctx context.Context, in catalog.ADRInput) (*catalog.ADR, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out *catalog.ADR
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insert(ctx, tx,
			"INSERT INTO adrs (title, description, status, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			in.Title, in.Description, string(in.Status), tags, now, now,
		)
		if err != nil {
			return errors.Wrap(err, "failed to create ADR")
		}
		if err := s.writeADRLinks(ctx, tx, id, in); err != nil {
			return err
		}
		out, err = s.getADR(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateADR replaces an ADR's fields, participants and links
func (s *Store) UpdateADR(ctx context.Context, id int64, in catalog.ADRInput) (*catalog.ADR, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return nil, err
	}
	var out *catalog.ADR
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx,
			"UPDATE adrs SET title = ?, description = ?, status = ?, tags = ?, updated_at = ? WHERE id = ?",
			in.Title, in.Description, string(in.Status), tags, s.now(), id,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to update ADR %d", id)
		}
		if err := affected(res, "ADR", id); err != nil {
			return err
		}
		for _, table := range []string{"adr_participants", "adr_components", "adr_instances"} {
			if _, err := s.exec(ctx, tx, "DELETE FROM "+table+" WHERE adr_id = ?", id); err != nil {
				return errors.Wrapf(err, "failed to clear %s", table)
			}
		}
		if err := s.writeADRLinks(ctx, tx, id, in); err != nil {
			return err
		}
		out, err = s.getADR(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) writeADRLinks(ctx context.Context, tx *sql.Tx, id int64, in catalog.ADRInput) error {
	for _, p := range in.Participants {
		role, err := catalog.ParseParticipantRole(string(p.Role))
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, "INSERT INTO adr_participants (adr_id, user_id, role) VALUES (?, ?, ?)", id, p.UserID, string(role)); err != nil {
			return linkError(err, "participant", p.UserID)
		}
	}
	for _, cid := range dedupe(in.ComponentIDs) {
		if _, err := s.exec(ctx, tx, "INSERT INTO adr_components (adr_id, component_id) VALUES (?, ?)", id, cid); err != nil {
			return linkError(err, "component", cid)
		}
	}
	for _, iid := range dedupe(in.InstanceIDs) {
		if _, err := s.exec(ctx, tx, "INSERT INTO adr_instances (adr_id, instance_id) VALUES (?, ?)", id, iid); err != nil {
			return linkError(err, "instance", iid)
		}
	}
	return nil
}

// DeleteADR removes an ADR. Participants and links cascade.
func (s *Store) DeleteADR(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Postgres cascades; SQLite only when foreign_keys is on, so clear explicitly
		for _, table := range []string{"adr_participants", "adr_components", "adr_instances"} {
			if _, err := s.exec(ctx, tx, "DELETE FROM "+table+" WHERE adr_id = ?", id); err != nil {
				return errors.Wrapf(err, "failed to clear %s", table)
			}
		}
		res, err := s.exec(ctx, tx, "DELETE FROM adrs WHERE id = ?", id)
		if err != nil {
			return errors.Wrapf(err, "failed to delete ADR %d", id)
		}
		return affected(res, "ADR", id)
	})
}

func linkError(err error, kind string, id int64) error {
	switch {
	case db.IsForeignKeyViolation(err):
		return errors.NewValidationError("unknown %s %d", kind, id)
	case db.IsUniqueViolation(err):
		return errors.NewConflictError("duplicate %s %d", kind, id)
	default:
		return errors.Wrapf(err, "failed to link %s %d", kind, id)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
