package storage

import (
	"context"
	"database/sql"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
)

const instanceColumns = "id, component_id, environment_id, hostname, specs, created_at, updated_at"

func scanInstance(r rowScanner) (catalog.Instance, error) {
	var (
		in                catalog.Instance
		specs             string
		created, modified sql.NullTime
	)
	if err := r.Scan(&in.ID, &in.ComponentID, &in.EnvironmentID, &in.Hostname, &specs, &created, &modified); err != nil {
		return in, errors.Wrap(err, "failed to scan instance")
	}
	parsed, err := unmarshalSpecs(specs)
	if err != nil {
		return in, err
	}
	in.Specs = parsed
	in.CreatedAt = created.Time
	in.UpdatedAt = modified.Time
	return in, nil
}

// FindFirstInstance returns the lowest-id instance pairing the component and
// environment, skipping ExcludeID when set. Returns nil when none matches.
func (s *Store) FindFirstInstance(ctx context.Context, where catalog.InstanceWhere) (*catalog.Instance, error) {
	return s.findFirstInstance(ctx, s.db, where)
}

func (s *Store) findFirstInstance(ctx context.Context, q querier, where catalog.InstanceWhere) (*catalog.Instance, error) {
	query := "SELECT " + instanceColumns + " FROM component_instances WHERE component_id = ? AND environment_id = ?"
	args := []interface{}{where.ComponentID, where.EnvironmentID}
	if where.ExcludeID != nil {
		query += " AND id <> ?"
		args = append(args, *where.ExcludeID)
	}
	query += " ORDER BY id LIMIT 1"

	in, err := scanInstance(s.queryRow(ctx, q, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// ListInstances returns instances, optionally restricted to one component
func (s *Store) ListInstances(ctx context.Context, componentID *int64) ([]catalog.Instance, error) {
	query := "SELECT " + instanceColumns + " FROM component_instances"
	var args []interface{}
	if componentID != nil {
		query += " WHERE component_id = ?"
		args = append(args, *componentID)
	}
	rows, err := s.query(ctx, s.db, query+" ORDER BY id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list instances")
	}
	return scanInstances(rows)
}

// GetInstancesByIDs returns the instances with the given ids, in id order
func (s *Store) GetInstancesByIDs(ctx context.Context, ids []int64) ([]catalog.Instance, error) {
	if len(ids) == 0 {
		return []catalog.Instance{}, nil
	}
	placeholders, args := inList(ids)
	rows, err := s.query(ctx, s.db, "SELECT "+instanceColumns+" FROM component_instances WHERE id IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load instances")
	}
	return scanInstances(rows)
}

func scanInstances(rows *sql.Rows) ([]catalog.Instance, error) {
	defer rows.Close()
	out := []catalog.Instance{}
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// GetInstance returns one instance or a NotFoundError
func (s *Store) GetInstance(ctx context.Context, id int64) (*catalog.Instance, error) {
	in, err := scanInstance(s.queryRow(ctx, s.db, "SELECT "+instanceColumns+" FROM component_instances WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("Instance %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// CreateInstance inserts an instance after checking the (component, environment) pair is free
func (s *Store) CreateInstance(ctx context.Context, in catalog.InstanceInput) (*catalog.Instance, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	specs, err := marshalSpecs(in.Specs)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := catalog.ValidateComponentInstance(ctx, txInstances{s, tx}, in.ComponentID, in.EnvironmentID, nil); err != nil {
			return err
		}
		id, err = s.insert(ctx, tx,
			`INSERT INTO component_instances (component_id, environment_id, hostname, specs, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			in.ComponentID, in.EnvironmentID, in.Hostname, specs, now, now,
		)
		if err != nil {
			return instanceWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &catalog.Instance{
		ID:            id,
		ComponentID:   in.ComponentID,
		EnvironmentID: in.EnvironmentID,
		Hostname:      in.Hostname,
		Specs:         in.Specs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateInstance replaces an instance, excluding itself from the uniqueness check
func (s *Store) UpdateInstance(ctx context.Context, id int64, in catalog.InstanceInput) (*catalog.Instance, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	specs, err := marshalSpecs(in.Specs)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var created sql.NullTime
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.queryRow(ctx, tx, "SELECT created_at FROM component_instances WHERE id = ?", id).Scan(&created); err != nil {
			if err == sql.ErrNoRows {
				return errors.NewNotFoundError("Instance %d not found", id)
			}
			return errors.Wrap(err, "failed to load instance")
		}
		exclude := id
		if err := catalog.ValidateComponentInstance(ctx, txInstances{s, tx}, in.ComponentID, in.EnvironmentID, &exclude); err != nil {
			return err
		}
		_, err := s.exec(ctx, tx,
			`UPDATE component_instances SET component_id = ?, environment_id = ?, hostname = ?, specs = ?, updated_at = ?
			 WHERE id = ?`,
			in.ComponentID, in.EnvironmentID, in.Hostname, specs, now, id,
		)
		if err != nil {
			return instanceWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &catalog.Instance{
		ID:            id,
		ComponentID:   in.ComponentID,
		EnvironmentID: in.EnvironmentID,
		Hostname:      in.Hostname,
		Specs:         in.Specs,
		CreatedAt:     created.Time,
		UpdatedAt:     now,
	}, nil
}

// DeleteInstance removes an instance. ADR links cascade.
func (s *Store) DeleteInstance(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, "DELETE FROM component_instances WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete instance %d", id)
	}
	return affected(res, "Instance", id)
}

// txInstances runs the uniqueness lookup inside an open transaction
type txInstances struct {
	s  *Store
	tx *sql.Tx
}

func (t txInstances) FindFirstInstance(ctx context.Context, where catalog.InstanceWhere) (*catalog.Instance, error) {
	return t.s.findFirstInstance(ctx, t.tx, where)
}

func instanceWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return errors.NewConflictError(catalog.MsgDuplicateInstance)
	case db.IsForeignKeyViolation(err):
		return errors.NewValidationError("Instance references an unknown component or environment")
	default:
		return errors.Wrap(err, "failed to write instance")
	}
}
