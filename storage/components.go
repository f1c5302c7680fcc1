package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
)

const componentColumns = "c.id, c.name, c.description, c.status, c.category_id, c.team_id, c.tags, c.created_at, c.updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComponent(r rowScanner) (catalog.Component, error) {
	var (
		c                 catalog.Component
		status, tags      string
		category, team    sql.NullInt64
		created, modified sql.NullTime
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Description, &status, &category, &team, &tags, &created, &modified); err != nil {
		return c, errors.Wrap(err, "failed to scan component")
	}
	parsed, err := unmarshalTags(tags)
	if err != nil {
		return c, err
	}
	c.Status = catalog.ComponentStatus(status)
	c.CategoryID = ptrInt64(category)
	c.TeamID = ptrInt64(team)
	c.Tags = parsed
	c.CreatedAt = created.Time
	c.UpdatedAt = modified.Time
	return c, nil
}

// componentWhere builds the WHERE clause for a filter. Search is case-insensitive
// over name and description; tag matches one element of the JSON tag array.
func componentWhere(f catalog.ComponentFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		clauses = append(clauses, "(LOWER(c.name) LIKE ? OR LOWER(c.description) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if f.Status != nil {
		clauses = append(clauses, "c.status = ?")
		args = append(args, strings.ToLower(string(*f.Status)))
	}
	if f.CategoryID != nil {
		clauses = append(clauses, "c.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.TeamID != nil {
		clauses = append(clauses, "c.team_id = ?")
		args = append(args, *f.TeamID)
	}
	if f.EnvironmentID != nil {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM component_instances ci WHERE ci.component_id = c.id AND ci.environment_id = ?)")
		args = append(args, *f.EnvironmentID)
	}
	if t := strings.ToLower(strings.TrimSpace(f.Tag)); t != "" {
		clauses = append(clauses, "c.tags LIKE ?")
		args = append(args, `%"`+t+`"%`)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) scanComponents(rows *sql.Rows) ([]catalog.Component, error) {
	defer rows.Close()
	out := []catalog.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListComponents returns components matching the filter ordered by name
func (s *Store) ListComponents(ctx context.Context, filter catalog.ComponentFilter) ([]catalog.Component, error) {
	where, args := componentWhere(filter)
	rows, err := s.query(ctx, s.db, "SELECT "+componentColumns+" FROM components c"+where+" ORDER BY c.name", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list components")
	}
	return s.scanComponents(rows)
}

// PaginateComponents returns one page of components matching the filter
func (s *Store) PaginateComponents(ctx context.Context, filter catalog.ComponentFilter, req catalog.PageRequest) (*catalog.Page[catalog.Component], error) {
	req = req.Normalize()
	where, args := componentWhere(filter)

	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM components c"+where, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "failed to count components")
	}

	pageArgs := append(append([]interface{}{}, args...), req.PageSize, req.Offset())
	rows, err := s.query(ctx, s.db,
		"SELECT "+componentColumns+" FROM components c"+where+" ORDER BY c.name LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to page components")
	}
	items, err := s.scanComponents(rows)
	if err != nil {
		return nil, err
	}
	return &catalog.Page[catalog.Component]{Items: items, PageInfo: catalog.NewPageInfo(total, req)}, nil
}

// GetComponent returns one component or a NotFoundError
func (s *Store) GetComponent(ctx context.Context, id int64) (*catalog.Component, error) {
	return s.getComponent(ctx, s.db, id)
}

func (s *Store) getComponent(ctx context.Context, q querier, id int64) (*catalog.Component, error) {
	c, err := scanComponent(s.queryRow(ctx, q, "SELECT "+componentColumns+" FROM components c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("Component %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComponentsByIDs returns the components with the given ids, in id order
func (s *Store) GetComponentsByIDs(ctx context.Context, ids []int64) ([]catalog.Component, error) {
	if len(ids) == 0 {
		return []catalog.Component{}, nil
	}
	placeholders, args := inList(ids)
	rows, err := s.query(ctx, s.db, "SELECT "+componentColumns+" FROM components c WHERE c.id IN ("+placeholders+") ORDER BY c.id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load components")
	}
	return s.scanComponents(rows)
}

// CreateComponent inserts a component
func (s *Store) CreateComponent(ctx context.Context, in catalog.ComponentInput) (*catalog.Component, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return nil, err
	}
	now := s.now()
	id, err := s.insert(ctx, s.db,
		`INSERT INTO components (name, description, status, category_id, team_id, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Description, string(in.Status), nullInt64(in.CategoryID), nullInt64(in.TeamID), tags, now, now,
	)
	if err != nil {
		return nil, componentWriteError(err, in.Name)
	}
	return &catalog.Component{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		CategoryID:  in.CategoryID,
		TeamID:      in.TeamID,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateComponent applies a partial update
func (s *Store) UpdateComponent(ctx context.Context, id int64, upd catalog.ComponentUpdate) (*catalog.Component, error) {
	var out *catalog.Component
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getComponent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := upd.Apply(c); err != nil {
			return err
		}
		tags, err := marshalTags(c.Tags)
		if err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		_, err = s.exec(ctx, tx,
			`UPDATE components SET name = ?, description = ?, status = ?, category_id = ?, team_id = ?, tags = ?, updated_at = ?
			 WHERE id = ?`,
			c.Name, c.Description, string(c.Status), nullInt64(c.CategoryID), nullInt64(c.TeamID), tags, c.UpdatedAt, id,
		)
		if err != nil {
			return componentWriteError(err, c.Name)
		}
		out = c
		return nil
	})
	return out, err
}

// DeleteComponent removes a component that has no instances
func (s *Store) DeleteComponent(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var instances int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM component_instances WHERE component_id = ?", id).Scan(&instances); err != nil {
			return errors.Wrap(err, "failed to count component instances")
		}
		if instances > 0 {
			return errors.NewConflictError("Component %d has %d instances and cannot be deleted", id, instances)
		}
		res, err := s.exec(ctx, tx, "DELETE FROM components WHERE id = ?", id)
		if err != nil {
			return errors.Wrapf(err, "failed to delete component %d", id)
		}
		return affected(res, "Component", id)
	})
}

// InstancesByEnvironment counts a component's instances per environment, ordered by environment id
func (s *Store) InstancesByEnvironment(ctx context.Context, componentID int64) ([]catalog.EnvironmentCount, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT e.id, e.name, COUNT(ci.id) FROM component_instances ci
		 JOIN environments e ON e.id = ci.environment_id
		 WHERE ci.component_id = ?
		 GROUP BY e.id, e.name
		 ORDER BY e.id`, componentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count instances by environment")
	}
	defer rows.Close()

	out := []catalog.EnvironmentCount{}
	for rows.Next() {
		var ec catalog.EnvironmentCount
		if err := rows.Scan(&ec.EnvironmentID, &ec.EnvironmentName, &ec.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan environment count")
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// CountInstances returns how many instances a component has
func (s *Store) CountInstances(ctx context.Context, componentID int64) (int, error) {
	var n int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM component_instances WHERE component_id = ?", componentID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count instances")
	}
	return n, nil
}

func componentWriteError(err error, name string) error {
	switch {
	case db.IsUniqueViolation(err):
		return errors.NewConflictError("Component %q already exists", name)
	case db.IsForeignKeyViolation(err):
		return errors.NewValidationError("Component %q references an unknown team or category", name)
	default:
		return errors.Wrapf(err, "failed to write component %q", name)
	}
}

func inList(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	marks := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		marks[i] = "?"
	}
	return strings.Join(marks, ", "), args
}
