package storage

import (
	"context"
	"database/sql"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
)

// Environments, teams and categories share one row shape.
type namedTable struct {
	table  string
	entity string
	// refQuery counts rows that reference the named row and block its deletion
	refQuery string
}

var (
	environmentsTable = namedTable{
		table:    "environments",
		entity:   "Environment",
		refQuery: "SELECT COUNT(*) FROM component_instances WHERE environment_id = ?",
	}
	teamsTable = namedTable{
		table:    "teams",
		entity:   "Team",
		refQuery: "SELECT COUNT(*) FROM components WHERE team_id = ?",
	}
	categoriesTable = namedTable{
		table:    "categories",
		entity:   "Category",
		refQuery: "SELECT COUNT(*) FROM components WHERE category_id = ?",
	}
)

type namedRow struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

func (s *Store) listNamed(ctx context.Context, t namedTable) ([]namedRow, error) {
	rows, err := s.query(ctx, s.db, "SELECT id, name, description, created_at, updated_at FROM "+t.table+" ORDER BY name")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", t.table)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var r namedRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", t.table)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) getNamed(ctx context.Context, t namedTable, where string, arg interface{}) (*namedRow, error) {
	var r namedRow
	err := s.queryRow(ctx, s.db,
		"SELECT id, name, description, created_at, updated_at FROM "+t.table+" WHERE "+where+" ORDER BY id LIMIT 1", arg,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", t.table)
	}
	return &r, nil
}

func (s *Store) createNamed(ctx context.Context, t namedTable, in catalog.NamedInput) (*namedRow, error) {
	if err := in.Validate(t.entity); err != nil {
		return nil, err
	}
	now := s.now()
	id, err := s.insert(ctx, s.db,
		"INSERT INTO "+t.table+" (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
		in.Name, in.Description, now, now,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("%s %q already exists", t.entity, in.Name)
		}
		return nil, errors.Wrapf(err, "failed to create %s", t.entity)
	}
	return &namedRow{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   sql.NullTime{Time: now, Valid: true},
		UpdatedAt:   sql.NullTime{Time: now, Valid: true},
	}, nil
}

func (s *Store) deleteNamed(ctx context.Context, t namedTable, id int64) error {
	var refs int
	if err := s.queryRow(ctx, s.db, t.refQuery, id).Scan(&refs); err != nil {
		return errors.Wrapf(err, "failed to count references to %s %d", t.entity, id)
	}
	if refs > 0 {
		return errors.NewConflictError("%s %d is still referenced by %d rows", t.entity, id, refs)
	}
	res, err := s.exec(ctx, s.db, "DELETE FROM "+t.table+" WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s %d", t.entity, id)
	}
	return affected(res, t.entity, id)
}

func (r namedRow) environment() catalog.Environment {
	return catalog.Environment{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time}
}

func (r namedRow) team() catalog.Team {
	return catalog.Team{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time}
}

func (r namedRow) category() catalog.Category {
	return catalog.Category{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time}
}

// ListEnvironments returns every environment ordered by name
func (s *Store) ListEnvironments(ctx context.Context) ([]catalog.Environment, error) {
	rows, err := s.listNamed(ctx, environmentsTable)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Environment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.environment())
	}
	return out, nil
}

// GetEnvironment returns one environment or a NotFoundError
func (s *Store) GetEnvironment(ctx context.Context, id int64) (*catalog.Environment, error) {
	r, err := s.getNamed(ctx, environmentsTable, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewNotFoundError("Environment %d not found", id)
	}
	env := r.environment()
	return &env, nil
}

// FindFirstEnvironment returns the environment with the exact name, or nil
func (s *Store) FindFirstEnvironment(ctx context.Context, where catalog.NameWhere) (*catalog.Environment, error) {
	r, err := s.getNamed(ctx, environmentsTable, "name = ?", where.Name)
	if err != nil || r == nil {
		return nil, err
	}
	env := r.environment()
	return &env, nil
}

// CreateEnvironment inserts an environment
func (s *Store) CreateEnvironment(ctx context.Context, in catalog.NamedInput) (*catalog.Environment, error) {
	r, err := s.createNamed(ctx, environmentsTable, in)
	if err != nil {
		return nil, err
	}
	env := r.environment()
	return &env, nil
}

// DeleteEnvironment removes an environment no instance is deployed in
func (s *Store) DeleteEnvironment(ctx context.Context, id int64) error {
	return s.deleteNamed(ctx, environmentsTable, id)
}

// ListTeams returns every team ordered by name
func (s *Store) ListTeams(ctx context.Context) ([]catalog.Team, error) {
	rows, err := s.listNamed(ctx, teamsTable)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Team, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.team())
	}
	return out, nil
}

// GetTeam returns one team or a NotFoundError
func (s *Store) GetTeam(ctx context.Context, id int64) (*catalog.Team, error) {
	r, err := s.getNamed(ctx, teamsTable, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewNotFoundError("Team %d not found", id)
	}
	team := r.team()
	return &team, nil
}

// CreateTeam inserts a team
func (s *Store) CreateTeam(ctx context.Context, in catalog.NamedInput) (*catalog.Team, error) {
	r, err := s.createNamed(ctx, teamsTable, in)
	if err != nil {
		return nil, err
	}
	team := r.team()
	return &team, nil
}

// DeleteTeam removes a team that owns no component
func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	return s.deleteNamed(ctx, teamsTable, id)
}

// ListCategories returns every category ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.listNamed(ctx, categoriesTable)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.category())
	}
	return out, nil
}

// GetCategory returns one category or a NotFoundError
func (s *Store) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	r, err := s.getNamed(ctx, categoriesTable, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewNotFoundError("Category %d not found", id)
	}
	cat := r.category()
	return &cat, nil
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, in catalog.NamedInput) (*catalog.Category, error) {
	r, err := s.createNamed(ctx, categoriesTable, in)
	if err != nil {
		return nil, err
	}
	cat := r.category()
	return &cat, nil
}

// DeleteCategory removes a category no component belongs to
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteNamed(ctx, categoriesTable, id)
}

// ListRoadmapTypes returns every roadmap type ordered by id
func (s *Store) ListRoadmapTypes(ctx context.Context) ([]catalog.RoadmapType, error) {
	rows, err := s.query(ctx, s.db, "SELECT id, name, description, color, created_at FROM roadmap_types ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list roadmap types")
	}
	defer rows.Close()

	var out []catalog.RoadmapType
	for rows.Next() {
		var rt catalog.RoadmapType
		var created sql.NullTime
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Description, &rt.Color, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan roadmap type")
		}
		rt.CreatedAt = created.Time
		out = append(out, rt)
	}
	return out, rows.Err()
}

// FindFirstRoadmapType returns the roadmap type with the exact name, or nil
func (s *Store) FindFirstRoadmapType(ctx context.Context, where catalog.NameWhere) (*catalog.RoadmapType, error) {
	var rt catalog.RoadmapType
	var created sql.NullTime
	err := s.queryRow(ctx, s.db,
		"SELECT id, name, description, color, created_at FROM roadmap_types WHERE name = ? ORDER BY id LIMIT 1",
		where.Name,
	).Scan(&rt.ID, &rt.Name, &rt.Description, &rt.Color, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query roadmap_types")
	}
	rt.CreatedAt = created.Time
	return &rt, nil
}

// ListUsers returns every user ordered by name
func (s *Store) ListUsers(ctx context.Context) ([]catalog.User, error) {
	rows, err := s.query(ctx, s.db, "SELECT id, name, email, created_at FROM users ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var out []catalog.User
	for rows.Next() {
		var u catalog.User
		var created sql.NullTime
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		u.CreatedAt = created.Time
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser returns one user or a NotFoundError
func (s *Store) GetUser(ctx context.Context, id int64) (*catalog.User, error) {
	var u catalog.User
	var created sql.NullTime
	err := s.queryRow(ctx, s.db, "SELECT id, name, email, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &created)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("User %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user")
	}
	u.CreatedAt = created.Time
	return &u, nil
}

// CreateUser inserts a user
func (s *Store) CreateUser(ctx context.Context, in catalog.UserInput) (*catalog.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	id, err := s.insert(ctx, s.db, "INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)", in.Name, in.Email, now)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("User with email %q already exists", in.Email)
		}
		return nil, errors.Wrap(err, "failed to create user")
	}
	return &catalog.User{ID: id, Name: in.Name, Email: in.Email, CreatedAt: now}, nil
}

// GetUsersByIDs returns the users with the given ids, in id order
func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) ([]catalog.User, error) {
	if len(ids) == 0 {
		return []catalog.User{}, nil
	}
	placeholders, args := inList(ids)
	rows, err := s.query(ctx, s.db, "SELECT id, name, email, created_at FROM users WHERE id IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load users")
	}
	defer rows.Close()

	out := []catalog.User{}
	for rows.Next() {
		var u catalog.User
		var created sql.NullTime
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		u.CreatedAt = created.Time
		out = append(out, u)
	}
	return out, rows.Err()
}
