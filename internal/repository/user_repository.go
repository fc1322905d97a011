package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/csr-service-match/internal/model"
	"github.com/iliyamo/csr-service-match/internal/utils"
)

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,password_hash,role,is_active,created_at,updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create hashes password with the given bcrypt cost, inserts the user and
// returns its ID.  Emails are stored trimmed and lower-cased.
func (r *UserRepo) Create(ctx context.Context, email, name, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return 0, validationf("email and password are required")
	}
	if !model.ValidRole(role) {
		return 0, validationf("unknown role %q", role)
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role, is_active) VALUES (?,?,?,?,1)",
		email, strings.TrimSpace(name), hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// Search lists accounts whose name or email contains q, ignoring case.  A
// non-empty role restricts the result to that role.  Ordered by id.
func (r *UserRepo) Search(ctx context.Context, q, role string) ([]model.User, error) {
	pattern := containsPattern(q)
	query := "SELECT " + userColumns + " FROM users WHERE (LOWER(name) LIKE ?" + likeEscape + " OR LOWER(email) LIKE ?" + likeEscape + ")"
	args := []any{pattern, pattern}
	if role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}
	query += " ORDER BY id"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive suspends (false) or re-activates (true) an account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) (model.User, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return model.User{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", active, id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Stats counts accounts by active flag.
func (r *UserRepo) Stats(ctx context.Context) (model.UserStats, error) {
	var s model.UserStats
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
	        COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0)
	   FROM users`).Scan(&s.Total, &s.Active)
	s.Suspended = s.Total - s.Active
	return s, err
}

// Update applies the non-nil fields of u to account id.  A new password is
// hashed with cost.  Blank name or email and unknown roles are rejected; an
// email held by another account is ErrEmailExists.
func (r *UserRepo) Update(ctx context.Context, id uint64, u model.UserUpdate, cost int) (model.User, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if u.Name != nil {
		if cur.Name = strings.TrimSpace(*u.Name); cur.Name == "" {
			return model.User{}, validationf("name must not be blank")
		}
	}
	if u.Email != nil {
		if cur.Email = strings.ToLower(strings.TrimSpace(*u.Email)); cur.Email == "" {
			return model.User{}, validationf("email must not be blank")
		}
	}
	if u.Role != nil {
		if cur.Role = strings.ToUpper(strings.TrimSpace(*u.Role)); !model.ValidRole(cur.Role) {
			return model.User{}, validationf("unknown role %q", *u.Role)
		}
	}
	if u.Password != nil {
		if *u.Password == "" {
			return model.User{}, validationf("password must not be blank")
		}
		if cur.PasswordHash, err = utils.HashPassword(*u.Password, cost); err != nil {
			return model.User{}, err
		}
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=?, password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		cur.Name, cur.Email, cur.Role, cur.PasswordHash, id); err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}
