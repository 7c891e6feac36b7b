package postgres

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/repository"
)

// SQLSTATE unique_violation
const uniqueViolation = "23505"

var (
	psql        = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	userColumns = []string{"id", "name", "email", "age", "is_active"}
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	id := entity.NewID()
	query, args, err := insertQuery(id, u).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	u.ID = id
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": strings.ToLower(id)}).
		ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Find(ctx context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error) {
	query, args, err := listQuery(f, p).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]entity.User, 0, p.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	query, args, err := updateQuery(strings.ToLower(id), patch).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, repository.ErrNotFound
		case isUniqueViolation(err):
			return nil, repository.ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": strings.ToLower(id)}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureIndexes re-asserts the unique email index; the migration creates it too.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (email)`)
	return err
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func insertQuery(id string, u *entity.User) sq.InsertBuilder {
	return psql.Insert("users").
		Columns(userColumns...).
		Values(id, u.Name, u.Email, u.Age, u.IsActive)
}

func listQuery(f entity.ListFilter, p entity.Page) sq.SelectBuilder {
	b := psql.Select(userColumns...).From("users")
	if f.Query != "" {
		b = b.Where("name ILIKE ?", "%"+likeEscaper.Replace(f.Query)+"%")
	}
	if f.MinAge != nil {
		b = b.Where(sq.GtOrEq{"age": *f.MinAge})
	}
	if f.MaxAge != nil {
		b = b.Where(sq.LtOrEq{"age": *f.MaxAge})
	}
	if f.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *f.IsActive})
	}
	return b.
		OrderBy(`name COLLATE "C"`, "id").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Skip()))
}

func updateQuery(id string, patch entity.UserPatch) sq.UpdateBuilder {
	return psql.Update("users").
		SetMap(patch.Fields()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.IsActive); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ repository.UserRepository = (*UserRepository)(nil)
