package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/shopspring/decimal"
)

type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Phone     sql.NullString
	Address   sql.NullString
	Balance   decimal.Decimal
	Held      decimal.Decimal
	CreatedAt time.Time
}

const userColumns = `id, username, email, phone, address, balance, held, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.Phone, &i.Address, &i.Balance, &i.Held, &i.CreatedAt)
	return i, err
}

type CreateUserParams struct {
	Username string
	Email    string
	Phone    sql.NullString
	Address  sql.NullString
	Balance  decimal.Decimal
}

const createUser = `
INSERT INTO users (id, username, email, phone, address, balance)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.Phone, arg.Address, arg.Balance))
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

type UpdateProfileParams struct {
	ID       uuid.UUID
	Username string
	Phone    sql.NullString
	Address  sql.NullString
}

const updateProfile = `
UPDATE users SET username = $2, phone = $3, address = $4
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateProfile, arg.ID, arg.Username, arg.Phone, arg.Address))
}

const deposit = `
UPDATE users SET balance = balance + $2
WHERE email = $1
RETURNING ` + userColumns

func (q *Queries) Deposit(ctx context.Context, email string, amount decimal.Decimal) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, deposit, email, amount))
}

const deleteUser = `DELETE FROM users WHERE id = $1`

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}
