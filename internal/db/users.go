package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/theLastOfCats/storefront/internal/model"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `id, name, email, password_hash`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (db *DB) CreateUser(name, email, passwordHash string) (*model.User, error) {
	if _, err := db.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &model.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: passwordHash}
	_, err := db.Exec(`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, time.Now().UnixMilli())
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (db *DB) GetUserByEmail(email string) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (db *DB) GetUserByID(id string) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (db *DB) UserExists(id string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (db *DB) UpdatePassword(userID string, passwordHash string) error {
	_, err := db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	return err
}

// UpsertDevice records the push credential of one device for one user.
func (db *DB) UpsertDevice(d model.Device) error {
	query := db.Upsert("devices",
		[]string{"id", "user_id", "push_token", "platform", "updated_at"},
		[]string{"id", "user_id"},
		[]string{"push_token", "platform", "updated_at"})
	_, err := db.Exec(query, d.ID, d.UserID, d.PushToken, d.Platform, time.Now().UnixMilli())
	return err
}

func (db *DB) DeleteDevice(userID, deviceID string) error {
	_, err := db.Exec(`DELETE FROM devices WHERE user_id = ? AND id = ?`, userID, deviceID)
	return err
}

func (db *DB) ListDevices(userID string) ([]model.Device, error) {
	rows, err := db.Query(`SELECT id, user_id, push_token, platform, updated_at FROM devices WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.PushToken, &d.Platform, &d.UpdatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// modernc.org/sqlite reports "constraint failed: UNIQUE constraint failed: ..."
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
