package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"

	intconfig "trainbackend/internal/config"
	"trainbackend/internal/domain"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// User mirrors the users table columns the API exposes.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// GetByID returns the public user row.
func (r UserRepository) GetByID(id int64) (User, error) {
	var u User
	err := r.db().QueryRow(`
		SELECT id, name, username, email, phone, role, status
		FROM users WHERE id=? LIMIT 1
	`, id).Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &u.Role, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, err
}

// UpdatePreferences replaces the stored preferences blob, last write
// wins. Used by the sync reconciler for offline preference edits.
func (r UserRepository) UpdatePreferences(userID int64, prefs json.RawMessage) error {
	res, err := r.db().Exec(`UPDATE users SET preferences=?, updated_at=NOW() WHERE id=?`, []byte(prefs), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db().QueryRow(`SELECT 1 FROM users WHERE id=?`, userID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundError{Resource: "user"}
			}
			return err
		}
	}
	return nil
}
