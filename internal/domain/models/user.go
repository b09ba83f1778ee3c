package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// User - учетная запись вместе с профилем, который нужен для генерации истории
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"`
	Age       int       `json:"age" db:"age"`
	Gender    string    `json:"gender" db:"gender"`
	Interests Interests `json:"interests" db:"interests"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser() *User {
	return &User{
		ID:        uuid.New(),
		Interests: Interests{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Interests хранится в postgres как jsonb
type Interests []string

func (i Interests) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}

	data, err := json.Marshal([]string(i))
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

func (i *Interests) Scan(src any) error {
	var data []byte

	switch v := src.(type) {
	case nil:
		*i = Interests{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("interests: unsupported source type")
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}

	*i = out

	return nil
}
