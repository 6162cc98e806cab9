package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("unknown operator or wrong password")

// Operator is a provisioned checkpoint or front-desk account.
type Operator struct {
	Username     string
	PasswordHash string // bcrypt
	Role         string
}

// OperatorRegistry authenticates config-provisioned operator accounts.
// Accounts are static for the lifetime of the process; there is no
// self-service signup surface.
type OperatorRegistry struct {
	byName map[string]Operator
}

func NewOperatorRegistry(operators []Operator) *OperatorRegistry {
	byName := make(map[string]Operator, len(operators))
	for _, op := range operators {
		byName[op.Username] = op
	}
	return &OperatorRegistry{byName: byName}
}

// Authenticate verifies a username/password pair against the registry.
func (r *OperatorRegistry) Authenticate(username, password string) (*Operator, error) {
	op, ok := r.byName[username]
	if !ok {
		// Burn a comparison anyway so unknown usernames are not
		// distinguishable by timing.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &op, nil
}

// HashPassword produces a bcrypt hash suitable for the operators config
// section.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
