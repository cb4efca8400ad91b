// Package operators authenticates the accounts allowed to manage jobs.
package operators

import (
	"context"
	"errors"
	"strings"
	"time"

	"extci/internal/errmsg"
	"extci/internal/models"
	"extci/internal/utils"

	sj "github.com/brianvoe/sjwt"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

// LocalsKey is where Middleware stores the authenticated operator.
const LocalsKey = "operator"

const tokenTTL = 30 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type Auth struct {
	Secret string
	Store  Store
}

func NewAuth(secret string, store Store) *Auth {
	return &Auth{Secret: secret, Store: store}
}

// Token issues a signed token for op.
func (a *Auth) Token(op models.Operator) string {
	claims, _ := sj.ToClaims(struct {
		Username string `json:"username"`
	}{op.Username})
	claims.SetExpiresAt(time.Now().Add(tokenTTL))

	return claims.Generate([]byte(a.Secret))
}

// Parse verifies token and returns the operator it names.
func (a *Auth) Parse(token string) (models.Operator, error) {
	var op models.Operator
	if a.Secret == "" || !sj.Verify(token, []byte(a.Secret)) {
		return op, ErrInvalidToken
	}

	claims, err := sj.Parse(token)
	if err != nil {
		return op, ErrInvalidToken
	}
	if err := claims.Validate(); err != nil {
		return op, err
	}
	if err := claims.ToStruct(&op); err != nil {
		return op, err
	}
	if op.Username == "" {
		return op, ErrInvalidToken
	}

	op.Password = ""
	return op, nil
}

// Middleware requires a bearer token, falling back to the authorization
// query parameter for websocket clients that cannot set headers.
func (a *Auth) Middleware(c fiber.Ctx) error {
	var token string

	authHeader := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokens := strings.Fields(authHeader)
		if len(tokens) == 2 {
			token = tokens[1]
		}
	} else {
		token = strings.TrimSpace(c.Query("authorization"))
	}

	if token == "" {
		return utils.StatusError(c, errmsg.OperatorNoToken)
	}

	op, err := a.Parse(token)
	if err != nil {
		return utils.StatusError(c, errmsg.OperatorNoToken)
	}

	utils.SetLocals(c, LocalsKey, op)
	return c.Next()
}

// Current returns the operator stored by Middleware.
func Current(c fiber.Ctx) models.Operator {
	var op models.Operator
	utils.GetLocals(c, LocalsKey, &op)
	return op
}

// Ensure creates or updates an operator with a bcrypt hash of password.
func Ensure(ctx context.Context, store Store, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("operator username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return store.Put(ctx, models.Operator{Username: username, Password: string(hash)})
}
