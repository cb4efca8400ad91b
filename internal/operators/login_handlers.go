package operators

import (
	"encoding/json"
	"errors"
	"strings"

	"extci/internal/errmsg"
	"extci/internal/events"
	"extci/internal/models"
	"extci/internal/utils"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

type loginResponse struct {
	Token    string          `json:"token"`
	Operator models.Operator `json:"operator"`
}

// login exchanges credentials for a token.
//
//	@Summary	Log in as an operator
//	@Tags		operators
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.Operator	true	"credentials"
//	@Success	200		{object}	loginResponse
//	@Failure	400		{object}	errmsg._OperatorInvalidPayload
//	@Failure	401		{object}	errmsg._OperatorWrongPassword
//	@Router		/ci/operators/login [post]
func (a *Auth) login(c fiber.Ctx) error {
	var body models.Operator
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return utils.StatusError(c, errmsg.OperatorInvalidPayload)
	}

	body.Username = strings.TrimSpace(body.Username)
	body.Password = strings.TrimSpace(body.Password)
	if body.Username == "" || body.Password == "" {
		return utils.StatusError(c, errmsg.OperatorInvalidPayload)
	}

	op, err := a.Store.Get(c.RequestCtx(), body.Username)
	if errors.Is(err, ErrNotFound) {
		return utils.StatusError(c, errmsg.OperatorNotExists)
	}
	if err != nil {
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}

	if bcrypt.CompareHashAndPassword(
		[]byte(op.Password),
		[]byte(body.Password),
	) != nil {
		return utils.StatusError(c, errmsg.OperatorWrongPassword)
	}

	token := a.Token(*op)
	events.Em.OperatorLogin(op.Username)

	op.Password = ""

	return c.JSON(loginResponse{Token: token, Operator: *op})
}

// whoami returns the operator behind the presented token.
func whoami(c fiber.Ctx) error {
	return c.JSON(Current(c))
}
