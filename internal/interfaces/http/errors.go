package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// respondError traduce los errores del dominio a status HTTP con el par afectado en el cuerpo.
func respondError(c *fiber.Ctx, err error) error {
	body := dto.ErrorResponse{Message: err.Error()}
	var se *domain.StockError
	if errors.As(err, &se) {
		body.VariationID = se.VariationID
		body.LocationID = se.LocationID
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, body.Code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, body.Code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrConsistency):
		status, body.Code = fiber.StatusConflict, "CONSISTENCY"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		status, body.Code = fiber.StatusConflict, "CONCURRENCY_CONFLICT"
	case errors.Is(err, domain.ErrNotFound):
		status, body.Code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, body.Code = fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflict):
		status, body.Code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, context.DeadlineExceeded):
		status, body.Code = fiber.StatusGatewayTimeout, "TIMEOUT"
	default:
		body.Code = "INTERNAL"
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// actor devuelve negocio y usuario del token; ok=false si faltan.
func actor(c *fiber.Ctx) (businessID, userID string, ok bool) {
	businessID, userID = GetBusinessID(c), GetUserID(c)
	return businessID, userID, businessID != "" && userID != ""
}
