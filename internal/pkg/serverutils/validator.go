package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"actually-colab-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest parses the body into dest and runs its validate tags.
func ValidateRequest(ctx *fiber.Ctx, dest interface{}) error {
	if err := ctx.BodyParser(dest); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return apperror.BadRequest(strings.Join(fields, "; "))
		}
		return apperror.BadRequest(err.Error())
	}
	return nil
}
