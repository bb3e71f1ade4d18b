package preference

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

var (
	directionTag  = "direction"
	directionText = "direction must be one of: " + joinDirections(", ")
)

func joinDirections(sep string) string {
	names := make([]string, 0, len(Directions))
	for _, d := range Directions {
		names = append(names, string(d))
	}
	return strings.Join(names, sep)
}

// InitValidators registers the preference validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(directionTag, directionValidation)
	core.RegisterCustomTranslation(validate, translator, directionTag, directionText)
}

// Custom Validators

// directionValidation checks that the provided direction is one of Directions
func directionValidation(fl validator.FieldLevel) bool {
	switch d := fl.Field().Interface().(type) {
	case Direction:
		return d.IsValid()
	case string:
		return Direction(d).IsValid()
	default:
		return false
	}
}
