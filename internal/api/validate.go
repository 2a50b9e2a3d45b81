package api

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("coordinates", func(fl validator.FieldLevel) bool {
		coords, ok := fl.Field().Interface().(models.Coordinates)
		return ok && coords.Validate() == nil
	})
	_ = v.RegisterValidation("notfutureyear", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(time.Now().Year())
	})
	return v
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			parts = append(parts, e.Field()+" is required")
		case "coordinates", "len":
			parts = append(parts, e.Field()+" must be [longitude, latitude] within range")
		case "notfutureyear":
			parts = append(parts, e.Field()+" cannot be in the future")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on the '%s' rule", e.Field(), e.Tag()))
		}
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

func trimSite(site *models.Site) {
	for _, field := range []*string{
		&site.Name, &site.Address, &site.City, &site.State, &site.ZipCode, &site.Country, &site.Description,
	} {
		*field = strings.TrimSpace(*field)
	}
}
