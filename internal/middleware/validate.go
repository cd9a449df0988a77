package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/penshort/teamkeys/internal/apperr"
)

const inputKey contextKey = "input"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field errors are reported by
// their JSON name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// Validate decodes the JSON request body into T, validates it and stores
// it in the request context. An empty body decodes as an empty object.
func Validate[T any]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			input := new(T)

			if r.Body != nil {
				err := json.NewDecoder(r.Body).Decode(input)
				if err != nil && !errors.Is(err, io.EOF) {
					apperr.Write(w, apperr.Validation("Invalid JSON body", nil))
					return
				}
			}

			if err := Validator().Struct(input); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					apperr.Write(w, apperr.Validation("Invalid request", fieldErrors(verrs)))
					return
				}
				apperr.Write(w, apperr.Validation("Invalid request", nil))
				return
			}

			ctx := context.WithValue(r.Context(), inputKey, input)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InputFromContext returns the validated input stored by Validate[T].
func InputFromContext[T any](ctx context.Context) (*T, bool) {
	input, ok := ctx.Value(inputKey).(*T)
	return input, ok
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if _, rest, ok := strings.Cut(name, "."); ok {
			name = rest
		}
		fields[name] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "startswith":
		return "must start with " + fe.Param()
	default:
		return "is invalid"
	}
}
