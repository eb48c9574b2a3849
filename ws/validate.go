package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akinalp/yapyap/pkg"
)

// validate, inbound payload struct'larının validate tag'lerini kontrol eder.
// *validator.Validate goroutine-safe'dir ve struct metadata'sını cache'ler.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Hata mesajlarında Go alan adı yerine json adı görünsün
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodePayload, event.Data'yı dst'ye çevirir ve validate eder.
//
// event.Data tipi any (JSON decode sonrası map[string]any), doğrudan cast
// edilemez: marshal + unmarshal ile hedef struct'a aktarılır.
// Dönen error'lar pkg.ErrBadRequest'i sarar.
func decodePayload(data any, dst any) error {
	if data == nil {
		data = map[string]any{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: invalid payload", pkg.ErrBadRequest)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid payload", pkg.ErrBadRequest)
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, describeValidation(err))
	}
	return nil
}

// describeValidation, ilk validation hatasını okunur tek satıra çevirir.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid payload"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
