package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("deliveryslot", func(fl validator.FieldLevel) bool {
		_, err := enums.ParseDeliverySlot(fl.Field().String())
		return err == nil
	})
	// upitxn accepts ids that become valid after trimming and upper-casing;
	// the service stores the normalized form.
	_ = v.RegisterValidation("upitxn", func(fl validator.FieldLevel) bool {
		return orders.ValidTransactionID(orders.NormalizeTransactionID(fl.Field().String()))
	})
	return v
}

// maxBodyBytes caps every JSON request; the largest legitimate body is a
// registration form.
const maxBodyBytes = 64 << 10

// DecodeJSONBody decodes one JSON object into dest, rejecting unknown fields,
// and then runs struct validation.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, body)

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return fieldErrors(err)
	}
	return nil
}

var tagMessages = map[string]string{
	"required":     "is required",
	"email":        "must be a valid email",
	"uuid":         "must be a valid id",
	"deliveryslot": "must be one of morning, afternoon, evening, midnight",
	"upitxn":       "must be 12-16 letters or digits",
}

func fieldErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
