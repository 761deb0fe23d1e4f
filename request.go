package licensing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/licensing/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Null addresses are never valid role holders or recipients.
	_ = v.RegisterValidation("nonnull_address", func(fl validator.FieldLevel) bool { //nolint:errcheck // tag name is static
		a, ok := fl.Field().Interface().(types.Address)
		return ok && !types.IsNull(a)
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct converts validator failures into a MultiError of
// ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var multi MultiError
	for _, fe := range verrs {
		multi.Add(ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	return multi
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nonnull_address":
		return "must be a non-null address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// CreateParams describes a new ledger instance as supplied by the registry.
type CreateParams struct {
	Issuer              types.Address `json:"issuer"               validate:"nonnull_address"`
	Name                string        `json:"name"                 validate:"required,max=200"`
	LiabilityText       string        `json:"liability_text"       validate:"max=20000"`
	AuditRetentionYears uint16        `json:"audit_retention_years" validate:"lte=100"`
	Credential          string        `json:"credential"           validate:"max=1024"`
	// RootAuthority defaults to the engine's registry identity.
	RootAuthority types.Address `json:"root_authority"`
}

// IssueRequest creates an issuance.
type IssueRequest struct {
	Description string        `json:"description"  validate:"required,max=2000"`
	Code        string        `json:"code"         validate:"required,max=128"`
	Value       uint64        `json:"value"`
	AuditTime   time.Time     `json:"audit_time"   validate:"required"`
	AuditRemark string        `json:"audit_remark" validate:"max=2000"`
	Supply      uint64        `json:"supply"`
	Owner       types.Address `json:"owner"        validate:"nonnull_address"`
	// Payment is the native amount offered for the issuance fee.
	Payment uint64 `json:"payment"`
}

// TransferRequest moves units out of the caller's proper ownership.
type TransferRequest struct {
	Issuance uint64        `json:"issuance"`
	To       types.Address `json:"to"      validate:"nonnull_address"`
	Amount   uint64        `json:"amount"`
	Payment  uint64        `json:"payment"`
}

// RecallRequest pulls units the caller holds a recall right over back
// from From.
type RecallRequest struct {
	Issuance uint64        `json:"issuance"`
	From     types.Address `json:"from"     validate:"nonnull_address"`
	Amount   uint64        `json:"amount"`
}
