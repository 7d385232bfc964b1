package enrollment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/payment"
)

var (
	trackTag  = "track"
	trackText = "must be one of ai-content, ai-software, ai-automation"

	planTag  = "plan"
	planText = "must be one of basic, pro, premium"

	submissionRejectedText = "we could not process this submission, please review it and try again"
)

// InitValidators registers the enrollment validation tags and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(trackTag, trackValidation)
	core.RegisterCustomTranslation(validate, translator, trackTag, trackText)

	_ = validate.RegisterValidation(planTag, planValidation)
	core.RegisterCustomTranslation(validate, translator, planTag, planText)
}

// Custom Validators

// trackValidation checks that the value is one of Tracks
func trackValidation(fl validator.FieldLevel) bool {
	return Track(fl.Field().String()).IsValid()
}

// planValidation checks that the value names a catalog plan
func planValidation(fl validator.FieldLevel) bool {
	return payment.IsPlan(fl.Field().String())
}
