package validator

func init() {
	validate.RegisterValidation("owner_id", validateOwnerID)
}

// Validator checks request payloads and path values, including the owner_id rule.
type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

// ValidateValue checks a single value against rules, e.g. "owner_id".
func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
