package ir

// ValidationError represents an IR validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the API for structural issues: duplicate value names,
// duplicate property names within a value, embedded types without an
// anonymous value, and endpoints naming values that do not exist.
// Returns all validation errors found (not just the first).
func (a *API) Validate() []error {
	var errs []error

	names := make(map[string]bool, len(a.Values))
	for _, v := range a.Values {
		if names[v.Name] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_value",
				Message: "duplicate value name: " + v.Name,
			})
		}
		names[v.Name] = true
		errs = append(errs, validateProperties(v.Name, v.Properties)...)
	}

	for _, e := range a.Endpoints {
		for _, ref := range []string{e.Request, e.Response} {
			if !names[ref] {
				errs = append(errs, &ValidationError{
					Code:    "missing_value_reference",
					Message: "endpoint " + e.Verb + " " + e.Path + " references unknown value: " + ref,
				})
			}
		}
	}
	return errs
}

func validateProperties(context string, props []PropertySpec) []error {
	var errs []error
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		where := context + "." + p.Name
		if seen[p.Name] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_property",
				Message: "duplicate property: " + where,
			})
		}
		seen[p.Name] = true

		switch t := p.Type.Target.(type) {
		case nil:
			errs = append(errs, &ValidationError{
				Code:    "missing_target",
				Message: "property without type target: " + where,
			})
		case *Embedded:
			if t.Spec == nil {
				errs = append(errs, &ValidationError{
					Code:    "embedded_without_spec",
					Message: "embedded property without value spec: " + where,
				})
				continue
			}
			errs = append(errs, validateProperties(where, t.Spec.Properties)...)
		}
	}
	return errs
}
