package spec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrCycle is reported when a resource is reachable more than once from the
// root, which includes every cycle.
var ErrCycle = errors.New("spec: resource linked more than once")

// ValidationError reports a structural problem in a spec tree.
type ValidationError struct {
	// Path locates the offending node, e.g. "/items/{id} GET".
	Path    string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "spec: " + e.Message
	}
	return fmt.Sprintf("spec: %s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Validate checks api for structural errors: missing required fields,
// unknown verbs, status codes outside [100,599], duplicate status codes
// within a method and duplicate verbs within a resource.
// All problems are returned joined.
func Validate(api *API) error {
	if api == nil {
		return &ValidationError{Message: "nil API"}
	}

	if err := checkAcyclic(api); err != nil {
		return err
	}

	var errs []error
	if err := validate.Struct(api); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, &ValidationError{
					Path:    fe.Namespace(),
					Message: fmt.Sprintf("failed %q validation", fe.Tag()),
					Cause:   fe,
				})
			}
		} else {
			errs = append(errs, &ValidationError{Message: err.Error(), Cause: err})
		}
	}

	if err := api.Walk(func(r *Resource) error {
		errs = append(errs, checkMethods(r)...)
		return nil
	}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// checkMethods reports duplicate verbs on r and duplicate status codes
// within each of its methods.
func checkMethods(r *Resource) []error {
	var errs []error
	verbs := make(map[string]bool)
	for _, m := range r.Methods {
		if m == nil {
			continue
		}
		verb := strings.ToLower(m.Verb)
		where := r.FullPath() + " " + strings.ToUpper(verb)
		if verbs[verb] {
			errs = append(errs, &ValidationError{Path: where, Message: "duplicate method"})
		}
		verbs[verb] = true

		codes := make(map[int]bool)
		for _, resp := range m.Responses {
			if resp == nil {
				continue
			}
			if codes[resp.Code] {
				errs = append(errs, &ValidationError{
					Path:    where,
					Message: fmt.Sprintf("duplicate response status %d", resp.Code),
				})
			}
			codes[resp.Code] = true
		}
	}
	return errs
}

func checkAcyclic(api *API) error {
	seen := make(map[*Resource]bool)
	var visit func(rs []*Resource, prefix string) error
	visit = func(rs []*Resource, prefix string) error {
		for _, r := range rs {
			if r == nil {
				continue
			}
			path := prefix + strings.TrimSuffix(r.RelativeURI, "/")
			if seen[r] {
				return &ValidationError{Path: path, Message: ErrCycle.Error(), Cause: ErrCycle}
			}
			seen[r] = true
			if err := visit(r.Resources, path); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(api.Resources, "")
}
