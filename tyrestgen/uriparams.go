package tyrestgen

import (
	"github.com/broady/tyrest/internal/pathtmpl"
	"github.com/broady/tyrest/tyrestgen/spec"
)

// ResolvedURIParameters returns the URI parameters of r and its ancestors,
// root to leaf. See ResolveURIParameters.
func ResolvedURIParameters(r *spec.Resource) ([]*spec.Param, error) {
	chain, err := ancestry(r, DefaultMaxDepth)
	if err != nil {
		return nil, err
	}
	return ResolveURIParameters(chain)
}

// ancestry returns the root-to-leaf chain ending at r.
func ancestry(r *spec.Resource, maxDepth int) ([]*spec.Resource, error) {
	var chain []*spec.Resource
	seen := make(map[*spec.Resource]bool)
	for cur := r; cur != nil; cur = cur.Parent() {
		if seen[cur] {
			return nil, ErrCycle
		}
		if len(chain) == maxDepth {
			return nil, ErrTooDeep
		}
		seen[cur] = true
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ResolveURIParameters computes the ordered parameter list of the last
// resource of chain, a root-to-leaf sequence.
//
// Each level contributes its declared parameters whose placeholder appears
// in its own RelativeURI, in declaration order. A name declared again at a
// deeper level replaces the ancestor entry and takes the deeper level's
// position. Placeholders no level declares are not bound; see
// Config.ImplicitURIParameters.
func ResolveURIParameters(chain []*spec.Resource) ([]*spec.Param, error) {
	return resolveURIParameters(chain, false)
}

// resolveURIParameters is ResolveURIParameters. With implicit set, every
// level also contributes its undeclared placeholders as string parameters,
// after its declared ones and in template order.
func resolveURIParameters(chain []*spec.Resource, implicit bool) ([]*spec.Param, error) {
	var params []*spec.Param
	for _, r := range chain {
		tmpl, err := pathtmpl.Parse(r.RelativeURI)
		if err != nil {
			return nil, &TemplateError{Path: r.FullPath(), Err: err}
		}
		for _, p := range levelParameters(r, tmpl, implicit) {
			params = removeParam(params, p.Name)
			params = append(params, p)
		}
	}
	return params, nil
}

func levelParameters(r *spec.Resource, tmpl pathtmpl.Template, implicit bool) []*spec.Param {
	var out []*spec.Param
	declared := make(map[string]bool)
	for _, p := range r.URIParameters {
		if p == nil || declared[p.Name] || !tmpl.Has(p.Name) {
			continue
		}
		declared[p.Name] = true
		out = append(out, p)
	}
	if !implicit {
		return out
	}
	for _, name := range tmpl.Params() {
		if declared[name] {
			continue
		}
		declared[name] = true
		out = append(out, spec.StringParam(name))
	}
	return out
}

func removeParam(params []*spec.Param, name string) []*spec.Param {
	for i, p := range params {
		if p.Name == name {
			return append(params[:i:i], params[i+1:]...)
		}
	}
	return params
}

// checkSiblings reports sibling templates that match the same paths but
// bind differently named parameters, and templates repeating a name.
func checkSiblings(siblings []*spec.Resource) error {
	type seen struct {
		path   string
		params []string
	}
	shapes := make(map[string]seen)
	for _, r := range siblings {
		tmpl, err := pathtmpl.Parse(r.RelativeURI)
		if err != nil {
			return &TemplateError{Path: r.FullPath(), Err: err}
		}
		params := tmpl.Params()
		names := make(map[string]bool, len(params))
		for _, n := range params {
			if names[n] {
				return &AmbiguousURIParameterError{Path: r.FullPath(), Name: n}
			}
			names[n] = true
		}

		shape := tmpl.Shape()
		prev, ok := shapes[shape]
		if !ok {
			shapes[shape] = seen{path: r.FullPath(), params: params}
			continue
		}
		for i := range params {
			if params[i] != prev.params[i] {
				return &AmbiguousURIParameterError{Path: r.FullPath(), Other: prev.path, Name: params[i]}
			}
		}
	}
	return nil
}
