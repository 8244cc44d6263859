package lsd

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	queryExpr  = regexp.MustCompile(`\{\?([^}]+)\}`)
	simpleExpr = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
)

// expandTemplate substitutes vars into a checkout URL template. ODL feeds
// use either simple {var} expressions or the query form
// {?id,checkout_id,...}; both are supported, unknown variables are an error.
func expandTemplate(template string, vars map[string]string) (string, error) {
	out := queryExpr.ReplaceAllStringFunc(template, func(m string) string {
		names := strings.Split(queryExpr.FindStringSubmatch(m)[1], ",")
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if v, ok := vars[name]; ok {
				pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(v))
			}
		}
		if len(pairs) == 0 {
			return ""
		}
		return "?" + strings.Join(pairs, "&")
	})

	var missing string
	out = simpleExpr.ReplaceAllStringFunc(out, func(m string) string {
		name := simpleExpr.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			missing = name
			return m
		}
		return url.QueryEscape(v)
	})
	if missing != "" {
		return "", errors.Errorf("unbound template variable %q", missing)
	}
	return out, nil
}
