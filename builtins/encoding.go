package builtins

import (
	"encoding/base64"
	"net/url"

	"github.com/termfx/regolith/ast"
	"github.com/termfx/regolith/term"
)

func registerEncoding(r *Registry) {
	r.register("base64.encode", 1, stringOne(func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}))
	r.register("base64.decode", 1, base64Decode)
	r.register("base64url.encode", 1, stringOne(func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}))
	r.register("urlquery.encode", 1, stringOne(url.QueryEscape))
	r.register("urlquery.decode", 1, urlQueryDecode)
	r.register("json.marshal", 1, jsonMarshal)
	r.register("json.unmarshal", 1, jsonUnmarshal)
}

func base64Decode(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	decoded, derr := base64.StdEncoding.DecodeString(s)
	if derr != nil {
		return builtinErr("base64.decode: invalid input")
	}
	return term.Str(string(decoded))
}

func urlQueryDecode(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	decoded, derr := url.QueryUnescape(s)
	if derr != nil {
		return builtinErr("urlquery.decode: invalid input")
	}
	return term.Str(decoded)
}

func jsonMarshal(args []*ast.Node) *ast.Node {
	return term.Str(term.ToJSON(args[0]))
}

func jsonUnmarshal(args []*ast.Node) *ast.Node {
	s, err := unwrapString(args, 0)
	if err != nil {
		return err
	}
	data, derr := term.FromJSON(s)
	if derr != nil {
		return builtinErr("json.unmarshal: invalid JSON")
	}
	return term.FromData(data)
}
