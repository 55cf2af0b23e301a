package builtins

// The stub set: built-ins whose behavior depends on facilities the
// core deliberately does not provide. They are registered so lookup
// and arity checks succeed, but invoking one yields a not-available
// error unless the embedder replaces the definition.
func registerStubs(r *Registry) {
	r.registerStub("http.send", 1, "http.send requires a network-enabled host")
	r.registerStub("net.lookup_ip_addr", 1, "net.lookup_ip_addr requires a network-enabled host")
	r.registerStub("crypto.hmac.md5", 2, "crypto built-ins are not available in this build")
	r.registerStub("crypto.hmac.sha1", 2, "crypto built-ins are not available in this build")
	r.registerStub("crypto.hmac.sha256", 2, "crypto built-ins are not available in this build")
	r.registerStub("crypto.x509.parse_certificates", 1, "crypto built-ins are not available in this build")
	r.registerStub("yaml.is_valid", 1, "yaml built-ins are not available in this build")
	r.registerStub("yaml.marshal", 1, "yaml built-ins are not available in this build")
	r.registerStub("yaml.unmarshal", 1, "yaml built-ins are not available in this build")
	r.registerStub("opa.runtime", 0, "opa.runtime is not available in this build")
	r.registerStub("rego.parse_module", 2, "rego.parse_module is not available in this build")
}
