// Package targets implements a streaming, single-pass, zero-buffering
// parser and verifier for an Uptane director "targets" manifest.
//
// The grammar accepted is exactly:
//
//	doc        = "{" "\"signatures\":[" sig ("," sig)* "]"
//	             ",\"signed\":{" signed_body "}" "}"
//	sig        = "{\"keyid\":" HEX ",\"method\":" TEXT ",\"sig\":" HEX "}"
//	signed_body= "\"_type\":" TEXT
//	             ",\"expires\":" TIMESTAMP
//	             ",\"targets\":{" target ("," target)* "}"
//	             ",\"version\":" INT
//	target     = TEXT ":{\"custom\":{\"ecu_identifier\":" TEXT
//	             ",\"hardware_identifier\":" TEXT
//	             ",\"release_counter\":" INT "}"
//	             ",\"hashes\":{" hash ("," hash)* "}"
//	             ",\"length\":" INT "}"
//	hash       = TEXT ":" HEX
//
// No whitespace is tolerated anywhere the grammar does not explicitly
// include it, fields are accepted positionally, and unknown fields are
// a structural failure. The document is never buffered in memory: the
// parser reads one byte at a time from the caller-supplied Source, and
// while the cursor is inside the "signed" object it tees every byte
// into every live VerifyContext in the same pass.
package targets
