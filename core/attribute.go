package core

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttributeKeyChainID        = attribute.Key("chain_id")
	AttributeKeyBridge         = attribute.Key("bridge")
	AttributeKeyDirection      = attribute.Key("direction")
	AttributeKeyLane           = attribute.Key("lane")
	AttributeKeyNonces         = attribute.Key("nonces")
	AttributeKeyHeight         = attribute.Key("height")
	AttributeKeySubmissionKind = attribute.Key("submission_kind")
	AttributeKeySubmissionID   = attribute.Key("submission_id")
	AttributeKeyOutcome        = attribute.Key("outcome")
	AttributeKeyState          = attribute.Key("state")
	AttributeKeyPackage        = attribute.Key("package")
)

// AttributeGroup prefixes the given key to all attributes.
//
// For example, if the key is "foo" and the key of an attribute is "bar", the new key will be "foo.bar".
func AttributeGroup(key string, attributes ...attribute.KeyValue) []attribute.KeyValue {
	newAttrs := make([]attribute.KeyValue, 0, len(attributes))
	for _, attr := range attributes {
		newAttrs = append(newAttrs, attribute.KeyValue{
			Key:   attribute.Key(key + "." + string(attr.Key)),
			Value: attr.Value,
		})
	}
	return newAttrs
}
