package cdcevent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed envelope_schema.json
var envelopeSchemaJSON []byte

// ValidatePayload checks a record value against the change-event payload
// schema. Both envelope form ({"schema":...,"payload":...}) and bare
// payload form are accepted; validation always runs against the payload.
func ValidatePayload(value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("empty record value")
	}

	payload := value

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(value, &probe); err != nil {
		return fmt.Errorf("record value is not a JSON object: %w", err)
	}
	if raw, ok := probe["payload"]; ok {
		payload = raw
	}

	schemaLoader := gojsonschema.NewBytesLoader(envelopeSchemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			descs = append(descs, resultErr.String())
		}
		return fmt.Errorf("change event does not conform to payload schema: %s", strings.Join(descs, "; "))
	}

	return nil
}
