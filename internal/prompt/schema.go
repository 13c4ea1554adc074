package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Record is one line of model output.
type Record struct {
	Src  string `json:"src" jsonschema:"required,description=term exactly as written in the source text"`
	Dst  string `json:"dst" jsonschema:"required,description=translated term"`
	Type string `json:"type" jsonschema:"required,description=short category of the term"`
}

// RecordSchema renders the JSON schema of Record on a single line.
func RecordSchema() (string, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Record{})
	schema.Version = ""

	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record schema: %w", err)
	}
	return string(b), nil
}
