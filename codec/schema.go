package codec

import (
	_ "embed"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

// Schema names in the embedded document.
const (
	schemaBatch        = "BatchResponse"
	schemaRegistration = "Registration"
	schemaConfig       = "BridgeConfig"
	schemaLight        = "Light"
	schemaLightMap     = "LightMap"
	schemaGroup        = "Group"
	schemaGroupMap     = "GroupMap"
	schemaScene        = "Scene"
	schemaSceneMap     = "SceneMap"
	schemaDiscovery    = "DiscoveryReply"
)

//go:embed schema.yaml
var schemaDocument []byte

var (
	schemaOnce sync.Once
	schemaDoc  *openapi3.T
	schemaErr  error
)

func loadSchemas() (*openapi3.T, error) {
	schemaOnce.Do(func() {
		loader := openapi3.NewLoader()

		doc, err := loader.LoadFromData(schemaDocument)
		if err != nil {
			schemaErr = errors.Wrap(err, "failed to load payload schema")
			return
		}

		if err := doc.Validate(loader.Context); err != nil {
			schemaErr = errors.Wrap(err, "invalid payload schema")
			return
		}

		schemaDoc = doc
	})

	return schemaDoc, schemaErr
}

// validate checks a generically decoded JSON value against a named schema.
func validate(name string, value any) error {
	doc, err := loadSchemas()
	if err != nil {
		return err
	}

	ref, ok := doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return errors.Newf("schema %q not found", name)
	}

	//nolint:wrapcheck // callers wrap into ProtocolError
	return ref.Value.VisitJSON(value)
}
