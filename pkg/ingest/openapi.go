package ingest

import (
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/responses"
)

// DefaultPath is the submission route when the definition endpoint has no
// path.
const DefaultPath = "/api/create/survey"

// Path returns the route the endpoint is served on, taken from the
// definition's endpoint URL.
func Path(def *model.Definition) string {
	if def == nil || strings.TrimSpace(def.Endpoint) == "" {
		return DefaultPath
	}
	u, err := url.Parse(def.Endpoint)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultPath
	}
	return u.Path
}

// OpenAPIDocument describes the ingestion endpoint for def.
func OpenAPIDocument(def *model.Definition) *openapi3.T {
	version := "0.0.0"
	title := "Survey ingestion"
	if def != nil {
		if def.Version != "" {
			version = def.Version
		}
		if def.Title != "" {
			title = def.Title + " ingestion"
		}
	}

	errSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("details", openapi3.NewStringSchema()).
		WithRequired([]string{"error"})
	okSchema := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithRequired([]string{"success"})

	errResponse := func(desc string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(desc).WithJSONSchema(errSchema)}
	}

	post := openapi3.NewOperation()
	post.OperationID = "submitSurveyResponse"
	post.Summary = "Append one survey response"
	post.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithDescription("Flat object keyed by field name. A JSON string holding the same object is also accepted.").
		WithJSONSchema(submissionSchema(def))}
	post.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Response stored").WithJSONSchema(okSchema)}),
		openapi3.WithStatus(400, errResponse("Malformed body or missing required fields")),
		openapi3.WithStatus(405, errResponse("Method not allowed")),
		openapi3.WithStatus(500, errResponse("Database insert failed")),
	)

	preflight := openapi3.NewOperation()
	preflight.OperationID = "preflightSurveyResponse"
	preflight.Summary = "CORS pre-flight"
	preflight.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Empty body with CORS headers")}),
	)

	item := &openapi3.PathItem{}
	item.SetOperation("POST", post)
	item.SetOperation("OPTIONS", preflight)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(openapi3.WithPath(Path(def), item)),
	}
}

func submissionSchema(def *model.Definition) *openapi3.Schema {
	schema := openapi3.NewObjectSchema().WithAnyAdditionalProperties()
	if def == nil {
		return schema.WithRequired(append([]string(nil), DefaultRequired...))
	}
	for _, section := range def.Sections {
		for _, field := range section.Fields {
			if field.Internal {
				continue
			}
			schema.WithProperty(field.Name, fieldSchema(field))
		}
	}
	schema.WithProperty(responses.ColumnUserAgent, openapi3.NewStringSchema())
	schema.WithProperty(responses.ColumnSubmissionID, openapi3.NewStringSchema().WithFormat("uuid"))
	schema.WithProperty("submitted_at", openapi3.NewStringSchema().WithFormat("date-time"))

	required := def.ServerRequired
	if len(required) == 0 {
		required = DefaultRequired
	}
	return schema.WithRequired(append([]string(nil), required...))
}

func fieldSchema(field model.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch field.Kind {
	case model.FieldKindCheckbox:
		item := openapi3.NewStringSchema().WithEnum(optionValues(field)...)
		s = openapi3.NewArraySchema().WithItems(item)
		if field.MaxSelections > 0 {
			s.WithMaxItems(int64(field.MaxSelections))
		}
	case model.FieldKindSelect, model.FieldKindRadio:
		s = openapi3.NewStringSchema().WithEnum(optionValues(field)...)
	case model.FieldKindEmail:
		s = openapi3.NewStringSchema().WithFormat("email")
	default:
		s = openapi3.NewStringSchema()
	}
	s.Title = field.DisplayLabel()
	return s
}

func optionValues(field model.Field) []any {
	out := make([]any, 0, len(field.Options))
	for _, opt := range field.Options {
		out = append(out, opt.Value)
	}
	return out
}
