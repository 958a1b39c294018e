package http

import (
	"net/http"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
)

// openAPI handles GET /openapi.json.
func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildOpenAPI(s.Engine.Catalog(), s.version))
}

// BuildOpenAPI describes the JSON API. Each tool gets its own submit path
// whose request body is derived from the tool's form.
func BuildOpenAPI(cat *catalog.Catalog, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Tooldeck API",
			Description: "Form-driven logistics tools: options, submission, results.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}

	toolParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("tool").
		WithDescription("Tool id").
		WithSchema(openapi3.NewStringSchema())}
	visitParam := &openapi3.ParameterRef{Value: &openapi3.Parameter{
		In:          openapi3.ParameterInHeader,
		Name:        VisitHeader,
		Description: "Visitor UUID; defaults to the identity cookie",
		Schema:      openapi3.NewStringSchema().WithFormat("uuid").NewRef(),
	}}

	list := operation("listTools", "List tools")
	list.AddResponse(http.StatusOK, jsonResponse("Tool summaries", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))
	doc.Paths.Set("/api/tools", &openapi3.PathItem{Get: list})

	get := operation("getTool", "Get a tool definition")
	get.AddResponse(http.StatusOK, jsonResponse("Tool definition", openapi3.NewObjectSchema()))
	get.AddResponse(http.StatusNotFound, errorResponse("Unknown tool"))
	doc.Paths.Set("/api/tools/{tool}", &openapi3.PathItem{Get: get, Parameters: openapi3.Parameters{toolParam}})

	state := operation("getState", "Get the visit state, fetching options on first use")
	state.Parameters = openapi3.Parameters{visitParam}
	state.AddResponse(http.StatusOK, jsonResponse("Visit state", visitSchema()))
	state.AddResponse(http.StatusNotFound, errorResponse("Unknown tool"))
	doc.Paths.Set("/api/tools/{tool}/state", &openapi3.PathItem{Get: state, Parameters: openapi3.Parameters{toolParam}})

	reset := operation("resetState", "Return from results to the form")
	reset.Parameters = openapi3.Parameters{visitParam}
	reset.AddResponse(http.StatusOK, jsonResponse("Visit state", visitSchema()))
	reset.AddResponse(http.StatusNotFound, errorResponse("No visit"))
	reset.AddResponse(http.StatusConflict, errorResponse("Nothing to reset"))
	doc.Paths.Set("/api/tools/{tool}/reset", &openapi3.PathItem{Post: reset, Parameters: openapi3.Parameters{toolParam}})

	for _, tool := range cat.List() {
		op := operation("submit-"+tool.ID, "Submit "+tool.Title)
		op.Description = tool.Description
		if tool.Category != "" {
			op.Tags = []string{tool.Category}
		}
		op.Parameters = openapi3.Parameters{visitParam}
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchema(FormSchema(tool.Form))}
		op.AddResponse(http.StatusOK, jsonResponse("Visit state; a failed request shows as a notice", visitSchema()))
		op.AddResponse(http.StatusConflict, errorResponse("A submission is already in flight or results are showing"))
		op.AddResponse(http.StatusUnprocessableEntity, errorResponse("Validation failed; fields holds reasons by path"))
		doc.Paths.Set("/api/tools/"+tool.ID+"/submit", &openapi3.PathItem{Post: op})
	}
	return doc
}

// FormSchema derives a JSON schema from a form. Choice fields list their
// static choices; options fetched from the backend are not enumerated.
func FormSchema(form schema.Form) *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	var required []string
	for _, f := range form.Fields {
		obj.WithProperty(f.Name, fieldSchema(f))
		if f.Required || f.Kind == schema.KindGroup {
			required = append(required, f.Name)
		}
	}
	if len(required) > 0 {
		obj.WithRequired(required)
	}
	return obj
}

func fieldSchema(f schema.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch f.Kind {
	case schema.KindNumber:
		s = openapi3.NewFloat64Schema()
		if f.Positive {
			s.WithMin(0).WithExclusiveMin(true)
		}
		if f.Min != nil {
			s.WithMin(*f.Min)
		}
		if f.Max != nil {
			s.WithMax(*f.Max)
		}
	case schema.KindCheckbox:
		s = openapi3.NewBoolSchema()
	case schema.KindMultiSelect:
		s = openapi3.NewArraySchema().WithItems(choiceSchema(f))
		if n := f.MinEntries(); n > 0 {
			s.WithMinItems(int64(n))
		}
	case schema.KindSelect, schema.KindRadio:
		s = choiceSchema(f)
	case schema.KindGroup:
		s = openapi3.NewArraySchema().WithItems(FormSchema(schema.Form{Fields: f.Fields}))
		s.WithMinItems(int64(f.MinEntries()))
	default:
		s = openapi3.NewStringSchema()
		if f.Required {
			s.WithMinLength(1)
		}
	}
	s.Title = f.DisplayLabel()
	s.Description = f.Help
	return s
}

func choiceSchema(f schema.Field) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	if len(f.Choices) > 0 {
		values := make([]any, len(f.Choices))
		for i, c := range f.Choices {
			values[i] = c
		}
		s.WithEnum(values...)
	}
	return s
}

func operation(id, summary string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	return op
}

func jsonResponse(description string, s *openapi3.Schema) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(description).WithJSONSchema(s)
}

func errorResponse(description string) *openapi3.Response {
	body := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))
	return jsonResponse(description, body)
}

func visitSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("state", openapi3.NewObjectSchema().
			WithProperty("phase", openapi3.NewStringSchema().WithEnum(
				"init", "fetching-options", "idle-with-form", "fetching-results", "results-visible")).
			WithProperty("options", openapi3.NewObjectSchema()).
			WithProperty("form_data", openapi3.NewObjectSchema()).
			WithProperty("results", openapi3.NewObjectSchema())).
		WithProperty("output", openapi3.NewObjectSchema()).
		WithProperty("markdown", openapi3.NewStringSchema())
}
