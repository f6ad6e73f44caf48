// Package openapi generates the OpenAPI 3.1 document for the Coursegate
// HTTP surface. The endpoint set is fixed, so the document is built once
// at startup and served verbatim.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI spec for the public API.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Coursegate API",
			Description: "Authorization boundary for the course platform: admin data gateway, enrollment, identity webhook, and per-user reads.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}
	doc.Components.Schemas["DataResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"data": &openapi3.SchemaRef{Value: &openapi3.Schema{}},
			},
		},
	}
	doc.Components.Schemas["EnrollResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success":        &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"enrollmentId":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"pendingPayment": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()
	addGatewayPath(doc)
	addEnrollPath(doc)
	addWebhookPath(doc)
	addUserDataPath(doc)
	addHealthPaths(doc)

	return doc
}

func addGatewayPath(doc *openapi3.T) {
	op := &openapi3.Operation{
		OperationID: "adminCrud",
		Summary:     "Execute a generic data operation (admin only)",
		Tags:        []string{"admin"},
		Security:    bearerSecurity(),
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(&openapi3.Schema{
				Type:     &openapi3.Types{"object"},
				Required: []string{"action", "table"},
				Properties: openapi3.Schemas{
					"action": &openapi3.SchemaRef{Value: &openapi3.Schema{
						Type: &openapi3.Types{"string"},
						Enum: []interface{}{"select", "insert", "update", "delete"},
					}},
					"table":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					"data":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					"filters": &openapi3.SchemaRef{Value: filterArraySchema()},
					"select":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					"order": &openapi3.SchemaRef{Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"column":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"ascending": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
						},
					}},
				},
			}),
		},
		Responses: responses(map[string]string{
			"200": "Operation result rows",
			"400": "Structurally invalid request",
			"401": "Missing or invalid token",
			"403": "Caller is not an admin",
		}),
	}
	doc.Paths.Set("/api/v1/admin/crud", &openapi3.PathItem{Post: op})
}

func addEnrollPath(doc *openapi3.T) {
	op := &openapi3.Operation{
		OperationID: "enroll",
		Summary:     "Enroll the authenticated student in a course",
		Tags:        []string{"enrollment"},
		Security:    bearerSecurity(),
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(&openapi3.Schema{
				Type:     &openapi3.Types{"object"},
				Required: []string{"courseId"},
				Properties: openapi3.Schemas{
					"courseId": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
				},
			}),
		},
		Responses: responses(map[string]string{
			"200": "Enrollment created",
			"400": "Malformed course ID",
			"401": "Missing or invalid token",
			"404": "Course not found or not active",
			"409": "Already enrolled",
			"429": "Attempt limit exceeded",
		}),
	}
	doc.Paths.Set("/api/v1/enroll", &openapi3.PathItem{Post: op})
}

func addWebhookPath(doc *openapi3.T) {
	op := &openapi3.Operation{
		OperationID: "identityWebhook",
		Summary:     "Receive a signed identity lifecycle event",
		Tags:        []string{"webhooks"},
		Parameters: openapi3.Parameters{
			headerParam("svix-id"),
			headerParam("svix-timestamp"),
			headerParam("svix-signature"),
		},
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(&openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"type": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					"data": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
				},
			}),
		},
		Responses: responses(map[string]string{
			"200": "Event applied",
			"400": "Malformed event",
			"401": "Signature verification failed",
		}),
	}
	doc.Paths.Set("/api/v1/webhooks/identity", &openapi3.PathItem{Post: op})
}

func addUserDataPath(doc *openapi3.T) {
	op := &openapi3.Operation{
		OperationID: "getUserData",
		Summary:     "Read a self-scoped resource for the authenticated user",
		Tags:        []string{"me"},
		Security:    bearerSecurity(),
		Parameters: openapi3.Parameters{
			{Value: &openapi3.Parameter{
				Name:     "resource",
				In:       "path",
				Required: true,
				Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"string"},
					Enum: []interface{}{"profile", "role", "enrollments", "lessons", "assignments", "submissions", "lesson-progress"},
				}},
			}},
			{Value: &openapi3.Parameter{
				Name:   "courseId",
				In:     "query",
				Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
			}},
			{Value: &openapi3.Parameter{
				Name:   "phase",
				In:     "query",
				Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
			}},
		},
		Responses: responses(map[string]string{
			"200": "Resource data",
			"400": "Unknown resource or bad parameter",
			"401": "Missing or invalid token",
		}),
	}
	doc.Paths.Set("/api/v1/me/{resource}", &openapi3.PathItem{Get: op})
}

func addHealthPaths(doc *openapi3.T) {
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "healthz",
			Summary:     "Liveness probe",
			Responses:   responses(map[string]string{"200": "Service is up"}),
		},
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "readyz",
			Summary:     "Readiness probe (includes database ping)",
			Responses: responses(map[string]string{
				"200": "Service can reach its dependencies",
				"503": "Database unreachable",
			}),
		},
	})
}

func bearerSecurity() *openapi3.SecurityRequirements {
	reqs := openapi3.NewSecurityRequirements()
	reqs.With(openapi3.SecurityRequirement{"bearerAuth": {}})
	return reqs
}

func filterArraySchema() *openapi3.Schema {
	return &openapi3.Schema{
		Type: &openapi3.Types{"array"},
		Items: &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"column", "op"},
			Properties: openapi3.Schemas{
				"column": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"op": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"string"},
					Enum: []interface{}{"eq", "in", "neq", "gt", "lt"},
				}},
				"value": &openapi3.SchemaRef{Value: &openapi3.Schema{}},
			},
		}},
	}
}

func headerParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:     name,
		In:       "header",
		Required: true,
		Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
	}}
}

func responses(codes map[string]string) *openapi3.Responses {
	out := openapi3.NewResponses()
	for code, desc := range codes {
		d := desc
		ref := &openapi3.ResponseRef{Value: &openapi3.Response{Description: &d}}
		if code == "200" {
			ref.Value.Content = openapi3.NewContentWithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/DataResponse", nil))
		} else {
			ref.Value.Content = openapi3.NewContentWithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil))
		}
		out.Set(code, ref)
	}
	return out
}
