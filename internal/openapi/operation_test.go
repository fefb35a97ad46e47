package openapi

import (
	"errors"
	"testing"
)

func testDocument() map[string]any {
	spec, err := Decode([]byte(`{
  "openapi": "3.0.3",
  "info": {"title": "Orders", "version": "2023-08-01"},
  "servers": [{"url": "https://api.example.com"}],
  "security": [{"ClientID": [], "ClientSecret": []}],
  "components": {
    "securitySchemes": {
      "ClientID": {"type": "apiKey", "in": "header", "name": "x-client-id"},
      "ClientSecret": {"type": "apiKey", "in": "header", "name": "x-client-secret"},
      "Bearer": {"type": "http", "scheme": "Bearer"}
    },
    "parameters": {
      "Version": {"name": "x-api-version", "in": "header", "required": true, "schema": {"type": "string"}}
    },
    "schemas": {
      "Order": {"type": "object", "properties": {"amount": {"type": "number"}}, "required": ["amount"]}
    }
  },
  "paths": {
    "/orders/{order_id}": {
      "parameters": [
        {"name": "order_id", "in": "path", "schema": {"type": "string"}},
        {"name": "verbose", "in": "query", "schema": {"type": "boolean"}}
      ],
      "get": {
        "summary": "Get Order",
        "parameters": [
          {"$ref": "#/components/parameters/Version"},
          {"name": "verbose", "in": "query", "description": "include items", "schema": {"type": "string"}}
        ],
        "x-mcp": {
          "enabled": true,
          "config": {
            "elicitation": {
              "enabled": true,
              "fields": {
                "email": {
                  "required": true,
                  "message": "Customer email",
                  "schema": {"type": "string"},
                  "mapping": {"target": "body.customer.email", "transform": "string"}
                }
              }
            }
          }
        }
      },
      "post": {
        "security": [{"Bearer": []}],
        "servers": [{"url": "https://override.example.com"}],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Order"}}}
        }
      },
      "trace": {}
    },
    "/a": {"delete": {"x-mcp": {"enabled": false}}, "get": {"$ref": "#/nowhere"}}
  }
}`))
	if err != nil {
		panic(err)
	}
	return spec
}

func TestOperations_Order(t *testing.T) {
	got := Operations(testDocument())
	want := []OperationRef{
		{"/a", "get"}, {"/a", "delete"},
		{"/orders/{order_id}", "get"}, {"/orders/{order_id}", "post"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d operations, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operation %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestOperation_GetOrder(t *testing.T) {
	r := NewResolver(testDocument())
	op, err := r.Operation(OperationRef{"/orders/{order_id}", "get"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Summary != "Get Order" {
		t.Errorf("unexpected summary %q", op.Summary)
	}
	if len(op.Parameters) != 3 {
		t.Fatalf("expected 3 parameters, got %+v", op.Parameters)
	}
	byName := map[string]Parameter{}
	for _, p := range op.Parameters {
		byName[p.Name] = p
	}
	if !byName["order_id"].Required {
		t.Error("path parameters are always required")
	}
	verbose := byName["verbose"].Schema.(map[string]any)
	if verbose["type"] != "string" || verbose["description"] != "include items" {
		t.Errorf("expected operation parameter to override path-level one, got %v", verbose)
	}
	if !byName["x-api-version"].Required {
		t.Error("expected referenced parameter resolved")
	}

	if len(op.Security) != 2 || op.Security[0].Name != "x-client-id" || op.Security[1].Name != "x-client-secret" {
		t.Errorf("unexpected security params %+v", op.Security)
	}
	if len(op.Servers) != 1 || op.Servers[0] != "https://api.example.com" {
		t.Errorf("unexpected servers %v", op.Servers)
	}

	if !op.Extension.Enabled || op.Extension.Elicitation == nil {
		t.Fatalf("expected enabled extension with elicitation, got %+v", op.Extension)
	}
	field := op.Extension.Elicitation.Fields["email"]
	if !field.Required || field.Mapping.Target != "body.customer.email" || field.Mapping.Transform != "string" {
		t.Errorf("unexpected elicitation field %+v", field)
	}
}

func TestOperation_PostOrder(t *testing.T) {
	r := NewResolver(testDocument())
	op, err := r.Operation(OperationRef{"/orders/{order_id}", "post"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Extension.Enabled {
		t.Error("expected operation without x-mcp to be disabled")
	}
	body, ok := op.Body.(map[string]any)
	if !ok || body["type"] != "object" || !op.BodyRequired {
		t.Errorf("expected resolved required body, got %v", op.Body)
	}
	if len(op.Security) != 1 || op.Security[0].Type != "http" || op.Security[0].Scheme != "bearer" {
		t.Errorf("unexpected security %+v", op.Security)
	}
	if op.Servers[0] != "https://override.example.com" {
		t.Errorf("expected operation servers to win, got %v", op.Servers)
	}
}

func TestOperation_BadReferenceIsolated(t *testing.T) {
	r := NewResolver(testDocument())
	if _, err := r.Operation(OperationRef{"/a", "get"}); !errors.Is(err, ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound, got %v", err)
	}
	if _, err := r.Operation(OperationRef{"/a", "delete"}); err != nil {
		t.Errorf("sibling operation should still resolve, got %v", err)
	}
}
