package endpoint

import (
	"net/http"
	"testing"
)

const sampleOpenAPI = `{
  "openapi": "3.0.3",
  "info": {"title": "users", "version": "1.0.0"},
  "servers": [{"url": "https://api.example.com/v1"}],
  "paths": {
    "/users": {
      "get": {
        "operationId": "listUsers",
        "summary": "List users",
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"type": "array", "items": {"type": "object"}}}}
          }
        }
      },
      "post": {
        "operationId": "createUser",
        "requestBody": {"content": {"application/json": {"schema": {"type": "object"}}}},
        "responses": {"201": {"description": "created"}}
      }
    },
    "/users/{id}": {
      "get": {
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "integer"}}],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func TestLoadOpenAPISetFromData(t *testing.T) {
	set, err := LoadOpenAPISetFromData([]byte(sampleOpenAPI))
	if err != nil {
		t.Fatalf("LoadOpenAPISetFromData: %v", err)
	}
	if set.Service() != "users" {
		t.Fatalf("service = %q", set.Service())
	}
	if set.BaseURL() != "https://api.example.com/v1" {
		t.Fatalf("base url = %q", set.BaseURL())
	}
	if got := len(set.All()); got != 3 {
		t.Fatalf("expected 3 targets, got %d", got)
	}

	list, ok := set.ByName("listUsers")
	if !ok {
		t.Fatalf("listUsers missing")
	}
	if list.Method != http.MethodGet || list.Path != "/users" || !list.Many {
		t.Fatalf("unexpected listUsers spec: %#v", list)
	}
	if list.Description != "List users" {
		t.Fatalf("summary not carried: %q", list.Description)
	}

	create, ok := set.ByName("createUser")
	if !ok || create.Encoding != "json" {
		t.Fatalf("unexpected createUser spec: %#v", create)
	}

	get, ok := set.ByName("get_users_id")
	if !ok {
		t.Fatalf("expected generated name for operation without operationId")
	}
	if get.Many {
		t.Fatalf("get_users_id should not be a sequence")
	}
}
