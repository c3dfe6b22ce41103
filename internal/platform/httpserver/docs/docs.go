// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/elections": {
            "get": {
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "List elections",
                "parameters": [
                    {"type": "string", "description": "Election status filter", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Result"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Create an election with its positions",
                "parameters": [
                    {"type": "string", "description": "Authenticated user", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "Election", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ElectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.Result"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.Result"}}
                }
            }
        },
        "/api/elections/{election_id}/candidatures": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["candidacies"],
                "summary": "Submit a candidacy for one or several positions",
                "parameters": [
                    {"type": "string", "description": "Authenticated user", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Election ID", "name": "election_id", "in": "path", "required": true},
                    {"description": "Candidacy", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SubmitCandidacyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.Result"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.Result"}}
                }
            }
        },
        "/api/elections/{election_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Cast a ballot for one position",
                "parameters": [
                    {"type": "string", "description": "Authenticated user", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Election ID", "name": "election_id", "in": "path", "required": true},
                    {"description": "Ballot, candidacy_id omitted for a blank vote", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CastVoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.Result"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.Result"}}
                }
            }
        },
        "/api/elections/{election_id}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Tally an election",
                "parameters": [
                    {"type": "string", "description": "Election ID", "name": "election_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.Result"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.Result"}}
                }
            }
        }
    },
    "definitions": {
        "http.Result": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"},
                "failed_positions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.ElectionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "opens_at": {"type": "string"},
                "closes_at": {"type": "string"},
                "ballot_at": {"type": "string"},
                "candidacy_closes_at": {"type": "string"},
                "quorum_percent": {"type": "number"},
                "majority_rule": {"type": "string"},
                "default_seats": {"type": "integer"},
                "position_types": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.SubmitCandidacyRequest": {
            "type": "object",
            "properties": {
                "position_id": {"type": "string"},
                "position_ids": {"type": "array", "items": {"type": "string"}},
                "motivation": {"type": "string"},
                "programme": {"type": "string"},
                "documents": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.CastVoteRequest": {
            "type": "object",
            "properties": {
                "position_id": {"type": "string"},
                "candidacy_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Agora elections API",
	Description:      "Elections, candidacies, ballots and results of the association.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
