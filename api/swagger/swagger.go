package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Invigilation API",
        "description": "Spreadsheet import validation and invigilation document generation",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Exam sessions and aggregated contexts"},
        {"name": "Imports", "description": "Spreadsheet validation and persistence"},
        {"name": "Documents", "description": "Convocations, plannings and exports"}
    ],
    "paths": {
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List exam sessions",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create exam session",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get exam session",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/sessions/{id}/contexts/teachers": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Per-teacher convocation contexts from stored assignments",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ContextsResponse"}}}
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Per-teacher convocation contexts from a supplied assignment index",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "index", "required": true, "schema": {"$ref": "#/definitions/AssignmentIndex"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ContextsResponse"}}}
            }
        },
        "/sessions/{id}/contexts/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Per-slot planning contexts from stored assignments",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ContextsResponse"}}}
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Per-slot planning contexts from a supplied assignment index",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "index", "required": true, "schema": {"$ref": "#/definitions/AssignmentIndex"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ContextsResponse"}}}
            }
        },
        "/sessions/{id}/documents/{kind}": {
            "post": {
                "tags": ["Documents"],
                "summary": "Generate convocation or planning documents synchronously",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "path", "name": "kind", "type": "string", "enum": ["convocation", "planning"], "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/BatchReport"}}, "404": {"description": "Template missing"}}
            }
        },
        "/sessions/{id}/exports": {
            "get": {
                "tags": ["Documents"],
                "summary": "List generated exports",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{id}/planning.xlsx": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download the planning workbook",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "Workbook"}}
            }
        },
        "/sessions/{id}/planning.csv": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download the planning as CSV",
                "produces": ["text/csv"],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "CSV"}}
            }
        },
        "/validations": {
            "post": {
                "tags": ["Imports"],
                "summary": "Validate a spreadsheet without storing it",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "file", "type": "file", "required": true},
                    {"in": "formData", "name": "kind", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ValidationVerdict"}}}
            }
        },
        "/imports": {
            "post": {
                "tags": ["Imports"],
                "summary": "Upload and validate a spreadsheet for a session",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "session_id", "type": "integer", "required": true},
                    {"in": "formData", "name": "file", "type": "file", "required": true},
                    {"in": "formData", "name": "kind", "type": "string", "required": true}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ImportRecord"}}}
            }
        },
        "/imports/{id}": {
            "get": {
                "tags": ["Imports"],
                "summary": "Get an import",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ImportRecord"}}}
            }
        },
        "/imports/{id}/verdict": {
            "get": {
                "tags": ["Imports"],
                "summary": "Get the validation verdict of an import",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ValidationVerdict"}}}
            }
        },
        "/imports/{id}/persist": {
            "post": {
                "tags": ["Imports"],
                "summary": "Persist the rows of a valid import",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/BatchReport"}}, "409": {"description": "Import is not valid"}}
            }
        },
        "/documents/jobs": {
            "post": {
                "tags": ["Documents"],
                "summary": "Queue document generation",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/DocumentJobRequest"}}
                ],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/documents/jobs/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get document job status",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/download/{token}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a generated document through a signed token",
                "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "401": {"description": "Invalid or expired token"}}
            }
        }
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "academic_year": {"type": "string"},
                "semester": {"type": "string"}
            },
            "required": ["name", "academic_year", "semester"]
        },
        "DocumentJobRequest": {
            "type": "object",
            "properties": {
                "session_id": {"type": "integer"},
                "kind": {"type": "string", "enum": ["convocation", "planning"]}
            },
            "required": ["session_id", "kind"]
        },
        "SlotRef": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "time": {"type": "string"},
                "seance": {"type": "string"}
            }
        },
        "AssignmentIndex": {
            "type": "object",
            "additionalProperties": {
                "type": "object",
                "additionalProperties": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SlotRef"}
                }
            }
        },
        "ItemFailure": {
            "type": "object",
            "properties": {
                "item": {"type": "string"},
                "code": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "BatchReport": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "success_count": {"type": "integer"},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/ItemFailure"}}
            }
        },
        "ContextsResponse": {
            "type": "object",
            "properties": {
                "contexts": {"type": "array", "items": {"type": "object"}},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/ItemFailure"}}
            }
        },
        "ValidationVerdict": {
            "type": "object",
            "properties": {
                "is_valid": {"type": "boolean"},
                "kind": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "file_info": {
                    "type": "object",
                    "properties": {
                        "row_count": {"type": "integer"},
                        "column_count": {"type": "integer"},
                        "column_names": {"type": "array", "items": {"type": "string"}},
                        "null_counts": {"type": "object", "additionalProperties": {"type": "integer"}}
                    }
                }
            }
        },
        "ImportRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "session_id": {"type": "integer"},
                "kind": {"type": "string"},
                "file_name": {"type": "string"},
                "state": {"type": "string"},
                "verdict": {"$ref": "#/definitions/ValidationVerdict"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
