package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Guardian Portal API",
        "description": "Tenant-scoped aggregation cache over the school registrar",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Staff login and identity"},
        {"name": "Guardians", "description": "Guardian-centric aggregated view"},
        {"name": "Exports", "description": "Downloadable reports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current staff identity",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/guardians": {
            "get": {
                "tags": ["Guardians"],
                "summary": "List guardians",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "email", "in": "query", "type": "string"},
                    {"name": "document_id", "in": "query", "type": "string"},
                    {"name": "phone", "in": "query", "type": "string"},
                    {"name": "has_open_invoice", "in": "query", "type": "boolean"},
                    {"name": "has_missing_doc", "in": "query", "type": "boolean"},
                    {"name": "order_by", "in": "query", "type": "string", "enum": ["name", "-name"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query"},
                    "502": {"description": "Registrar unavailable"}
                }
            }
        },
        "/guardians/stats": {
            "get": {
                "tags": ["Guardians"],
                "summary": "Aggregate guardian statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/guardians/{id}": {
            "get": {
                "tags": ["Guardians"],
                "summary": "Guardian detail with invoices",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "academic_year", "in": "query", "type": "string"},
                    {"name": "invoice_status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Guardian not found"}
                }
            }
        },
        "/guardians/cache/invalidate": {
            "post": {
                "tags": ["Guardians"],
                "summary": "Invalidate cached guardian data",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/guardians/export/delinquency": {
            "get": {
                "tags": ["Exports"],
                "summary": "Delinquency PDF report",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "Guardian": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "document_id": {"type": "string"},
                "relationship": {"$ref": "#/definitions/Relationship"},
                "children": {"type": "array", "items": {"$ref": "#/definitions/Child"}},
                "situation": {"$ref": "#/definitions/Situation"}
            }
        },
        "Relationship": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "display": {"type": "string"}
            }
        },
        "Child": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "course": {"type": "string"},
                "grade": {"type": "string"},
                "period": {"type": "string"},
                "status": {"type": "string"},
                "invoices": {"type": "array", "items": {"$ref": "#/definitions/Invoice"}}
            }
        },
        "Invoice": {
            "type": "object",
            "properties": {
                "invoice_number": {"type": "string"},
                "due_date": {"type": "string"},
                "total_amount": {"type": "number"},
                "status": {"type": "string"},
                "status_display": {"type": "string"}
            }
        },
        "Situation": {
            "type": "object",
            "properties": {
                "has_open_invoice": {"type": "boolean"},
                "open_invoice_count": {"type": "integer"},
                "open_invoice_total": {"type": "number"},
                "has_missing_doc": {"type": "boolean"},
                "missing_doc_count": {"type": "integer"}
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
