// Package swagger carries the static OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Escala API",
        "description": "Volunteer scheduling API for the IEAB children's ministry",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Phone + PIN login and profile"},
        {"name": "Volunteers", "description": "Volunteer management (admin)"},
        {"name": "Unavailabilities", "description": "Self-service absence declarations"},
        {"name": "Roster", "description": "Monthly roster generation, viewing, publishing and swaps"},
        {"name": "Exports", "description": "PDF and WhatsApp roster exports"},
        {"name": "Metrics", "description": "Operational metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate volunteer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current volunteer profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/pin": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Change own PIN",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePINRequest"}}
                ],
                "responses": {
                    "204": {"description": "Changed"}
                }
            }
        },
        "/volunteers": {
            "get": {
                "tags": ["Volunteers"],
                "summary": "List volunteers",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "role", "in": "query", "type": "string", "enum": ["professor", "auxiliar", "admin"]},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Volunteers"],
                "summary": "Register volunteer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateVolunteerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/volunteers/{id}": {
            "get": {
                "tags": ["Volunteers"],
                "summary": "Get volunteer detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Volunteers"],
                "summary": "Update volunteer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateVolunteerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Volunteers"],
                "summary": "Remove volunteer",
                "description": "Deletes the record, or deactivates it when schedule history still references it",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/volunteers/{id}/pin": {
            "put": {
                "tags": ["Volunteers"],
                "summary": "Reset a volunteer's PIN",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPINRequest"}}
                ],
                "responses": {
                    "204": {"description": "Reset"}
                }
            }
        },
        "/unavailabilities": {
            "get": {
                "tags": ["Unavailabilities"],
                "summary": "List own unavailabilities",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Unavailabilities"],
                "summary": "Declare unavailability for an event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUnavailabilityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/unavailabilities/{id}": {
            "delete": {
                "tags": ["Unavailabilities"],
                "summary": "Withdraw an unavailability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "Month roster view",
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/events": {
            "post": {
                "tags": ["Roster"],
                "summary": "Materialize the month's recurring events",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MonthRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/generate": {
            "post": {
                "tags": ["Roster"],
                "summary": "Generate the month's roster",
                "description": "Rebuilds every assignment for the month. Unfillable slots are reported in logs, not treated as failure.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MonthRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Storage failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/publish": {
            "post": {
                "tags": ["Roster"],
                "summary": "Publish the month's roster",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MonthRequest"}}
                ],
                "responses": {
                    "204": {"description": "Published"}
                }
            }
        },
        "/schedules/{id}/substitutes": {
            "get": {
                "tags": ["Roster"],
                "summary": "List valid substitutes for an assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/swap": {
            "put": {
                "tags": ["Roster"],
                "summary": "Swap the volunteer on an assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapRequest"}}
                ],
                "responses": {
                    "204": {"description": "Swapped"}
                }
            }
        },
        "/exports/pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the month roster as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/exports/whatsapp": {
            "get": {
                "tags": ["Exports"],
                "summary": "Month roster as a WhatsApp-ready message",
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/system": {
            "get": {
                "tags": ["Metrics"],
                "summary": "System metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["phone", "pin"],
            "properties": {
                "phone": {"type": "string"},
                "pin": {"type": "string"}
            }
        },
        "ChangePINRequest": {
            "type": "object",
            "required": ["current_pin", "new_pin"],
            "properties": {
                "current_pin": {"type": "string"},
                "new_pin": {"type": "string"}
            }
        },
        "CreateVolunteerRequest": {
            "type": "object",
            "required": ["phone", "pin", "name", "role"],
            "properties": {
                "phone": {"type": "string"},
                "pin": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["professor", "auxiliar", "admin"]},
                "room": {"type": "string", "enum": ["bebes", "pequenos", "grandes"]}
            }
        },
        "UpdateVolunteerRequest": {
            "type": "object",
            "properties": {
                "phone": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["professor", "auxiliar", "admin"]},
                "room": {"type": "string"},
                "is_active": {"type": "boolean"}
            }
        },
        "ResetPINRequest": {
            "type": "object",
            "required": ["pin"],
            "properties": {
                "pin": {"type": "string"}
            }
        },
        "CreateUnavailabilityRequest": {
            "type": "object",
            "required": ["event_id"],
            "properties": {
                "event_id": {"type": "string"}
            }
        },
        "MonthRequest": {
            "type": "object",
            "required": ["month", "year"],
            "properties": {
                "month": {"type": "integer", "minimum": 1, "maximum": 12},
                "year": {"type": "integer"}
            }
        },
        "SwapRequest": {
            "type": "object",
            "required": ["volunteer_id"],
            "properties": {
                "volunteer_id": {"type": "string"}
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
