// Package docs registers the OpenAPI description of the HTTP API with swag
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Administrator login",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Login successful", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Missing credentials or invalid captcha", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Logout",
                "responses": {"200": {"description": "Logged out", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/auth/captcha": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Login captcha",
                "responses": {
                    "200": {"description": "Captcha generated", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Captcha disabled", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Current administrator",
                "responses": {
                    "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/links/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Capture"],
                "summary": "Public link metadata",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Link", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/track/{id}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Capture"],
                "summary": "Capture location",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "phone", "in": "query"},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CaptureLocationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Location saved", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Failed to save location data", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/setup-db": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Operations"],
                "summary": "Set up database",
                "responses": {"200": {"description": "Database initialized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/migrate": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Operations"],
                "summary": "Migrate database",
                "responses": {"200": {"description": "Migration completed", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/test-db": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Operations"],
                "summary": "Test database connection",
                "responses": {"200": {"description": "Connected", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Healthy", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "503": {"description": "Degraded", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "List tracking links",
                "parameters": [{"type": "string", "name": "q", "in": "query"}],
                "responses": {"200": {"description": "Links", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Create tracking link",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CreateTrackingLinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Link created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Slug already in use", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Get tracking link",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Link", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Delete tracking link",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Locations"],
                "summary": "Dashboard statistics",
                "responses": {"200": {"description": "Statistics", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/locations/recent": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Locations"],
                "summary": "Recent locations",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"}
                ],
                "responses": {"200": {"description": "Locations", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/locations/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Locations"],
                "summary": "Delete location",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/profiles/{phone}/locations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Locations"],
                "summary": "Location history",
                "parameters": [{"type": "string", "name": "phone", "in": "path", "required": true}],
                "responses": {"200": {"description": "History", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/profiles/{phone}/export": {
            "get": {
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Locations"],
                "summary": "Export location history",
                "parameters": [
                    {"type": "string", "name": "phone", "in": "path", "required": true},
                    {"type": "string", "name": "format", "in": "query", "enum": ["csv", "xlsx"]}
                ],
                "responses": {"200": {"description": "History file", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "Administrator"},
                "password": {"type": "string"},
                "challenge_id": {"type": "string"},
                "user_angle": {"type": "number"}
            }
        },
        "dto.CreateTrackingLinkRequest": {
            "type": "object",
            "required": ["phone_number"],
            "properties": {
                "phone_number": {"type": "string", "example": "+628123456789"},
                "custom_slug": {"type": "string", "example": "Promo 1"},
                "custom_title": {"type": "string"},
                "custom_description": {"type": "string"},
                "custom_content": {"type": "string", "description": "Markdown"}
            }
        },
        "dto.CaptureLocationRequest": {
            "type": "object",
            "required": ["latitude", "longitude"],
            "properties": {
                "latitude": {"type": "number", "maximum": 90, "minimum": -90},
                "longitude": {"type": "number", "maximum": 180, "minimum": -180},
                "phone": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Location Tracker API",
	Description:      "Tracking link registry, location capture and reporting for a single administrator.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
