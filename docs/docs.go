// Package docs is generated by swaggo/swag from the handler annotations.
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
        "/admin": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Admin area",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.adminSummary"}},
                    "302": {"description": "Found"},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/admin/profiles/{uid}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Look up a profile",
                "parameters": [{"type": "string", "description": "User id", "name": "uid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Profile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/blobs/{path}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["blobs"],
                "summary": "Download a file",
                "parameters": [{"type": "string", "description": "Blob path", "name": "path", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        },
        "/signin": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign-in landing",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/v1/actions/invocations/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Invocation state",
                "parameters": [{"type": "string", "description": "Invocation id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.invocationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/actions/invocations/{id}/confirm": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Confirm a sensitive action",
                "parameters": [{"type": "string", "description": "Invocation id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.invocationResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.invocationResponse"}}
                }
            }
        },
        "/v1/actions/invocations/{id}/decline": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Decline a sensitive action",
                "parameters": [{"type": "string", "description": "Invocation id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.invocationResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/actions/{kind}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Start a sensitive action",
                "parameters": [{"type": "string", "description": "become-artist or delete-profile", "name": "kind", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.invocationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/artist": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["artist"],
                "summary": "Artist profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.profileResponse"}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/v1/devices/current": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Notification prompt",
                "parameters": [{"type": "string", "description": "Device id when no deviceId cookie is sent", "name": "X-Device-ID", "in": "header"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.promptResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/devices/current/live": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "tags": ["devices"],
                "summary": "Live notification prompt",
                "responses": {}
            }
        },
        "/v1/devices/current/messaging": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Register device for notifications",
                "parameters": [{"description": "Permission result", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerDeviceRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.noticeResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Current profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.profileResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Save profile",
                "parameters": [
                    {"type": "string", "description": "Display name", "name": "name", "in": "formData", "required": true},
                    {"type": "file", "description": "Avatar image", "name": "avatar", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.noticeResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/profile/live": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "tags": ["profile"],
                "summary": "Live profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ProfileView"}}}
            }
        }
    },
    "definitions": {
        "action.Prompt": {
            "type": "object",
            "properties": {
                "dismissible": {"type": "boolean"},
                "stage": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.Notice": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.Profile": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "is_artist": {"type": "boolean"},
                "name": {"type": "string"},
                "uid": {"type": "string"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "notice": {"$ref": "#/definitions/domain.Notice"}
            }
        },
        "handler.adminSummary": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "name": {"type": "string"},
                "uid": {"type": "string"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.invocationResponse": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "error": {"type": "string"},
                "invocation_id": {"type": "string"},
                "notice": {"$ref": "#/definitions/domain.Notice"},
                "prompt": {"$ref": "#/definitions/action.Prompt"},
                "redirect_to": {"type": "string"},
                "state": {"type": "string"}
            }
        },
        "handler.noticeResponse": {
            "type": "object",
            "properties": {
                "notice": {"$ref": "#/definitions/domain.Notice"}
            }
        },
        "handler.profileResponse": {
            "type": "object",
            "properties": {
                "avatar_url": {"type": "string"},
                "profile": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "handler.promptResponse": {
            "type": "object",
            "properties": {
                "show_prompt": {"type": "boolean"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}},
                "status": {"type": "string"}
            }
        },
        "handler.registerDeviceRequest": {
            "type": "object",
            "properties": {
                "permission": {"type": "string", "enum": ["granted", "denied"]},
                "token": {"type": "string"}
            }
        },
        "service.ProfileView": {
            "type": "object",
            "properties": {
                "exists": {"type": "boolean"},
                "profile": {"$ref": "#/definitions/domain.Profile"},
                "signed_in": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Atelier profile portal API",
	Description:      "Profiles, devices, sensitive account actions and the admin area.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
