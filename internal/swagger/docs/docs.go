// Package docs holds the OpenAPI document for the CI API.
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
        "/ci/ping": {
            "get": {
                "tags": ["CI Meta"],
                "summary": "Liveness probe",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "PONG"}}
            }
        },
        "/ci/version": {
            "get": {
                "tags": ["CI Meta"],
                "summary": "Running version",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "vX.Y.Z"}}
            }
        },
        "/ci/github/push": {
            "post": {
                "tags": ["GitHub"],
                "summary": "Receive a GitHub push webhook",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "event name", "name": "X-GitHub-Event", "in": "header", "required": true},
                    {"type": "string", "description": "delivery id", "name": "X-GitHub-Delivery", "in": "header", "required": true},
                    {"type": "string", "description": "payload HMAC", "name": "X-Hub-Signature-256", "in": "header", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/githubhooks.pushAccepted"}},
                    "204": {"description": "Skipped or ignored"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errmsg.StatusError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errmsg.StatusError"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        },
        "/ci/jobs": {
            "get": {
                "tags": ["Jobs"],
                "summary": "List jobs",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "full git ref", "name": "ref", "in": "query"},
                    {"type": "string", "description": "job status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "max results", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Job"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        },
        "/ci/jobs/{id}": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Get a job",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Job"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        },
        "/ci/jobs/{id}/log": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Download a job log",
                "produces": ["text/plain"],
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        },
        "/ci/jobs/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Jobs"],
                "summary": "Cancel a job",
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errmsg.StatusError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errmsg.StatusError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        },
        "/ci/operators/login": {
            "post": {
                "tags": ["Operators"],
                "summary": "Log in as an operator",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"description": "credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Operator"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/operators.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errmsg.StatusError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errmsg.StatusError"}}
                }
            }
        }
    },
    "definitions": {
        "errmsg.StatusError": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "githubhooks.pushAccepted": {
            "type": "object",
            "properties": {"jobId": {"type": "string"}}
        },
        "models.Operator": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "operators.loginResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "operator": {"$ref": "#/definitions/models.Operator"}}
        },
        "models.StepResult": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["setup", "compile", "test"]},
                "status": {"type": "string", "enum": ["pending", "running", "passed", "failed", "skipped"]},
                "exitCode": {"type": "integer"},
                "startedAt": {"type": "string"},
                "finishedAt": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "models.Job": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "repository": {"type": "string"},
                "ref": {"type": "string"},
                "sha": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "running", "success", "failure", "canceled"]},
                "failure": {"type": "string", "enum": ["provisioning", "compile", "test"]},
                "steps": {"type": "array", "items": {"$ref": "#/definitions/models.StepResult"}},
                "cacheKey": {"type": "string"},
                "cacheHit": {"type": "boolean"},
                "error": {"type": "string"},
                "createdAt": {"type": "string"},
                "startedAt": {"type": "string"},
                "finishedAt": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Provide the operator bearer token as ` + "`" + `Bearer <token>` + "`" + `.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "extci API",
	Description:      "Push-triggered CI for Ruby native extensions: job status, logs and cancellation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
