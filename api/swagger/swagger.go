package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Timetable generation for class-sections: greedy, backtracking and genetic strategies.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetable", "description": "Proposal generation, saving and batches"},
        {"name": "Semester Schedules", "description": "Stored schedule versions and review"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate a timetable proposal for one class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Class has no loads or unassigned subjects", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No solution", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Generation cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/proposals/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get a generated proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/save": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Save a proposal as a semester schedule version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Hard violations or committed conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/batch": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Queue generation for several classes of a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchGenerateRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/batch/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get batch progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Batch status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semester-schedules": {
            "get": {
                "tags": ["Semester Schedules"],
                "summary": "List semester schedule versions",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["DRAFT", "PUBLISHED", "ARCHIVED"]}
                ],
                "responses": {
                    "200": {"description": "Schedules", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semester-schedules/{id}/slots": {
            "get": {
                "tags": ["Semester Schedules"],
                "summary": "Get slots for a semester schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semester-schedules/{id}/review": {
            "post": {
                "tags": ["Semester Schedules"],
                "summary": "Approve or reject a draft schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semester-schedules/{id}": {
            "delete": {
                "tags": ["Semester Schedules"],
                "summary": "Delete a draft schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Not a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Solver and cache metrics summary",
                "responses": {
                    "200": {"description": "Summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "PeriodInput": {
            "type": "object",
            "properties": {
                "number": {"type": "integer"},
                "isBreak": {"type": "boolean"}
            },
            "required": ["number"]
        },
        "LimitsInput": {
            "type": "object",
            "properties": {
                "maxConsecutive": {"type": "integer"},
                "maxDailyLoad": {"type": "integer"},
                "maxSubjectDaily": {"type": "integer"}
            }
        },
        "SolverOptions": {
            "type": "object",
            "properties": {
                "timeoutMs": {"type": "integer"},
                "populationSize": {"type": "integer"},
                "generations": {"type": "integer"},
                "mutationRate": {"type": "number"},
                "seed": {"type": "integer"},
                "fillFreePeriods": {"type": "boolean"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "classId": {"type": "string"},
                "strategy": {"type": "string", "enum": ["greedy", "backtracking", "genetic"]},
                "days": {"type": "array", "items": {"type": "integer"}},
                "periods": {"type": "array", "items": {"$ref": "#/definitions/PeriodInput"}},
                "limits": {"$ref": "#/definitions/LimitsInput"},
                "options": {"$ref": "#/definitions/SolverOptions"}
            },
            "required": ["termId", "classId"]
        },
        "BatchGenerateRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "classIds": {"type": "array", "items": {"type": "string"}},
                "strategy": {"type": "string", "enum": ["greedy", "backtracking", "genetic"]},
                "days": {"type": "array", "items": {"type": "integer"}},
                "periods": {"type": "array", "items": {"$ref": "#/definitions/PeriodInput"}},
                "limits": {"$ref": "#/definitions/LimitsInput"},
                "options": {"$ref": "#/definitions/SolverOptions"}
            },
            "required": ["termId"]
        },
        "SaveTimetableRequest": {
            "type": "object",
            "properties": {
                "proposalId": {"type": "string"},
                "commitToDaily": {"type": "boolean"}
            },
            "required": ["proposalId"]
        },
        "ReviewTimetableRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "note": {"type": "string"}
            },
            "required": ["decision"]
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
