package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PTIT Classroom Score API",
        "description": "Score aggregation, weighted grades and distribution statistics for classroom dashboards",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Classrooms", "description": "Classroom directory and report cards"},
        {"name": "Scores", "description": "Score records and weighted composites"},
        {"name": "Statistics", "description": "Threshold shares, histograms and class averages"},
        {"name": "Exports", "description": "Asynchronous PDF, CSV and XLSX score sheets"},
        {"name": "Notifications", "description": "Transient per view notifications"}
    ],
    "parameters": {
        "ClassroomID": {"name": "id", "in": "path", "required": true, "type": "string"},
        "ViewID": {"name": "X-View-ID", "in": "header", "required": false, "type": "string", "description": "Dashboard widget issuing the request. A newer request from the same view supersedes one still in flight."},
        "ScoreType": {"name": "type", "in": "query", "required": true, "type": "string", "enum": ["REGULAR", "MIDTERM", "FINAL", "AVERAGE"]}
    },
    "paths": {
        "/classrooms": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List classrooms visible to the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Score source unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Distinct subjects of the caller's classrooms",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/students": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Students of a classroom",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "q", "in": "query", "type": "string", "description": "Case insensitive full name filter"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{username}/report-card": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Strict composite per subject for one student",
                "parameters": [{"name": "username", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/scores": {
            "get": {
                "tags": ["Scores"],
                "summary": "Drain every score record of a classroom",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"},
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Superseded by a newer selection of the same view"},
                    "502": {"description": "Network failure, malformed page or page limit exceeded"}
                }
            }
        },
        "/classrooms/{id}/composites": {
            "get": {
                "tags": ["Scores"],
                "summary": "Weighted composite per student",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"},
                    {"name": "policy", "in": "query", "type": "string", "enum": ["zero_fill", "strict"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/stats/threshold": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Share of scores strictly above a threshold",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"},
                    {"$ref": "#/parameters/ScoreType"},
                    {"name": "threshold", "in": "query", "required": true, "type": "number", "minimum": 0, "maximum": 10}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/stats/histogram": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Counts per rounded bucket 0..10",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"},
                    {"$ref": "#/parameters/ScoreType"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/stats/averages": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Class mean per score type and of the composite",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/stats/summary": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Every statistic from a single drain",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/ViewID"},
                    {"name": "threshold", "in": "query", "type": "number", "default": 5}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Enqueue a score export",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Enqueue the score sheet of a classroom",
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Live notifications of the calling view",
                "parameters": [{"name": "X-View-ID", "in": "header", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/{id}": {
            "delete": {
                "tags": ["Notifications"],
                "summary": "Dismiss a notification",
                "parameters": [
                    {"name": "X-View-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Dismissed"}}
            }
        }
    },
    "definitions": {
        "ExportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["classroom_scores", "student_report"]},
                "classroomId": {"type": "string"},
                "studentUsername": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]}
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
