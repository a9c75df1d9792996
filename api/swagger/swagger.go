package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Announce API",
        "description": "Audience-scoped announcement distribution and visibility resolution",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Announcements", "description": "Announcement authoring and management"},
        {"name": "Feed", "description": "Per-viewer announcement feed and read tracking"},
        {"name": "AckReports", "description": "Acknowledgement report generation"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/announcements": {
            "post": {
                "tags": ["Announcements"],
                "summary": "Create announcement",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAnnouncementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/announcements/{id}": {
            "get": {
                "tags": ["Announcements"],
                "summary": "Get announcement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            },
            "put": {
                "tags": ["Announcements"],
                "summary": "Update announcement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAnnouncementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Announcements"],
                "summary": "Delete announcement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/announcements/{id}/read": {
            "post": {
                "tags": ["Feed"],
                "summary": "Mark announcement as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/feed": {
            "get": {
                "tags": ["Feed"],
                "summary": "Personal announcement feed",
                "parameters": [
                    {"name": "includeExpired", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/feed/summary": {
            "get": {
                "tags": ["Feed"],
                "summary": "Feed summary counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/announcements/{id}/ack-report": {
            "post": {
                "tags": ["AckReports"],
                "summary": "Queue an acknowledgement report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AckReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ack-reports/{id}": {
            "get": {
                "tags": ["AckReports"],
                "summary": "Acknowledgement report status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ack-reports/{id}/download": {
            "get": {
                "tags": ["AckReports"],
                "summary": "Download a finished acknowledgement report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        }
    },
    "definitions": {
        "Announcement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"},
                "author_id": {"type": "string"},
                "author_role": {"type": "string"},
                "target_type": {"type": "string"},
                "target_grade_id": {"type": "string"},
                "target_student_id": {"type": "string"},
                "target_teacher_id": {"type": "string"},
                "priority": {"type": "string"},
                "is_published": {"type": "boolean"},
                "requires_ack": {"type": "boolean"},
                "valid_from": {"type": "string"},
                "valid_until": {"type": "string"},
                "reminder_date": {"type": "string"},
                "circular_number": {"type": "string"},
                "department": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ScopeInput": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "grade_id": {"type": "string"},
                "student_id": {"type": "string"},
                "teacher_id": {"type": "string"}
            },
            "required": ["kind"]
        },
        "CreateAnnouncementRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"},
                "scope": {"$ref": "#/definitions/ScopeInput"},
                "priority": {"type": "string"},
                "is_published": {"type": "boolean"},
                "requires_ack": {"type": "boolean"},
                "attachment_ref": {"type": "string"},
                "valid_from": {"type": "string"},
                "valid_until": {"type": "string"},
                "reminder_date": {"type": "string"},
                "circular_number": {"type": "string"},
                "department": {"type": "string"}
            },
            "required": ["title", "body", "scope", "priority"]
        },
        "UpdateAnnouncementRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"},
                "scope": {"$ref": "#/definitions/ScopeInput"},
                "priority": {"type": "string"},
                "is_published": {"type": "boolean"},
                "requires_ack": {"type": "boolean"},
                "attachment_ref": {"type": "string"},
                "valid_from": {"type": "string"},
                "valid_until": {"type": "string"},
                "reminder_date": {"type": "string"},
                "circular_number": {"type": "string"},
                "department": {"type": "string"}
            },
            "required": ["title", "body", "scope", "priority"]
        },
        "AckReportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["CSV", "PDF"]}
            },
            "required": ["format"]
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
