package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Citas API",
        "description": "Medical appointment scheduling and conflict resolution API",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Appointments", "description": "Booking, availability and orphan repair"},
        {"name": "Board", "description": "Scheduler board read-model"},
        {"name": "Specialties", "description": "Specialty catalog"},
        {"name": "Rooms", "description": "Consulting room catalog"},
        {"name": "Doctors", "description": "Doctor profiles and schedules"},
        {"name": "Schedules", "description": "Weekly availability windows"},
        {"name": "Reports", "description": "Asynchronous report exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
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
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/availability": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Find the first free slot for a specialty on a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "specialty_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No availability"}
                }
            }
        },
        "/appointments": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Book an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAppointmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Scheduling constraint violated"},
                    "409": {"description": "Concurrent booking conflict, retry"}
                }
            }
        },
        "/appointments/mine": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List the authenticated patient's appointments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/orphans": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List orphaned appointments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Appointments"],
                "summary": "Delete every orphaned appointment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/{id}": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Get an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Appointments"],
                "summary": "Reschedule an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Scheduling constraint violated"},
                    "409": {"description": "Concurrent booking conflict, retry"}
                }
            },
            "delete": {
                "tags": ["Appointments"],
                "summary": "Cancel an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Cancelled"}
                }
            }
        },
        "/appointments/{id}/repair": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Reassign a room to an orphaned appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RepairOrphanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/board": {
            "get": {
                "tags": ["Board"],
                "summary": "Scheduler board for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/specialties": {
            "get": {
                "tags": ["Specialties"],
                "summary": "List specialties",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Specialties"],
                "summary": "Create specialty",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SpecialtyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Create room",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctors": {
            "get": {
                "tags": ["Doctors"],
                "summary": "List doctors",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Doctors"],
                "summary": "Create doctor profile",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DoctorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctors/{id}/schedules": {
            "get": {
                "tags": ["Doctors"],
                "summary": "List a doctor's weekly availability",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctors/{id}/agenda.pdf": {
            "get": {
                "tags": ["Doctors"],
                "summary": "Download a doctor's day agenda as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Create weekly availability window",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Request a report export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report with a signed token",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "403": {"description": "Invalid or expired token"}
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
        "CreateAppointmentRequest": {
            "type": "object",
            "properties": {
                "patient_id": {"type": "string"},
                "doctor_id": {"type": "string"},
                "room_id": {"type": "string"},
                "date": {"type": "string", "example": "2025-03-17"},
                "start": {"type": "string", "example": "08:30"},
                "end": {"type": "string", "example": "09:00"}
            },
            "required": ["patient_id", "doctor_id", "date", "start", "end"]
        },
        "RescheduleAppointmentRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "room_id": {"type": "string"}
            }
        },
        "RepairOrphanRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"}
            },
            "required": ["room_id"]
        },
        "SpecialtyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "duration_minutes": {"type": "integer", "enum": [15, 30]},
                "description": {"type": "string"}
            },
            "required": ["name", "duration_minutes"]
        },
        "RoomRequest": {
            "type": "object",
            "properties": {
                "number": {"type": "integer"},
                "type": {"type": "string", "enum": ["internal", "external"]},
                "active": {"type": "boolean"},
                "description": {"type": "string"}
            },
            "required": ["number", "type"]
        },
        "DoctorRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "full_name": {"type": "string"},
                "specialty_id": {"type": "string"},
                "type": {"type": "string", "enum": ["internal", "external"]},
                "room_id": {"type": "string"}
            },
            "required": ["user_id", "full_name", "type"]
        },
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "doctor_id": {"type": "string"},
                "weekday": {"type": "integer", "minimum": 0, "maximum": 6},
                "start": {"type": "string", "example": "07:00"},
                "end": {"type": "string", "example": "15:00"}
            },
            "required": ["doctor_id", "start", "end"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["agenda", "orphans"]},
                "doctor_id": {"type": "string"},
                "date": {"type": "string", "example": "2025-03-17"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["type", "format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "Violation": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "violations": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Violation"}
                }
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
