package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ExamDesk API",
        "description": "Exam administration: seat allocation, hall tickets, results and bulk imports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Exams", "description": "Exam scheduling"},
        {"name": "Allocations", "description": "Randomized seat allocation and reveal"},
        {"name": "Results", "description": "Marks, grades and pass/fail status"},
        {"name": "HallTickets", "description": "Hall ticket issuance and PDF download"},
        {"name": "Notifications", "description": "Broadcast notices"},
        {"name": "Imports", "description": "Bulk delimited-file ingestion"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create a student",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Roll number already in use"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Schedule an exam",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/exams/{id}": {
            "get": {
                "tags": ["Exams"],
                "summary": "Get an exam",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Exams"],
                "summary": "Update an exam",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Exams"],
                "summary": "Delete an exam",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/exams/{id}/allocations": {
            "get": {
                "tags": ["Allocations"],
                "summary": "List an exam's seat allocations",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exams/{id}/allocations/export": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Export an exam's seating chart",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "Rendered table"}}
            }
        },
        "/exams/{id}/allocations/generate": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Generate randomized seat allocations",
                "description": "No-ops when any allocation already exists for the exam. Seats start hidden.",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "A generation run is already in flight"}
                }
            }
        },
        "/exams/{id}/allocations/reveal": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Reveal an exam's seat allocations",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Revealed"}}
            }
        },
        "/exams/{id}/seat": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Seat status for one student",
                "description": "The seat is attached only inside the reveal window; before it opens the payload carries a countdown.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/allocations": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Manually create a seat allocation",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/allocations/{id}": {
            "delete": {
                "tags": ["Allocations"],
                "summary": "Delete a seat allocation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List results",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Results"],
                "summary": "Record a result",
                "description": "Grade and pass/fail status are derived from marks when omitted.",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/results/export": {
            "get": {
                "tags": ["Results"],
                "summary": "Export one exam's results",
                "parameters": [
                    {"name": "exam_id", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "Rendered table"}}
            }
        },
        "/results/{id}": {
            "get": {
                "tags": ["Results"],
                "summary": "Get a result",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Results"],
                "summary": "Update a result",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Results"],
                "summary": "Delete a result",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/hall-tickets": {
            "get": {
                "tags": ["HallTickets"],
                "summary": "List hall tickets",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["HallTickets"],
                "summary": "Create a hall ticket",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/hall-tickets/{id}": {
            "get": {
                "tags": ["HallTickets"],
                "summary": "Get a hall ticket",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["HallTickets"],
                "summary": "Update a hall ticket",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["HallTickets"],
                "summary": "Delete a hall ticket",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/hall-tickets/{id}/download": {
            "post": {
                "tags": ["HallTickets"],
                "summary": "Mint a signed download link for the ticket PDF",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Ticket is cancelled"}
                }
            }
        },
        "/hall-tickets/download": {
            "get": {
                "tags": ["HallTickets"],
                "summary": "Stream a rendered ticket PDF for a signed token",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "PDF document"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Notifications"],
                "summary": "Create a notification",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/notifications/{id}/send": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Send a draft notification",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already sent"}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification read",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/imports/{kind}": {
            "post": {
                "tags": ["Imports"],
                "summary": "Bulk import records from a delimited file",
                "description": "Kinds: students, exams, results, hall-tickets, seat-allocations. Rejected rows are reported per line, not fatal.",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {"200": {"description": "Import outcome"}}
            }
        },
        "/imports/{kind}/template": {
            "get": {
                "tags": ["Imports"],
                "summary": "Download the sample file for an import kind",
                "parameters": [{"name": "kind", "in": "path", "required": true, "type": "string"}],
                "produces": ["text/csv"],
                "responses": {"200": {"description": "CSV template"}}
            }
        }
    },
    "definitions": {
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
