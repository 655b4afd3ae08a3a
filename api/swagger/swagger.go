package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Registo Académico API",
        "description": "Academic record keeping: lesson plans, lessons, assessments, grades and period closure",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Academic Years", "description": "Academic year and period configuration"},
        {"name": "Lesson Plans", "description": "Lesson plan approval workflow"},
        {"name": "Lessons", "description": "Planned and delivered lessons with attendance"},
        {"name": "Assessments", "description": "Assessments and grade entry"},
        {"name": "Grades", "description": "Report cards and grade preview"},
        {"name": "Closures", "description": "Period and year closure"},
        {"name": "Enrollments", "description": "Student enrollment"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive a JWT",
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
                "summary": "Current authenticated actor",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years": {
            "get": {
                "tags": ["Academic Years"],
                "summary": "List academic years",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Academic Years"],
                "summary": "Create an academic year with its periods",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAcademicYearRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years/{year}": {
            "get": {
                "tags": ["Academic Years"],
                "summary": "Get an academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "year", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years/{year}/periods": {
            "get": {
                "tags": ["Academic Years"],
                "summary": "List periods of an academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "year", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans": {
            "get": {
                "tags": ["Lesson Plans"],
                "summary": "List lesson plans",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Lesson Plans"],
                "summary": "Create a lesson plan in DRAFT",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonPlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/{id}": {
            "get": {
                "tags": ["Lesson Plans"],
                "summary": "Get a lesson plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/lesson-plans/{id}/submit": {
            "post": {
                "tags": ["Lesson Plans"],
                "summary": "Submit a plan for review",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Plan is not in a submittable state"}
                }
            }
        },
        "/lesson-plans/{id}/approve": {
            "post": {
                "tags": ["Lesson Plans"],
                "summary": "Approve a plan under review",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Approval requires an admin-tier role"}
                }
            }
        },
        "/lesson-plans/{id}/lock": {
            "post": {
                "tags": ["Lesson Plans"],
                "summary": "Lock or unlock an approved plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetLockedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/{id}/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List planned lessons of a plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/{id}/assessments": {
            "get": {
                "tags": ["Assessments"],
                "summary": "List assessments of a plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/{id}/students/{studentId}/report-card": {
            "get": {
                "tags": ["Grades"],
                "summary": "Compute a student report card",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Students may only read their own report card"}
                }
            }
        },
        "/lessons/planned": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Declare a planned lesson on an approved plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePlannedLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Plan is not approved or is locked"}
                }
            }
        },
        "/lessons/delivered": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Record a delivered lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeliverLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/attendance": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Record attendance for a delivered lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAttendanceRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/lessons/delivered/{id}/attendance": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List attendance entries of a delivered lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments": {
            "post": {
                "tags": ["Assessments"],
                "summary": "Create an assessment on an approved plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssessmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments/grades": {
            "put": {
                "tags": ["Assessments"],
                "summary": "Enter or clear a grade on an open assessment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnterGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Assessment is closed"}
                }
            }
        },
        "/assessments/{id}/grades": {
            "get": {
                "tags": ["Assessments"],
                "summary": "List grades of an assessment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments/{id}/close": {
            "post": {
                "tags": ["Assessments"],
                "summary": "Close an assessment to further grade entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/preview": {
            "post": {
                "tags": ["Grades"],
                "summary": "Preview a grade computation without persisting",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradePreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/closures": {
            "get": {
                "tags": ["Closures"],
                "summary": "List closure records for a year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/closures/begin": {
            "post": {
                "tags": ["Closures"],
                "summary": "Mark a period as closing",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClosureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/closures/close": {
            "post": {
                "tags": ["Closures"],
                "summary": "Close a period or year after prerequisite validation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClosureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Prerequisites not met", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/closures/reopen": {
            "post": {
                "tags": ["Closures"],
                "summary": "Reopen a closed period with justification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReopenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student in a subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/status": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Update an enrollment status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEnrollmentStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CreateAcademicYearRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "calendar": {"type": "string", "enum": ["SECONDARY", "HIGHER"]}
            },
            "required": ["year", "calendar"]
        },
        "CreateLessonPlanRequest": {
            "type": "object",
            "properties": {
                "academic_year_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "title": {"type": "string"}
            },
            "required": ["academic_year_id", "teacher_id", "subject_id", "class_id", "title"]
        },
        "SetLockedRequest": {
            "type": "object",
            "properties": {
                "locked": {"type": "boolean"}
            }
        },
        "CreatePlannedLessonRequest": {
            "type": "object",
            "properties": {
                "lesson_plan_id": {"type": "string"},
                "title": {"type": "string"},
                "period": {"type": "integer"},
                "planned_deliveries": {"type": "integer"}
            },
            "required": ["lesson_plan_id", "title", "period"]
        },
        "DeliverLessonRequest": {
            "type": "object",
            "properties": {
                "planned_lesson_id": {"type": "string"},
                "delivered_on": {"type": "string"},
                "summary": {"type": "string"}
            },
            "required": ["planned_lesson_id", "delivered_on"]
        },
        "RecordAttendanceRequest": {
            "type": "object",
            "properties": {
                "delivered_lesson_id": {"type": "string"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AttendanceEntry"}
                }
            },
            "required": ["delivered_lesson_id", "entries"]
        },
        "AttendanceEntry": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "ABSENT", "JUSTIFIED"]}
            },
            "required": ["student_id", "status"]
        },
        "CreateAssessmentRequest": {
            "type": "object",
            "properties": {
                "lesson_plan_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["EXAM", "TEST", "ASSIGNMENT", "RETAKE", "FINAL_EXAM"]},
                "title": {"type": "string"},
                "period": {"type": "integer"},
                "weight": {"type": "number"}
            },
            "required": ["lesson_plan_id", "kind", "title"]
        },
        "EnterGradeRequest": {
            "type": "object",
            "properties": {
                "assessment_id": {"type": "string"},
                "student_id": {"type": "string"},
                "value": {"type": "number"}
            },
            "required": ["assessment_id", "student_id"]
        },
        "GradePreviewRequest": {
            "type": "object",
            "properties": {
                "scores": {"type": "array", "items": {"$ref": "#/definitions/ScoreRecord"}},
                "config": {"$ref": "#/definitions/GradeComputationConfig"}
            },
            "required": ["scores"]
        },
        "ScoreRecord": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "period": {"type": "integer"},
                "weight": {"type": "number"},
                "value": {"type": "number"}
            }
        },
        "GradeComputationConfig": {
            "type": "object",
            "properties": {
                "calendar": {"type": "string"},
                "pass_threshold": {"type": "number"}
            }
        },
        "ClosureRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "period_token": {"type": "string"},
                "justification": {"type": "string"}
            },
            "required": ["year", "period_token"]
        },
        "ReopenRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "period_token": {"type": "string"},
                "justification": {"type": "string"}
            },
            "required": ["year", "period_token", "justification"]
        },
        "EnrollStudentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "academic_year_id": {"type": "string"}
            },
            "required": ["student_id", "subject_id", "academic_year_id"]
        },
        "UpdateEnrollmentStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "TRANSFERRED", "WITHDRAWN"]}
            },
            "required": ["status"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
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
