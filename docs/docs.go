// Package docs holds the OpenAPI description served at /swagger.
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
        "/api/v1/questionnaire": {
            "get": {
                "produces": ["application/json"],
                "tags": ["questionnaire"],
                "summary": "List the AQ-10 items",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.QuestionnaireResponse"}}
                }
            }
        },
        "/api/v1/questionnaire/score": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["questionnaire"],
                "summary": "Score AQ-10 answers",
                "parameters": [
                    {
                        "description": "Answers keyed by item id, 0-3",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ScoreRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.AQ10Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/api/v1/risk/combine": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["risk"],
                "summary": "Combine image and questionnaire probabilities",
                "parameters": [
                    {
                        "description": "Probabilities in [0,1]",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.CombineRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.CombinedResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/api/v1/assessments": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Run a full screening",
                "parameters": [
                    {"type": "file", "description": "Face image (JPEG or PNG)", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "description": "Answer to item 1 (0-3 or label); q2..q10 likewise", "name": "q1", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AssessmentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/api/v1/assessments/report": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/pdf"],
                "tags": ["assessments"],
                "summary": "Run a full screening and return the PDF report",
                "parameters": [
                    {"type": "file", "description": "Face image (JPEG or PNG)", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "description": "Answer to item 1 (0-3 or label); q2..q10 likewise", "name": "q1", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "analysis.AQ10Result": {
            "type": "object",
            "properties": {
                "score": {"type": "integer"},
                "tier": {"type": "string", "enum": ["LOW", "MODERATE", "HIGH"]},
                "probability": {"type": "number"},
                "interpretation": {"type": "string"}
            }
        },
        "analysis.CombinedResult": {
            "type": "object",
            "properties": {
                "image_prob": {"type": "number"},
                "aq10_prob": {"type": "number"},
                "combined_prob": {"type": "number"},
                "recommendation_tier": {"type": "string", "enum": ["LOW", "MODERATE", "HIGH"]},
                "recommendation_text": {"type": "string"}
            }
        },
        "analysis.QuestionnaireItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "prompt": {"type": "string"},
                "polarity": {"type": "string"}
            }
        },
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "category": {"type": "string"},
                "kind": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "types.AssessmentResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "responses": {"type": "object", "additionalProperties": {"type": "integer"}},
                "aq10": {"$ref": "#/definitions/analysis.AQ10Result"},
                "combined": {"$ref": "#/definitions/analysis.CombinedResult"},
                "disclaimer": {"type": "string"}
            }
        },
        "types.CombineRequest": {
            "type": "object",
            "required": ["aq10_prob", "image_prob"],
            "properties": {
                "image_prob": {"type": "number"},
                "aq10_prob": {"type": "number"}
            }
        },
        "types.QuestionnaireResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/analysis.QuestionnaireItem"}},
                "options": {"type": "array", "items": {"$ref": "#/definitions/types.ResponseOption"}}
            }
        },
        "types.ResponseOption": {
            "type": "object",
            "properties": {
                "value": {"type": "integer"},
                "label": {"type": "string"}
            }
        },
        "types.ScoreRequest": {
            "type": "object",
            "required": ["responses"],
            "properties": {
                "responses": {"type": "object", "additionalProperties": {"type": "integer"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AQ-10 Risk Meter API",
	Description:      "Combines a facial image classifier with the AQ-10 questionnaire into a screening recommendation. Not a diagnosis.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
