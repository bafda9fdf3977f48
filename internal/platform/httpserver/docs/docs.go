// Package docs registers the OpenAPI document served under /swagger/.
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
    "securityDefinitions": {
        "SignedRequest": {
            "type": "apiKey",
            "name": "X-Signature",
            "in": "header",
            "description": "secp256k1 signature of keccak256(method\\npath\\ntimestamp\\nnonce\\nbody), sent with X-Caller-Address, X-Request-Timestamp and X-Request-Nonce; a nonce is accepted once per caller"
        }
    },
    "paths": {
        "/v1/voters": {
            "post": {
                "security": [{"SignedRequest": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Register a voter",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/http.RegisterVoterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.VoterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/voters/{address}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Check voter registration",
                "parameters": [
                    {"type": "string", "in": "path", "name": "address", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "List proposals",
                "parameters": [
                    {"type": "string", "in": "query", "name": "status"},
                    {"type": "integer", "in": "query", "name": "limit"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ListProposalsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"SignedRequest": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Create a proposal",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/http.CreateProposalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.ProposalResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Get a proposal",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "proposal_id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProposalResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/counts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Get vote counts",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "proposal_id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoteCountsResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/votes": {
            "post": {
                "security": [{"SignedRequest": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Cast a ballot",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "proposal_id", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/http.CastVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoteCountsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/votes/{address}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Check whether an address voted",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "proposal_id", "required": true},
                    {"type": "string", "in": "path", "name": "address", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HasVotedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/end": {
            "post": {
                "security": [{"SignedRequest": []}],
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Finalize a proposal",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "proposal_id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProposalResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/owner": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Current administrator",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OwnerResponse"}}
                }
            }
        },
        "/v1/owner/transfer": {
            "post": {
                "security": [{"SignedRequest": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting-system"],
                "summary": "Transfer administrator rights",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/http.TransferOwnershipRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TransferOwnershipResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "http.RegisterVoterRequest": {
            "type": "object",
            "properties": {"voter": {"type": "string"}}
        },
        "http.VoterResponse": {
            "type": "object",
            "properties": {"voter": {"type": "string"}, "registered": {"type": "boolean"}}
        },
        "http.CreateProposalRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "duration_seconds": {"type": "integer"}
            }
        },
        "http.ProposalResponse": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "deadline": {"type": "string"},
                "yes_votes": {"type": "integer"},
                "no_votes": {"type": "integer"},
                "status": {"type": "string", "enum": ["active", "passed", "rejected"]},
                "created_at": {"type": "string"},
                "ended_at": {"type": "string"}
            }
        },
        "http.ListProposalsResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.ProposalResponse"}}
            }
        },
        "http.VoteCountsResponse": {
            "type": "object",
            "properties": {"proposal_id": {"type": "integer"}, "yes": {"type": "integer"}, "no": {"type": "integer"}}
        },
        "http.CastVoteRequest": {
            "type": "object",
            "properties": {"support": {"type": "boolean"}}
        },
        "http.HasVotedResponse": {
            "type": "object",
            "properties": {"proposal_id": {"type": "integer"}, "voter": {"type": "string"}, "has_voted": {"type": "boolean"}}
        },
        "http.OwnerResponse": {
            "type": "object",
            "properties": {"owner": {"type": "string"}}
        },
        "http.TransferOwnershipRequest": {
            "type": "object",
            "properties": {"new_owner": {"type": "string"}}
        },
        "http.TransferOwnershipResponse": {
            "type": "object",
            "properties": {"previous_owner": {"type": "string"}, "new_owner": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tally Voting API",
	Description:      "Permissioned proposal and ballot tracker.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
