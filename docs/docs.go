// Package docs registers the OpenAPI document served at /swagger.
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
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/events/{id}": {
            "get": {"tags": ["events"], "summary": "Get event details",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/events/{id}/tiers": {
            "get": {"tags": ["tiers"], "summary": "List the tier catalog of an event",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/tiers/{id}/availability": {
            "get": {"tags": ["holds"], "summary": "Remaining capacity of a tier",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/holds": {
            "post": {"tags": ["holds"], "summary": "Reserve tickets", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/holds.ReserveRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "sold_out, over_limit or sale_closed"}}}
        },
        "/holds/{id}": {
            "delete": {"tags": ["holds"], "summary": "Release a hold", "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/orders": {
            "post": {"tags": ["orders"], "summary": "Start checkout for a hold", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/orders.StartOrderRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "502": {"description": "Processor error"}}}
        },
        "/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Order with timeline and tickets", "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/me/orders": {
            "get": {"tags": ["orders"], "summary": "List my orders", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/me/tickets": {
            "get": {"tags": ["tickets"], "summary": "Holder wallet", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/scan": {
            "post": {"tags": ["checkin"], "summary": "Scan an admission token", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/checkin.ScanRequest"}}],
                "responses": {"200": {"description": "Scan outcome"}}}
        },
        "/webhooks/payments": {
            "post": {"tags": ["webhooks"], "summary": "Payment processor webhook",
                "parameters": [{"type": "string", "name": "Stripe-Signature", "in": "header", "required": true}],
                "responses": {"200": {"description": "Acknowledged"}, "400": {"description": "Bad signature"}, "500": {"description": "Redeliver"}}}
        },
        "/admin/reconcile": {
            "post": {"tags": ["admin"], "summary": "Run one reconciliation sweep", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Sweep report"}}}
        }
    },
    "definitions": {
        "holds.ReserveRequest": {"type": "object", "required": ["tier_id", "quantity"],
            "properties": {"tier_id": {"type": "string"}, "quantity": {"type": "integer"}}},
        "orders.StartOrderRequest": {"type": "object", "required": ["hold_id"],
            "properties": {"hold_id": {"type": "string"}, "tier_id": {"type": "string"}}},
        "checkin.ScanRequest": {"type": "object", "required": ["token"],
            "properties": {"token": {"type": "string"}, "scanner_id": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Ticketing Engine API",
	Description:      "Ticket inventory, payment settlement, and door check-in.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
