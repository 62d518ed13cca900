package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the OpenAPI document and a Swagger UI page that loads it.
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>memoryvista content service</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "memoryvista-content", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "code": {"type":"string","enum":["validation","invalid_transition","permission_denied","concurrent_modification","store_unavailable","not_found"]} } },
      "HistoryEntry": { "type": "object", "properties": { "type": {"type":"string","enum":["status_change","change_request"]}, "from": {"type":"string"}, "to": {"type":"string"}, "by": {"type":"string"}, "reason": {"type":"string"}, "timestamp": {"type":"string","format":"date-time"} } },
      "ContentItem": { "type": "object", "properties": { "id": {"type":"string"}, "universityId": {"type":"string"}, "profileId": {"type":"string"}, "kind": {"type":"string","enum":["profile","article"]}, "title": {"type":"string"}, "body": {"type":"string"}, "status": {"type":"string","enum":["draft","review","approved","archived"]}, "history": {"type":"array","items":{"$ref":"#/components/schemas/HistoryEntry"}}, "revision": {"type":"integer"}, "updatedBy": {"type":"string"}, "updatedAt": {"type":"string","format":"date-time"} } },
      "Grant": { "type": "object", "properties": { "identity": {"type":"string"}, "resourceId": {"type":"string"}, "role": {"type":"string","enum":["admin","editor","contributor","viewer"]}, "grantedBy": {"type":"string"}, "grantedAt": {"type":"string","format":"date-time"} } }
    }
  },
  "paths": {
    "/api/v1/content": {
      "get": { "summary": "List readable content", "parameters": [ {"name":"universityId","in":"query","schema":{"type":"string"}}, {"name":"profileId","in":"query","schema":{"type":"string"}}, {"name":"status","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "content summaries" } } },
      "post": { "summary": "Create draft content", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"universityId":{"type":"string"},"profileId":{"type":"string"},"kind":{"type":"string"},"title":{"type":"string"},"body":{"type":"string"}}}}}}, "responses": { "201": { "description": "created" }, "400": { "description": "validation" }, "403": { "description": "permission denied" } } }
    },
    "/api/v1/content/{id}": {
      "get": { "summary": "Get content", "responses": { "200": { "description": "content item" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit a draft", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"body":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated" }, "409": { "description": "not a draft or concurrent modification" } } }
    },
    "/api/v1/content/{id}/history": {
      "get": { "summary": "Audit trail", "responses": { "200": { "description": "history entries, oldest first" } } }
    },
    "/api/v1/content/{id}/transitions": {
      "post": { "summary": "Request a status transition", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"to":{"type":"string"}}}}}}, "responses": { "200": { "description": "transitioned" }, "403": { "description": "permission denied" }, "409": { "description": "invalid transition or concurrent modification (Retry-After)" }, "503": { "description": "store unavailable" } } }
    },
    "/api/v1/content/{id}/change-requests": {
      "post": { "summary": "Send content back to draft with a reason", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"reason":{"type":"string"}}}}}}, "responses": { "200": { "description": "sent back" }, "400": { "description": "empty reason" } } }
    },
    "/api/v1/content/{id}/published": {
      "get": { "summary": "Link to the published snapshot", "responses": { "200": { "description": "presigned url" }, "404": { "description": "not published" } } }
    },
    "/api/v1/resources/{resourceId}/grants": {
      "get": { "summary": "List grants on a resource", "responses": { "200": { "description": "grants" } } }
    },
    "/api/v1/resources/{resourceId}/grants/{identity}": {
      "put": { "summary": "Grant or change a role", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"role":{"type":"string"}}}}}}, "responses": { "200": { "description": "grant" } } },
      "delete": { "summary": "Revoke a grant", "responses": { "204": { "description": "revoked" }, "404": { "description": "no such grant" } } }
    },
    "/api/v1/admin/settings": {
      "get": { "summary": "Platform settings", "responses": { "200": { "description": "settings" }, "403": { "description": "platform admins only" } } },
      "put": { "summary": "Replace platform admins", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"platformAdmins":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "settings" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
