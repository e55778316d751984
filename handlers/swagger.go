package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the paper builder API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>paper-builder — Swagger</title>
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
  "info": { "title": "paper-builder", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "PaperForm": {"type":"object","required":["title","description","duration","totalMarks"],"properties":{"title":{"type":"string","minLength":1},"description":{"type":"string","minLength":1},"duration":{"type":"number","minimum":1},"totalMarks":{"type":"number","minimum":1},"sections":{"type":"array","items":{"$ref":"#/components/schemas/SectionForm"}}}},
      "SectionForm": {"type":"object","required":["title","instructions","marks"],"properties":{"title":{"type":"string","minLength":1},"instructions":{"type":"string","minLength":1},"marks":{"type":"number","minimum":1},"timeLimit":{"type":"number","minimum":1},"questions":{"type":"array","items":{"type":"string"}}}},
      "PaperUpdate": {"type":"object","properties":{"title":{"type":"string"},"description":{"type":"string"},"duration":{"type":"number"},"totalMarks":{"type":"number"},"status":{"type":"string","enum":["draft","published","archived"]}}},
      "FieldErrors": {"type":"object","properties":{"errors":{"type":"object","additionalProperties":{"type":"string"}}}}
    }
  },
  "paths": {
    "/api/papers": {
      "get": { "summary": "List papers in creation order", "responses": { "200": { "description": "papers" } } },
      "post": { "summary": "Validate and create a paper", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PaperForm"}}}}, "responses": { "201": { "description": "created paper" }, "400": { "description": "malformed JSON" }, "422": { "description": "field errors" } } }
    },
    "/api/papers/summary": {
      "get": { "summary": "Per-paper section count and marks totals", "responses": { "200": { "description": "summaries" } } }
    },
    "/api/papers/current": {
      "get": { "summary": "Working copy of the selected paper", "responses": { "200": { "description": "paper or null" } } },
      "put": { "summary": "Select a paper by id or clear with null", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"id":{"type":"string","nullable":true}}}}}}, "responses": { "200": { "description": "selected paper or null" }, "404": { "description": "unknown paper" } } }
    },
    "/api/papers/events": {
      "get": { "summary": "Server-sent stream of store changes", "responses": { "200": { "description": "text/event-stream" } } }
    },
    "/api/papers/{id}": {
      "get": { "summary": "Get a paper", "responses": { "200": { "description": "paper" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Shallow-merge paper fields", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PaperUpdate"}}}}, "responses": { "200": { "description": "updated paper" }, "404": { "description": "not found" }, "422": { "description": "field errors" } } },
      "delete": { "summary": "Delete a paper", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/papers/{id}/sections": {
      "post": { "summary": "Validate and append a section", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/SectionForm"}}}}, "responses": { "201": { "description": "created section" }, "404": { "description": "paper not found" }, "422": { "description": "field errors" } } }
    },
    "/api/papers/{id}/sections/{sectionId}": {
      "get": { "summary": "Get one section of a paper", "responses": { "200": { "description": "section" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Remove a section", "responses": { "204": { "description": "removed" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
