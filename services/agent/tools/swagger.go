// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/argusai/argus/services/agent/datatypes"
)

// httpMethods are the operation keys recognized under a swagger path
// item. Everything else (parameters, summary, vendor extensions) is
// skipped.
var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

// swaggerRoutePattern matches swagger.json routes in a swagger index
// page, capturing the version segment.
var swaggerRoutePattern = regexp.MustCompile(`(/swagger/([^/"'\s]+)/swagger\.json)`)

// ParseSwaggerOperations extracts REST operations from a swagger v2 or
// OpenAPI v3 JSON document.
//
// The walk is deliberately tolerant: malformed path items or operations
// are skipped rather than failing the whole document, since real-world
// swagger files are frequently sloppy. A document with no parseable
// paths at all is an error. Request body schemas (v3 requestBody, v2
// body parameter) are captured base64-encoded in Content; the api
// version is taken from info.version.
func ParseSwaggerOperations(doc string) ([]datatypes.SwaggerOperation, error) {
	var root map[string]any
	if err := json.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("tools: swagger document is not valid JSON: %w", err)
	}

	apiVersion := ""
	if info, ok := root["info"].(map[string]any); ok {
		if v, ok := info["version"].(string); ok {
			apiVersion = v
		}
	}

	paths, ok := root["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return nil, fmt.Errorf("tools: swagger document has no paths")
	}

	// Sort paths so repeated parses yield the same operation order.
	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var ops []datatypes.SwaggerOperation
	for _, path := range pathKeys {
		item, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		for _, method := range httpMethods {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			ops = append(ops, datatypes.SwaggerOperation{
				HTTPMethod: strings.ToUpper(method),
				URL:        path,
				APIVersion: apiVersion,
				Content:    encodeBodySchema(op),
			})
		}
	}

	if len(ops) == 0 {
		return nil, fmt.Errorf("tools: swagger document yielded no operations")
	}
	return ops, nil
}

// encodeBodySchema captures an operation's request body schema as a
// base64-encoded JSON string, or empty when the operation is bodiless.
func encodeBodySchema(op map[string]any) string {
	// OpenAPI v3: requestBody.content.application/json.schema
	if rb, ok := op["requestBody"].(map[string]any); ok {
		if content, ok := rb["content"].(map[string]any); ok {
			if media, ok := content["application/json"].(map[string]any); ok {
				if schema, ok := media["schema"]; ok {
					return marshalBase64(schema)
				}
			}
			// Fall back to the first media type with a schema.
			for _, v := range content {
				if media, ok := v.(map[string]any); ok {
					if schema, ok := media["schema"]; ok {
						return marshalBase64(schema)
					}
				}
			}
		}
	}

	// Swagger v2: parameters[] with in == body
	if params, ok := op["parameters"].([]any); ok {
		for _, p := range params {
			param, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if in, _ := param["in"].(string); in != "body" {
				continue
			}
			if schema, ok := param["schema"]; ok {
				return marshalBase64(schema)
			}
		}
	}
	return ""
}

func marshalBase64(schema any) string {
	data, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// ParseSwaggerVersionRoutes scans a swagger index page for swagger.json
// routes and maps each captured API version to its route. An empty map
// means the page advertises no versions the pattern recognizes.
func ParseSwaggerVersionRoutes(indexHTML string) map[string]string {
	routes := make(map[string]string)
	for _, match := range swaggerRoutePattern.FindAllStringSubmatch(indexHTML, -1) {
		routes[match[2]] = match[1]
	}
	return routes
}
