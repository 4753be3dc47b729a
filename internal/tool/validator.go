package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// UnknownFieldPolicy decides what happens to argument keys the schema does not declare.
type UnknownFieldPolicy string

const (
	UnknownFieldsAllow  UnknownFieldPolicy = "allow"
	UnknownFieldsReject UnknownFieldPolicy = "reject"
)

func ParseUnknownFieldPolicy(s string) (UnknownFieldPolicy, error) {
	switch UnknownFieldPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnknownFieldsAllow:
		return UnknownFieldsAllow, nil
	case UnknownFieldsReject:
		return UnknownFieldsReject, nil
	default:
		return "", fmt.Errorf("unknown field policy %q (want allow or reject)", s)
	}
}

// ValidateInput checks if the JSON input matches the tool's parameter schema.
// This is a lightweight implementation of JSON Schema validation covering
// type, required, enum, items and nested properties.
func ValidateInput(schema map[string]interface{}, input json.RawMessage, policy UnknownFieldPolicy) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}

	var inputMap map[string]interface{}
	if err := json.Unmarshal(trimmed, &inputMap); err != nil {
		return fmt.Errorf("arguments must be a JSON object: %v", err)
	}
	if inputMap == nil {
		return fmt.Errorf("arguments must be a JSON object, got null")
	}

	return validateObject("", schema, inputMap, policy)
}

func validateObject(path string, schema map[string]interface{}, input map[string]interface{}, policy UnknownFieldPolicy) error {
	for _, fieldName := range requiredFields(schema["required"]) {
		if _, exists := input[fieldName]; !exists {
			return fmt.Errorf("missing required field: %s", joinPath(path, fieldName))
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})

	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		propSchema, defined := properties[key]
		if !defined {
			if policy == UnknownFieldsReject {
				return fmt.Errorf("unknown field: %s", joinPath(path, key))
			}
			continue
		}

		propSchemaMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}

		if err := validateValue(joinPath(path, key), propSchemaMap, input[key], policy); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(fieldName string, schema map[string]interface{}, value interface{}, policy UnknownFieldPolicy) error {
	if err := validateEnum(fieldName, schema, value); err != nil {
		return err
	}

	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' expected string, got %s", fieldName, jsonTypeName(value))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' expected number, got %s", fieldName, jsonTypeName(value))
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field '%s' expected integer, got %s", fieldName, jsonTypeName(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %s", fieldName, jsonTypeName(value))
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %s", fieldName, jsonTypeName(value))
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateValue(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item, policy); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %s", fieldName, jsonTypeName(value))
		}
		return validateObject(fieldName, schema, obj, policy)
	}

	return nil
}

func validateEnum(fieldName string, schema map[string]interface{}, value interface{}) error {
	var allowed []interface{}
	switch enum := schema["enum"].(type) {
	case []interface{}:
		allowed = enum
	case []string:
		for _, v := range enum {
			allowed = append(allowed, v)
		}
	default:
		return nil
	}

	for _, candidate := range allowed {
		if candidate == value {
			return nil
		}
	}
	return fmt.Errorf("field '%s' must be one of %v, got %v", fieldName, allowed, value)
}

func requiredFields(v interface{}) []string {
	switch required := v.(type) {
	case []string:
		return required
	case []interface{}:
		out := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
