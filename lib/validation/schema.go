package validation

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"
)

// RegistrationSchema defines the JSON schema for API registration requests
var RegistrationSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 100},
		"email": {"type": "string", "minLength": 3, "maxLength": 254},
		"password": {"type": "string", "minLength": 6},
		"phone_number": {"type": "string", "maxLength": 32}
	},
	"required": ["name", "email", "password"],
	"additionalProperties": false
}`

// LoginSchema defines the JSON schema for API login requests
var LoginSchema = `{
	"type": "object",
	"properties": {
		"email": {"type": "string", "minLength": 3},
		"password": {"type": "string", "minLength": 1}
	},
	"required": ["email", "password"],
	"additionalProperties": false
}`

var (
	registrationSchema = gojsonschema.NewStringLoader(RegistrationSchema)
	loginSchema        = gojsonschema.NewStringLoader(LoginSchema)
)

// RegistrationRequest is the body of POST /api/register.
type RegistrationRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateSchema(schema gojsonschema.JSONLoader, jsonData []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}

// ParseRegistration validates a registration body against RegistrationSchema and
// decodes it with surrounding whitespace trimmed.
func ParseRegistration(jsonData []byte) (*RegistrationRequest, error) {
	if err := validateSchema(registrationSchema, jsonData); err != nil {
		return nil, err
	}

	var req RegistrationRequest
	if err := jsoniter.Unmarshal(jsonData, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	return &req, nil
}

func ParseLogin(jsonData []byte) (*LoginRequest, error) {
	if err := validateSchema(loginSchema, jsonData); err != nil {
		return nil, err
	}

	var req LoginRequest
	if err := jsoniter.Unmarshal(jsonData, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	req.Email = strings.TrimSpace(req.Email)
	return &req, nil
}
