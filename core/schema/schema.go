// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package schema validates JSON payloads against a set of JSON schemas.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates JSON objects against named schemas.
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// MustNewValidatorFromFS creates a Validator from all .json files in
// schemaFS, descending one directory level. Each file must carry an $id,
// which becomes the schema name. It panics on invalid schemas; schemas
// ship with the binary, so a bad one is a programming error.
func MustNewValidatorFromFS(schemaFS embed.FS) *Validator {
	readDir := func(dir string) []string {
		var strs []string
		files, err := schemaFS.ReadDir(dir)
		if err != nil {
			panic(fmt.Errorf("cannot read schema dir '%s': %w", dir, err))
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			fullPath := f.Name()
			if dir != "." {
				fullPath = dir + "/" + f.Name()
			}
			str, err := schemaFS.ReadFile(fullPath)
			if err != nil {
				panic(fmt.Errorf("cannot read schema '%s': %w", fullPath, err))
			}
			strs = append(strs, string(str))
		}
		return strs
	}

	schemas := readDir(".")
	entries, _ := schemaFS.ReadDir(".")
	for _, e := range entries {
		if e.IsDir() {
			schemas = append(schemas, readDir(e.Name())...)
		}
	}
	v, err := NewValidator(schemas)
	if err != nil {
		panic(err)
	}
	return v
}

// NewValidator creates a Validator from schema documents. Every document
// must carry an $id.
func NewValidator(schemas []string) (*Validator, error) {
	type schema struct {
		ID string `json:"$id"`
	}
	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		s := schema{}
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		compiled, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewStringLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s %s", s.ID, err)
		}
		validator.schemaValidators[s.ID] = compiled
	}
	return &validator, nil
}

// HasSchema returns true if schemaID is known.
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemaValidators[schemaID]
	return ok
}

// ValidateBytes validates the given json document against schemaID. If no
// error is returned, the document is valid.
func (v *Validator) ValidateBytes(document []byte, schemaID string) error {
	return v.validate(gojsonschema.NewBytesLoader(document), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	compiled, ok := v.schemaValidators[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}
	result, err := compiled.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s %s", schemaID, err)
	}
	if !result.Valid() {
		message := "the document is not valid:\n"
		for _, e := range result.Errors() {
			message += fmt.Sprintf("- %s\n", e)
		}
		return errors.New(message)
	}
	return nil
}
