// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "errors"

var errMetadataMismatch = errors.New("metadatas length must match texts length")

// IngestRequest seeds knowledge-base passages into a memory collection.
type IngestRequest struct {
	Collection string           `json:"collection" validate:"required,max=128"`
	Texts      []string         `json:"texts" validate:"required,min=1,max=500,dive,required"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
}

// Validate validates the IngestRequest fields plus the texts/metadatas
// length pairing that tags cannot express.
func (r *IngestRequest) Validate() error {
	if err := askValidate.Struct(r); err != nil {
		return err
	}
	if len(r.Metadatas) > 0 && len(r.Metadatas) != len(r.Texts) {
		return errMetadataMismatch
	}
	return nil
}

// RouterHintRequest seeds a router hint: a phrase that steers expert
// selection, with the expert name carried in metadata.
type RouterHintRequest struct {
	Phrase string `json:"phrase" validate:"required,maxbytes"`
	Expert string `json:"expert" validate:"required,max=64"`
}

// Validate validates the RouterHintRequest fields.
func (r *RouterHintRequest) Validate() error {
	return askValidate.Struct(r)
}

// PersonaRequest seeds or replaces a persona directive document.
type PersonaRequest struct {
	Directive string `json:"directive" validate:"required,maxbytes"`
}

// Validate validates the PersonaRequest fields.
func (r *PersonaRequest) Validate() error {
	return askValidate.Struct(r)
}

// IngestResponse reports how many documents were written.
type IngestResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}
