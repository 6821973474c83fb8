// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// MaxOCRImagesPerBatch caps a batch recognition request. The fan-out is
// bounded regardless (see the handler), but rejecting early gives the
// client a clear error.
const MaxOCRImagesPerBatch = 8

// OCRRequest is the body of POST /api/ocr: one base64-encoded image of
// handwritten or printed math.
type OCRRequest struct {
	Image   string   `json:"image" validate:"required,base64"`
	Formats []string `json:"formats" validate:"omitempty,dive,oneof=text latex"`
}

// Validate checks the request after JSON binding.
func (r *OCRRequest) Validate() error {
	return tutorValidate.Struct(r)
}

// OCRBatchRequest is the body of POST /api/ocr/batch.
type OCRBatchRequest struct {
	Images  []string `json:"images" validate:"required,min=1,max=8,dive,base64"`
	Formats []string `json:"formats" validate:"omitempty,dive,oneof=text latex"`
}

// Validate checks the request after JSON binding.
func (r *OCRBatchRequest) Validate() error {
	return tutorValidate.Struct(r)
}

// OCRResponse is one recognition result.
type OCRResponse struct {
	Text       string  `json:"text"`
	LaTeX      string  `json:"latex,omitempty"`
	Confidence float64 `json:"confidence"`
}

// OCRBatchResponse carries per-image results in request order. A failed
// image yields an empty result and an entry in Errors keyed by index.
type OCRBatchResponse struct {
	Results []OCRResponse  `json:"results"`
	Errors  map[int]string `json:"errors,omitempty"`
}
