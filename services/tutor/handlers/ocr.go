// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/analytics"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/ocr"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
)

var ocrTracer = otel.Tracer("precalc.tutor.handlers.ocr")

// maxConcurrentOCR bounds in-flight provider calls during a batch.
const maxConcurrentOCR = 4

// HandleOCR recognizes one image of handwritten or printed math.
func HandleOCR(client ocr.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := ocrTracer.Start(c.Request.Context(), "HandleOCR")
		defer span.End()

		var req datatypes.OCRRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			slog.Error("Failed to parse OCR request", "error", err)
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointOCR, observability.ErrorCodeValidation)
			}
			apiError(c, http.StatusBadRequest, "image must be base64 encoded; formats may be text or latex")
			return
		}

		result, err := client.Recognize(ctx, req.Image, req.Formats)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordOCRImage(err == nil)
			m.RecordRequest(observability.EndpointOCR, err == nil)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "OCR recognition failed")
			slog.Error("OCR recognition failed", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointOCR, observability.ErrorCodeOCRError)
			}
			apiError(c, http.StatusBadGateway, "image recognition failed")
			return
		}

		analytics.Track("ocr_request", map[string]any{"batch": false})
		c.JSON(http.StatusOK, datatypes.OCRResponse{
			Text:       result.Text,
			LaTeX:      result.LaTeX,
			Confidence: result.Confidence,
		})
	}
}

// HandleOCRBatch recognizes up to MaxOCRImagesPerBatch images concurrently.
//
// Results come back in request order. A failed image does not fail the
// batch; its index is reported in the errors map instead.
func HandleOCRBatch(client ocr.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := ocrTracer.Start(c.Request.Context(), "HandleOCRBatch")
		defer span.End()

		var req datatypes.OCRBatchRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			slog.Error("Failed to parse OCR batch request", "error", err)
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointOCR, observability.ErrorCodeValidation)
			}
			apiError(c, http.StatusBadRequest, "images must be base64 encoded, at most 8 per batch")
			return
		}
		span.SetAttributes(attribute.Int("ocr.batch_size", len(req.Images)))

		results := make([]datatypes.OCRResponse, len(req.Images))
		failures := make(map[int]string)
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentOCR)
		for i, image := range req.Images {
			g.Go(func() error {
				result, err := client.Recognize(gctx, image, req.Formats)
				if m := observability.DefaultMetrics; m != nil {
					m.RecordOCRImage(err == nil)
				}
				if err != nil {
					slog.Warn("OCR batch image failed", "index", i, "error", err)
					mu.Lock()
					failures[i] = sanitizeErrorForClient(err)
					mu.Unlock()
					return nil
				}
				results[i] = datatypes.OCRResponse{
					Text:       result.Text,
					LaTeX:      result.LaTeX,
					Confidence: result.Confidence,
				}
				return nil
			})
		}
		// Per-image errors never propagate, so Wait only reports context
		// cancellation.
		if err := g.Wait(); err != nil {
			span.RecordError(err)
			apiError(c, http.StatusInternalServerError, sanitizeErrorForClient(err))
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointOCR, len(failures) == 0)
		}
		analytics.Track("ocr_request", map[string]any{
			"batch":  true,
			"images": len(req.Images),
			"failed": len(failures),
		})

		resp := datatypes.OCRBatchResponse{Results: results}
		if len(failures) > 0 {
			resp.Errors = failures
		}
		c.JSON(http.StatusOK, resp)
	}
}
